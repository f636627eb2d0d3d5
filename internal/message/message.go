// Package message defines the wire types flowing through the roverd pipeline.
package message

import (
	"encoding/base64"
)

// ResponseMode controls what natural-language output the caller wants.
// The caller declares desired output in the request body and the server
// populates or omits response fields accordingly.
type ResponseMode string

const (
	// ResponseModeNone suppresses all natural-language output.
	ResponseModeNone ResponseMode = "none"

	// ResponseModeText returns a natural-language text response.
	ResponseModeText ResponseMode = "text"

	// ResponseModeTextAudio returns both text and synthesized audio.
	ResponseModeTextAudio ResponseMode = "text+audio"
)

// ProcessRequest is an incoming request to the orchestration pipeline.
// Exactly one of UserInput or Audio should be set; when both are present
// the pre-transcribed text wins and transcription is skipped.
type ProcessRequest struct {
	// UserInput is the typed or pre-transcribed natural-language intent.
	UserInput string `json:"user_input,omitempty"`

	// CorrelationID is an optional caller-supplied tracing token. A fresh
	// one is generated when absent and echoed in every log record.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Audio is a base64-encoded audio payload to transcribe.
	Audio string `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio (e.g. "audio/wav").
	ContentType string `json:"content_type,omitempty"`

	// ResponseMode selects the reply surface. Defaults to "text", or
	// "text+audio" when speech synthesis is enabled.
	ResponseMode ResponseMode `json:"response_mode,omitempty"`
}

// HasAudio returns true if the request carries an audio payload.
func (r *ProcessRequest) HasAudio() bool {
	return r.Audio != ""
}

// AudioBytes decodes the base64 audio payload.
func (r *ProcessRequest) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// ProcessResponse is the final pipeline result returned to the caller.
//
// On the chat path Command and CommandParams are null. On the command path
// they carry the final generation's proposal, and ValidationResult is
// present only when the final validation succeeded.
type ProcessResponse struct {
	// Response is the model's conversational reply.
	Response string `json:"response"`

	// Command is the proposed command name, null for chat replies.
	Command *string `json:"command"`

	// CommandParams holds the proposed parameters, null for chat replies.
	CommandParams map[string]any `json:"command_params"`

	// ValidationResult describes the validated and simulated action.
	ValidationResult *string `json:"validation_result,omitempty"`

	// Transcript is the text produced by transcription (empty for text input).
	Transcript string `json:"transcript,omitempty"`

	// ResponseAudio is the synthesized spoken reply, base64-encoded.
	ResponseAudio string `json:"response_audio,omitempty"`

	// ResponseContentType is the MIME type of ResponseAudio.
	ResponseContentType string `json:"response_content_type,omitempty"`

	// Error and ErrorCode are set when the pipeline terminated in failure.
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// SetResponseAudioBytes base64-encodes raw audio bytes into ResponseAudio.
func (r *ProcessResponse) SetResponseAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.ResponseAudio = base64.StdEncoding.EncodeToString(audio)
	}
}

// CommandRequest is the wire form of a validation request, as served on
// /execute_command and consumed by the remote validator client.
type CommandRequest struct {
	Command       string         `json:"command"`
	CommandParams map[string]any `json:"command_params"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// CommandValidationResponse is the tagged validation outcome on the wire.
// Success selects which field set is populated.
type CommandValidationResponse struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message,omitempty"`
	Command       string         `json:"command,omitempty"`
	CommandParams map[string]any `json:"command_params,omitempty"`
	Error         string         `json:"error,omitempty"`
	Details       string         `json:"details,omitempty"`
}
