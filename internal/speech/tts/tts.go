// Package tts defines the interface to the external speech synthesizer and a
// client for the HTTP synthesis service.
//
// Synthesis turns the pipeline's reply text into spoken audio so voice-in
// requests get voice-out responses. The synthesizer itself is a black box.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"roverd/internal/config"
	"roverd/internal/trace"
)

// Result holds the output of speech synthesis.
type Result struct {
	// Audio is the synthesized speech as a WAV file.
	Audio []byte

	// ContentType is the MIME type of Audio.
	ContentType string

	// SampleRate is the audio sample rate in Hz, when reported.
	SampleRate int
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier.
	Name() string

	// Synthesize generates spoken audio for the given text.
	Synthesize(ctx context.Context, text string) (*Result, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Client synthesizes speech through an HTTP service exposing /synthesize:
// request {"text", "correlation_id"}, response {"audio_data": <base64 wav>,
// "sample_rate"}.
type Client struct {
	endpoint string
	voice    string
	client   *http.Client
}

// New creates a synthesis client from config.
func New(cfg config.TTSConfig) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/") + "/synthesize",
		voice:    cfg.VoiceDescription,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "http" }

// Synthesize posts the cleaned text to the synthesis service and decodes the
// returned audio.
func (c *Client) Synthesize(ctx context.Context, text string) (*Result, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, fmt.Errorf("nothing to synthesize after cleaning %q", text)
	}

	reqBody := map[string]any{
		"text":           cleaned,
		"correlation_id": trace.FromContext(ctx),
	}
	if c.voice != "" {
		reqBody["voice_description"] = c.voice
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := trace.FromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("synthesis failed (status %d): %s", resp.StatusCode, respBody)
	}

	var wire struct {
		AudioData  string `json:"audio_data"`
		SampleRate int    `json:"sample_rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding synthesis response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(wire.AudioData)
	if err != nil {
		return nil, fmt.Errorf("decoding synthesized audio: %w", err)
	}

	slog.Debug("synthesis complete",
		"correlation_id", trace.FromContext(ctx), "audio_bytes", len(audio))
	return &Result{
		Audio:       audio,
		ContentType: "audio/wav",
		SampleRate:  wire.SampleRate,
	}, nil
}

// Close is a no-op for the HTTP client.
func (c *Client) Close() error { return nil }
