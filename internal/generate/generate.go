// Package generate defines the interface to the generative model that turns
// natural-language intent into structured command proposals.
//
// Backends live in subpackages: runner (OpenAI-compatible chat endpoint such
// as Docker Model Runner, llama.cpp or vLLM) and local (Ollama's native
// generate API). Both share the proposal wire format and the parse-failure
// fallback defined here.
package generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// Proposal is the model's structured guess: either a conversational reply
// (Command empty) or a command invocation with parameters.
type Proposal struct {
	// Reply is the conversational text accompanying the proposal.
	Reply string

	// Command is the proposed command name, empty for pure chat replies.
	Command string

	// Params holds the proposed command parameters. Ignored when Command
	// is empty.
	Params map[string]any
}

// IsCommand reports whether the proposal carries a command invocation.
func (p *Proposal) IsCommand() bool {
	return p.Command != ""
}

// Client is the contract the router consumes. Generate blocks until the
// model responds or ctx expires; transport failures come back as errors,
// while unparseable model output degrades to a conversational fallback
// proposal so callers never see parse errors.
type Client interface {
	// Name returns the backend identifier (e.g. "runner", "local").
	Name() string

	// Generate requests one proposal for the user text. retryFeedback, when
	// non-empty, is the previous validation error appended as corrective
	// context for the model's single self-correction attempt.
	Generate(ctx context.Context, userText, retryFeedback string) (*Proposal, error)

	// Close releases any resources held by the backend.
	Close() error
}

// SystemPrompt is the default instruction set for the model. It fixes the
// JSON reply contract and the closed command vocabulary.
const SystemPrompt = `You are a home robot assistant. For every user message reply with a single JSON object:
{"response": "<short natural-language reply>", "command": <command name or null>, "command_params": <object or null>}

Known commands:
- move_to: {"x": <number>, "y": <number>}
- rotate: {"angle": <number>, "direction": "clockwise" | "counter-clockwise"}
- start_patrol: {"route_id": "first_floor" | "bedrooms" | "second_floor", "speed": "slow" | "medium" | "fast", "repeat_count": <-1 for continuous, or >= 1>}

If the user is chatting rather than instructing the robot, set command and command_params to null.
If a previous error is included with the message, correct the command accordingly.`

// FallbackReply is the conversational reply substituted when the model's
// raw output cannot be parsed as a proposal.
const FallbackReply = "I'm ready to help with robot commands!"

// UserContent merges the user text with the optional retry feedback, in the
// "Previous error:" form the model is trained on.
func UserContent(userText, retryFeedback string) string {
	if retryFeedback == "" {
		return userText
	}
	return userText + "\n\nPrevious error: " + retryFeedback
}

// proposalWire is the JSON shape the model emits.
type proposalWire struct {
	Response      string         `json:"response"`
	Command       *string        `json:"command"`
	CommandParams map[string]any `json:"command_params"`
}

// ParseProposal decodes the model's raw text into a Proposal. Output that is
// not valid proposal JSON is absorbed into a conversational fallback rather
// than surfaced as an error: the router must not have to distinguish "the
// model said something unparseable" from "the model chose not to command".
func ParseProposal(raw string) *Proposal {
	cleaned := stripFences(strings.TrimSpace(raw))

	var wire proposalWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		slog.Debug("proposal parse failed, degrading to chat reply",
			"error", err, "raw_prefix", prefix(cleaned, 120))
		return &Proposal{Reply: FallbackReply}
	}

	p := &Proposal{Reply: wire.Response}
	if wire.Command != nil && *wire.Command != "" {
		p.Command = *wire.Command
		p.Params = wire.CommandParams
		if p.Params == nil {
			p.Params = map[string]any{}
		}
	}
	if p.Reply == "" && !p.IsCommand() {
		p.Reply = FallbackReply
	}
	return p
}

// stripFences removes a markdown code fence wrapper, which smaller models
// emit even when told to produce bare JSON.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
