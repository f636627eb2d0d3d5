// Package router implements the orchestration state machine that drives one
// request through generation, validation and simulation.
//
// The flow is RECEIVED → GENERATING → (DONE_CHAT | VALIDATING) →
// (DONE_COMMAND | RETRYING) → GENERATING → VALIDATING → (DONE_COMMAND |
// FAILED). The retry edge is taken at most once per request: a second
// invalid outcome terminates the pipeline. Expressing the flow as an
// explicit state machine makes that bound structural rather than
// convention-enforced.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roverd/internal/command"
	"roverd/internal/generate"
	"roverd/internal/message"
	"roverd/internal/speech/stt"
	"roverd/internal/speech/tts"
	"roverd/internal/trace"
	"roverd/internal/validate"
)

// retryBudget is the number of corrective generation attempts allowed after
// a failed validation. Transport failures do not consume it.
const retryBudget = 1

// Validator is the validation dependency. The in-process implementation
// never returns an error; transport-backed ones surface failures there.
type Validator interface {
	Name() string
	Validate(ctx context.Context, name string, params map[string]any) (*validate.Outcome, error)
}

// Simulator renders a validated command as an action description.
type Simulator func(name command.Name, params map[string]any) (string, error)

// UpstreamError reports a transport failure or timeout talking to the
// generation or validation collaborator. It is fatal for the current
// request and never consumes the retry budget.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + " unavailable: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Options configures the optional collaborators and per-call timeouts.
type Options struct {
	// Simulate renders valid outcomes. Leave nil when the validator backend
	// performs simulation remotely (its message then already includes the
	// action description).
	Simulate Simulator

	// Transcriber enables audio input. Nil rejects audio requests.
	Transcriber stt.Transcriber

	// Synthesizer enables spoken replies. Nil disables audio output.
	Synthesizer tts.Synthesizer

	// GenerationTimeout bounds each model call; the model is the dominant
	// latency source, so it defaults long (120s).
	GenerationTimeout time.Duration

	// ValidationTimeout bounds each validation call (default 30s).
	ValidationTimeout time.Duration
}

// Router drives requests through the pipeline.
type Router struct {
	gen  generate.Client
	val  Validator
	opts Options
}

// New creates a Router over the given generation client and validator.
func New(gen generate.Client, val Validator, opts Options) *Router {
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 120 * time.Second
	}
	if opts.ValidationTimeout <= 0 {
		opts.ValidationTimeout = 30 * time.Second
	}
	return &Router{gen: gen, val: val, opts: opts}
}

// ErrNoInput is returned for requests carrying neither text nor audio.
var ErrNoInput = fmt.Errorf("request has no user input and no audio")

// Handle processes one external request end to end: transcription when the
// request carries audio, then the generation/validation state machine, then
// optional speech synthesis of the reply.
func (r *Router) Handle(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
	start := time.Now()

	corrID := req.CorrelationID
	if corrID == "" {
		corrID = trace.NewID()
	}
	ctx = trace.WithCorrelationID(ctx, corrID)
	logger := slog.With("correlation_id", corrID)

	text := req.UserInput
	transcribed := false
	if text == "" && req.HasAudio() {
		if r.opts.Transcriber == nil {
			return nil, fmt.Errorf("audio input received but no transcriber is configured")
		}
		audio, err := req.AudioBytes()
		if err != nil {
			return nil, fmt.Errorf("decoding audio payload: %w", err)
		}
		logger.Debug("transcribing audio", "content_type", req.ContentType, "bytes", len(audio))
		text, err = r.opts.Transcriber.Transcribe(ctx, audio, req.ContentType)
		if err != nil {
			return nil, &UpstreamError{Op: "transcription", Err: err}
		}
		transcribed = true
	}
	if text == "" {
		return nil, ErrNoInput
	}

	logger.Info("request received", "user_input", text)

	resp, err := r.process(ctx, text)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	if transcribed {
		resp.Transcript = text
	}

	if r.wantAudio(req.ResponseMode) && resp.Response != "" {
		r.synthesizeReply(ctx, logger, resp)
	}

	logger.Info("request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"command", resp.Command)
	return resp, nil
}

// process runs the bounded generation/validation state machine for one
// request. Generation strictly precedes validation, and a retried
// generation strictly follows the first validation failure.
func (r *Router) process(ctx context.Context, userText string) (*message.ProcessResponse, error) {
	logger := slog.With("correlation_id", trace.FromContext(ctx))

	var (
		st            = stateReceived
		proposal      *generate.Proposal
		outcome       *validate.Outcome
		retryFeedback string
		attempt       int
	)

	for {
		// A cancelled request skips all further transitions.
		if err := ctx.Err(); err != nil {
			return nil, &UpstreamError{Op: "request", Err: err}
		}

		switch st {
		case stateReceived:
			st = stateGenerating

		case stateGenerating:
			attempt++
			gctx, cancel := context.WithTimeout(ctx, r.opts.GenerationTimeout)
			p, err := r.gen.Generate(gctx, userText, retryFeedback)
			cancel()
			if err != nil {
				return nil, &UpstreamError{Op: "generation", Err: err}
			}
			proposal = p
			if p.IsCommand() {
				logger.Info("command proposed", "command", p.Command, "attempt", attempt)
				st = stateValidating
			} else {
				st = stateDoneChat
			}

		case stateValidating:
			vctx, cancel := context.WithTimeout(ctx, r.opts.ValidationTimeout)
			out, err := r.val.Validate(vctx, proposal.Command, proposal.Params)
			cancel()
			if err != nil {
				return nil, &UpstreamError{Op: "validation", Err: err}
			}
			outcome = out
			switch {
			case out.Valid:
				st = stateDoneCommand
			case attempt <= retryBudget:
				st = stateRetrying
			default:
				st = stateFailed
			}

		case stateRetrying:
			retryFeedback = outcome.Error
			logger.Info("validation failed, retrying generation", "retry_feedback", retryFeedback)
			st = stateGenerating

		case stateDoneChat:
			logger.Info("chat response completed")
			return &message.ProcessResponse{Response: proposal.Reply}, nil

		case stateDoneCommand:
			result := outcome.Message
			if r.opts.Simulate != nil {
				sim, err := r.opts.Simulate(outcome.Command, outcome.Params)
				if err != nil {
					return nil, fmt.Errorf("simulation: %w", err)
				}
				result = result + ". " + sim
			}
			return &message.ProcessResponse{
				Response:         proposal.Reply,
				Command:          &proposal.Command,
				CommandParams:    proposal.Params,
				ValidationResult: &result,
			}, nil

		case stateFailed:
			logger.Warn("validation failed after retry", "error", outcome.Error)
			return &message.ProcessResponse{
				Response:      proposal.Reply,
				Command:       &proposal.Command,
				CommandParams: proposal.Params,
				Error:         outcome.Error,
				ErrorCode:     string(outcome.Code),
			}, nil
		}
	}
}

// wantAudio resolves the effective response mode: audio is produced when a
// synthesizer is wired and the caller asked for it, or asked for nothing
// specific.
func (r *Router) wantAudio(mode message.ResponseMode) bool {
	if r.opts.Synthesizer == nil {
		return false
	}
	switch mode {
	case message.ResponseModeTextAudio:
		return true
	case message.ResponseModeNone, message.ResponseModeText:
		return false
	default:
		return true
	}
}

// synthesizeReply attaches spoken audio for the reply text. Synthesis
// failures are logged, not fatal: the text response still stands.
func (r *Router) synthesizeReply(ctx context.Context, logger *slog.Logger, resp *message.ProcessResponse) {
	res, err := r.opts.Synthesizer.Synthesize(ctx, resp.Response)
	if err != nil {
		logger.Warn("speech synthesis failed, continuing without audio", "error", err)
		return
	}
	resp.SetResponseAudioBytes(res.Audio)
	resp.ResponseContentType = res.ContentType
}

// state enumerates the pipeline positions of one request.
type state int

const (
	stateReceived state = iota
	stateGenerating
	stateValidating
	stateRetrying
	stateDoneChat
	stateDoneCommand
	stateFailed
)
