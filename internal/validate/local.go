package validate

import (
	"context"
	"log/slog"

	"roverd/internal/trace"
)

// Local runs the pure validator in-process. It satisfies the router's
// validator contract; the error return exists for transport-backed
// implementations and is always nil here.
type Local struct{}

// Name returns the validator backend identifier.
func (Local) Name() string { return "local" }

// Validate checks the proposal against the schema registry and logs the
// outcome with the request's correlation ID.
func (Local) Validate(ctx context.Context, name string, params map[string]any) (*Outcome, error) {
	out := Validate(name, params)

	logger := slog.With("correlation_id", trace.FromContext(ctx), "command", name)
	if out.Valid {
		logger.Info("command validated", "params", FormatParams(out.Params))
	} else {
		logger.Warn("command rejected", "code", string(out.Code), "error", out.Error)
	}
	return &out, nil
}
