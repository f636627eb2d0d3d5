// Package trace provides correlation ID generation and context propagation.
//
// A correlation ID is assigned once when a request enters the daemon and is
// threaded unchanged through every downstream call and log record for that
// request.
package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// correlationKey is the unexported context key used to store the correlation ID.
type correlationKey struct{}

// NewID generates a short correlation ID (first 8 hex chars of a UUIDv4).
func NewID() string {
	id := uuid.NewString()
	id = strings.ReplaceAll(id, "-", "")
	return id[:8]
}

// WithCorrelationID returns a child context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// FromContext extracts the correlation ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}
