// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP, gRPC) implements this interface and hands incoming
// requests to the router. The router doesn't care how requests arrive — it
// only works with the Transport contract.
package transport

import (
	"context"

	"roverd/internal/message"
)

// Handler is a function that runs an incoming request through the
// orchestration pipeline and returns the result. The router provides this
// handler to each transport.
type Handler func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "grpc").
	Name() string

	// Listen starts accepting incoming requests and feeds them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
