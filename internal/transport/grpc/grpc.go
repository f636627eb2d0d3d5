// Package grpc implements the gRPC transport for roverd.
//
// This transport exposes a gRPC server for low-latency, strongly-typed
// communication with robots and edge devices. It is disabled by default
// until the service proto is finalized.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"roverd/internal/transport"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port    int
	handler transport.Handler
	server  *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	t.handler = handler
	t.server = grpc.NewServer()

	// TODO: Register the generated RoverService server here once the proto
	// is compiled.
	// pb.RegisterRoverServiceServer(t.server, &serviceServer{handler: handler})

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}
