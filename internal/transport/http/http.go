// Package http implements the HTTP transport for roverd.
//
// This transport exposes the orchestration endpoint (/process), the direct
// validation endpoint (/execute_command) and a small stats endpoint. It is
// the primary surface for web clients and companion services.
package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"roverd/internal/message"
	"roverd/internal/router"
	"roverd/internal/simulate"
	"roverd/internal/trace"
	"roverd/internal/transport"
	"roverd/internal/validate"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port    int
	backend string
	server  *http.Server

	requests  atomic.Int64
	validated atomic.Int64
	rejected  atomic.Int64
}

// New creates a new HTTP transport on the given port. backend names the
// configured generation backend for the stats endpoint.
func New(port int, backend string) *Transport {
	return &Transport{port: port, backend: backend}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.mux(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// mux builds the route table. Split out from Listen so tests can exercise
// the handlers without binding a port.
func (t *Transport) mux(handler transport.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /process", func(w http.ResponseWriter, r *http.Request) {
		t.handleProcess(w, r, handler)
	})

	mux.HandleFunc("POST /execute_command", t.handleExecuteCommand)

	mux.HandleFunc("GET /stats", t.handleStats)

	// Swagger UI — serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// handleProcess processes a POST /process request.
//
// @Summary     Process a natural-language robot instruction
// @Description Accepts a JSON request (with text or base64 audio) or raw audio bytes.
// @Description The input is run through the pipeline (transcribe → generate → validate → simulate)
// @Description and the result is returned to the caller.
// @Tags        process
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/ogg
// @Produce     json
// @Param       request  body      message.ProcessRequest  true  "Process request (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type."
// @Param       X-Correlation-ID  header  string  false  "Caller-supplied correlation ID (generated when absent)"
// @Success     200  {object}  message.ProcessResponse  "Pipeline result"
// @Failure     400  {string}  string  "Invalid or empty request"
// @Failure     500  {string}  string  "Internal processing error"
// @Failure     503  {string}  string  "A downstream service is unavailable"
// @Router      /process [post]
func (t *Transport) handleProcess(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	t.requests.Add(1)

	var req message.ProcessRequest

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	default:
		// Treat body as raw audio to transcribe.
		audio, err := io.ReadAll(io.LimitReader(r.Body, 25<<20)) // 25 MB limit
		if err != nil {
			http.Error(w, "reading audio: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Audio = base64.StdEncoding.EncodeToString(audio)
		req.ContentType = contentType
	}

	if req.CorrelationID == "" {
		req.CorrelationID = r.Header.Get("X-Correlation-ID")
	}
	if req.CorrelationID == "" {
		req.CorrelationID = trace.NewID()
	}
	w.Header().Set("X-Correlation-ID", req.CorrelationID)

	resp, err := handler(r.Context(), &req)
	if err != nil {
		t.rejected.Add(1)
		var upstream *router.UpstreamError
		switch {
		case errors.As(err, &upstream):
			http.Error(w, upstream.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, router.ErrNoInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("process failed", "correlation_id", req.CorrelationID, "error", err)
			http.Error(w, "processing error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if resp.ValidationResult != nil {
		t.validated.Add(1)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleExecuteCommand validates and simulates a single structured command.
//
// @Summary     Validate and simulate a robot command
// @Description Validates the command against the known schemas. On success the response
// @Description message includes the simulated action description; on failure it carries
// @Description the error and a corrective hint.
// @Tags        process
// @Accept      json
// @Produce     json
// @Param       request  body      message.CommandRequest  true  "Command to validate"
// @Success     200  {object}  message.CommandValidationResponse  "Validation outcome"
// @Failure     400  {string}  string  "Invalid request body"
// @Router      /execute_command [post]
func (t *Transport) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var req message.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	corrID := req.CorrelationID
	if corrID == "" {
		corrID = r.Header.Get("X-Correlation-ID")
	}
	logger := slog.With("correlation_id", corrID)

	outcome := validate.Validate(req.Command, req.CommandParams)

	var resp message.CommandValidationResponse
	if outcome.Valid {
		msg := outcome.Message
		if sim, err := simulate.Describe(outcome.Command, outcome.Params); err == nil {
			msg = msg + ". " + sim
		} else {
			logger.Error("simulation failed", "command", outcome.Command, "error", err)
			http.Error(w, "simulation error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		logger.Info("command validated", "command", outcome.Command)
		resp = message.CommandValidationResponse{
			Success:       true,
			Message:       msg,
			Command:       string(outcome.Command),
			CommandParams: outcome.Params,
		}
	} else {
		logger.Warn("command rejected", "command", req.Command, "error", outcome.Error)
		resp = message.CommandValidationResponse{
			Success: false,
			Error:   outcome.Error,
			Details: outcome.Details,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// statsResponse is the GET /stats payload.
type statsResponse struct {
	Backend           string `json:"backend"`
	RequestsTotal     int64  `json:"requests_total"`
	CommandsValidated int64  `json:"commands_validated"`
	RequestsFailed    int64  `json:"requests_failed"`
}

// handleStats reports request counters.
//
// @Summary     Service statistics
// @Description Reports the configured generation backend and request counters.
// @Tags        process
// @Produce     json
// @Success     200  {object}  statsResponse  "Current counters"
// @Router      /stats [get]
func (t *Transport) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statsResponse{
		Backend:           t.backend,
		RequestsTotal:     t.requests.Load(),
		CommandsValidated: t.validated.Load(),
		RequestsFailed:    t.rejected.Load(),
	})
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
