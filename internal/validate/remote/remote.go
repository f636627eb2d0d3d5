// Package remote implements the validator contract against an external
// validation service speaking the /execute_command wire protocol. The
// remote service validates and simulates; its message is the final
// validation result.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"roverd/internal/command"
	"roverd/internal/config"
	"roverd/internal/message"
	"roverd/internal/trace"
	"roverd/internal/validate"
)

// Client validates commands over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates a remote validator client from config.
func New(cfg config.RemoteValidatorConfig) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/") + "/execute_command",
		client:   &http.Client{},
	}
}

// Name returns the validator backend identifier.
func (c *Client) Name() string { return "remote" }

// Validate posts the command to the validation service. Transport failures
// and non-2xx statuses are returned as errors; validation rejections come
// back as invalid outcomes.
func (c *Client) Validate(ctx context.Context, name string, params map[string]any) (*validate.Outcome, error) {
	body, err := json.Marshal(message.CommandRequest{
		Command:       name,
		CommandParams: params,
		CorrelationID: trace.FromContext(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := trace.FromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validator request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("validator failed (status %d): %s", resp.StatusCode, respBody)
	}

	var wire message.CommandValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding validation response: %w", err)
	}

	out := fromWire(wire)
	slog.Debug("remote validation complete",
		"correlation_id", trace.FromContext(ctx), "command", name, "valid", out.Valid)
	return out, nil
}

// fromWire maps the wire response onto a validation outcome. The wire form
// does not carry an error code, so unknown-command rejections are recognized
// by their fixed message prefix.
func fromWire(wire message.CommandValidationResponse) *validate.Outcome {
	if wire.Success {
		return &validate.Outcome{
			Valid:   true,
			Command: command.Name(wire.Command),
			Params:  wire.CommandParams,
			Message: wire.Message,
		}
	}

	code := validate.CodeSchemaViolation
	if strings.HasPrefix(wire.Error, "Invalid command.") {
		code = validate.CodeUnknownCommand
	}
	return &validate.Outcome{
		Valid:   false,
		Code:    code,
		Error:   wire.Error,
		Details: wire.Details,
	}
}
