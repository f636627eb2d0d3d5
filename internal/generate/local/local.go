// Package local implements the generation client against a self-hosted
// Ollama endpoint using its native generate API.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"roverd/internal/config"
	"roverd/internal/generate"
	"roverd/internal/trace"
)

// Client talks to an Ollama /api/generate endpoint.
type Client struct {
	endpoint     string
	model        string
	systemPrompt string
	client       *http.Client
}

// New creates a local generation client from config.
func New(cfg config.LocalGenConfig, systemPrompt string) *Client {
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        model,
		systemPrompt: systemPrompt,
		client:       &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "local" }

// Generate issues one generation request and parses the reply as a proposal.
func (c *Client) Generate(ctx context.Context, userText, retryFeedback string) (*generate.Proposal, error) {
	logger := slog.With("correlation_id", trace.FromContext(ctx), "backend", c.Name(), "model", c.model)
	if retryFeedback != "" {
		logger.Info("generation retry request", "retry_feedback", retryFeedback)
	} else {
		logger.Info("generation request")
	}

	reqBody := map[string]any{
		"model":  c.model,
		"system": c.systemPrompt,
		"prompt": generate.UserContent(userText, retryFeedback),
		"stream": false,
		"format": "json",
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
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
		return nil, fmt.Errorf("local generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("local generation failed (status %d): %s", resp.StatusCode, respBody)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding generation response: %w", err)
	}

	logger.Debug("generation response received", "content_length", len(out.Response))
	return generate.ParseProposal(out.Response), nil
}

// Healthy probes the endpoint with a minimal generation request.
func (c *Client) Healthy(ctx context.Context) error {
	p, err := c.Generate(ctx, "Hello", "")
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("local generation health check: empty proposal")
	}
	return nil
}

// Close is a no-op for the local client.
func (c *Client) Close() error { return nil }
