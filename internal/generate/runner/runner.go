// Package runner implements the generation client against an
// OpenAI-compatible chat completions endpoint (Docker Model Runner,
// llama.cpp server, vLLM, or the hosted OpenAI API).
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"roverd/internal/config"
	"roverd/internal/generate"
	"roverd/internal/trace"
)

// Client talks to an OpenAI-compatible model runtime.
type Client struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int64
	temperature  float64
}

// New creates a runner client from config. systemPrompt fixes the model's
// reply contract; pass generate.SystemPrompt unless config overrides it.
func New(cfg config.RunnerConfig, systemPrompt string) *Client {
	opts := []option.RequestOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// Self-hosted runtimes ignore the key but the SDK requires one.
	key := cfg.APIKey
	if key == "" {
		key = "unused"
	}
	opts = append(opts, option.WithAPIKey(key))

	client := openai.NewClient(opts...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 512
	}

	return &Client{
		client:       &client,
		model:        cfg.Model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		temperature:  cfg.Temperature,
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "runner" }

// Generate issues one chat completion and parses the reply as a proposal.
// Transport and API failures are returned as errors; unparseable model
// output degrades to a conversational fallback proposal.
func (c *Client) Generate(ctx context.Context, userText, retryFeedback string) (*generate.Proposal, error) {
	logger := slog.With("correlation_id", trace.FromContext(ctx), "backend", c.Name(), "model", c.model)
	if retryFeedback != "" {
		logger.Info("generation retry request", "retry_feedback", retryFeedback)
	} else {
		logger.Info("generation request")
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(generate.UserContent(userText, retryFeedback)),
		},
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
		// Force pure JSON output; the fine-tuned model was trained on it.
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("model runner request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("model runner returned no choices")
	}

	content := completion.Choices[0].Message.Content
	logger.Debug("generation response received", "content_length", len(content))

	return generate.ParseProposal(content), nil
}

// Healthy probes the model runtime with a minimal completion.
func (c *Client) Healthy(ctx context.Context) error {
	_, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Hello"),
		},
		MaxTokens: openai.Int(10),
	})
	if err != nil {
		return fmt.Errorf("model runner health check: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no persistent connections.
func (c *Client) Close() error { return nil }
