package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roverd/internal/config"
	"roverd/internal/generate"
	"roverd/internal/trace"
)

func TestGenerateCommand(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "abc12345", r.Header.Get("X-Correlation-ID"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": `{"response": "On my way.", "command": "move_to", "command_params": {"x": 5, "y": 7}}`,
		})
	}))
	defer srv.Close()

	c := New(config.LocalGenConfig{Endpoint: srv.URL, Model: "llama3"}, generate.SystemPrompt)
	ctx := trace.WithCorrelationID(context.Background(), "abc12345")

	p, err := c.Generate(ctx, "go to 5 7", "")
	require.NoError(t, err)
	require.True(t, p.IsCommand())
	assert.Equal(t, "move_to", p.Command)

	assert.Equal(t, "go to 5 7", gotBody["prompt"])
	assert.Equal(t, "json", gotBody["format"])
	assert.Equal(t, false, gotBody["stream"])
}

func TestGenerateRetryFeedbackAppended(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotPrompt, _ = body["prompt"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": `{"response": "ok", "command": null}`})
	}))
	defer srv.Close()

	c := New(config.LocalGenConfig{Endpoint: srv.URL}, generate.SystemPrompt)
	_, err := c.Generate(context.Background(), "patrol", "Missing required key 'route_id'")

	require.NoError(t, err)
	assert.Equal(t, "patrol\n\nPrevious error: Missing required key 'route_id'", gotPrompt)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(config.LocalGenConfig{Endpoint: srv.URL}, generate.SystemPrompt)
	_, err := c.Generate(context.Background(), "hi", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestGenerateUnparseableOutputDegradesToChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "Sure thing, heading over!"})
	}))
	defer srv.Close()

	c := New(config.LocalGenConfig{Endpoint: srv.URL}, generate.SystemPrompt)
	p, err := c.Generate(context.Background(), "go to the kitchen", "")

	require.NoError(t, err)
	assert.False(t, p.IsCommand())
	assert.Equal(t, generate.FallbackReply, p.Reply)
}
