package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roverd/internal/message"
	"roverd/internal/router"
	"roverd/internal/transport"
)

func postJSON(t *testing.T, mux *stdhttp.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(stdhttp.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestProcessSuccess(t *testing.T) {
	var gotCorrID string
	handler := transport.Handler(func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
		gotCorrID = req.CorrelationID
		return &message.ProcessResponse{Response: "On my way!"}, nil
	})

	tr := New(0, "runner")
	rec := postJSON(t, tr.mux(handler), "/process", message.ProcessRequest{UserInput: "go to the kitchen"})

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, rec.Header().Get("X-Correlation-ID"), gotCorrID)

	var resp message.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "On my way!", resp.Response)
}

func TestProcessCallerCorrelationIDEchoed(t *testing.T) {
	handler := transport.Handler(func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
		return &message.ProcessResponse{Response: "ok"}, nil
	})

	tr := New(0, "runner")
	mux := tr.mux(handler)

	req := httptest.NewRequest(stdhttp.MethodPost, "/process", strings.NewReader(`{"user_input":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", "caller-42")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "caller-42", rec.Header().Get("X-Correlation-ID"))
}

func TestProcessNoInputIsBadRequest(t *testing.T) {
	handler := transport.Handler(func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
		return nil, router.ErrNoInput
	})

	tr := New(0, "runner")
	rec := postJSON(t, tr.mux(handler), "/process", message.ProcessRequest{})

	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestProcessUpstreamFailureIsServiceUnavailable(t *testing.T) {
	handler := transport.Handler(func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
		return nil, &router.UpstreamError{Op: "generation", Err: errors.New("connection refused")}
	})

	tr := New(0, "runner")
	rec := postJSON(t, tr.mux(handler), "/process", message.ProcessRequest{UserInput: "spin around"})

	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "generation unavailable")
}

func TestProcessInvalidJSON(t *testing.T) {
	handler := transport.Handler(func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	})

	tr := New(0, "runner")
	mux := tr.mux(handler)

	req := httptest.NewRequest(stdhttp.MethodPost, "/process", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestProcessRawAudioBody(t *testing.T) {
	var got *message.ProcessRequest
	handler := transport.Handler(func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
		got = req
		return &message.ProcessResponse{Response: "ok", Transcript: "hello robot"}, nil
	})

	tr := New(0, "runner")
	mux := tr.mux(handler)

	req := httptest.NewRequest(stdhttp.MethodPost, "/process", bytes.NewReader([]byte("RIFFfake-wav-bytes")))
	req.Header.Set("Content-Type", "audio/wav")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.True(t, got.HasAudio())
	assert.Equal(t, "audio/wav", got.ContentType)
	audio, err := got.AudioBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFfake-wav-bytes"), audio)
}

func TestExecuteCommandValid(t *testing.T) {
	tr := New(0, "runner")
	rec := postJSON(t, tr.mux(nil), "/execute_command", message.CommandRequest{
		Command:       "move_to",
		CommandParams: map[string]any{"x": 5, "y": 7},
	})

	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var resp message.CommandValidationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "move_to", resp.Command)
	assert.Contains(t, resp.Message, "Received and validated command: 'move_to'")
	assert.Contains(t, resp.Message, "Robot navigating to coordinates (5, 7)")
}

func TestExecuteCommandUnknown(t *testing.T) {
	tr := New(0, "runner")
	rec := postJSON(t, tr.mux(nil), "/execute_command", message.CommandRequest{
		Command: "fly_to",
	})

	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var resp message.CommandValidationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid command. Reason: Unknown command name 'fly_to'", resp.Error)
	assert.Equal(t, "Valid commands are: move_to, rotate, start_patrol", resp.Details)
}

func TestExecuteCommandSchemaViolation(t *testing.T) {
	tr := New(0, "runner")
	rec := postJSON(t, tr.mux(nil), "/execute_command", message.CommandRequest{
		Command:       "rotate",
		CommandParams: map[string]any{"angle": 90, "direction": "left"},
	})

	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var resp message.CommandValidationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Invalid params for 'rotate'")
	assert.Contains(t, resp.Error, "'direction'")
}

func TestStatsCounters(t *testing.T) {
	handler := transport.Handler(func(ctx context.Context, req *message.ProcessRequest) (*message.ProcessResponse, error) {
		result := "validated"
		cmd := "move_to"
		return &message.ProcessResponse{Command: &cmd, ValidationResult: &result}, nil
	})

	tr := New(0, "local")
	mux := tr.mux(handler)

	postJSON(t, mux, "/process", message.ProcessRequest{UserInput: "go"})
	postJSON(t, mux, "/process", message.ProcessRequest{UserInput: "go"})

	req := httptest.NewRequest(stdhttp.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "local", stats.Backend)
	assert.Equal(t, int64(2), stats.RequestsTotal)
	assert.Equal(t, int64(2), stats.CommandsValidated)
	assert.Equal(t, int64(0), stats.RequestsFailed)
}
