package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roverd/internal/config"
	"roverd/internal/trace"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation stripped", "Hello, robot!", "hello robot"},
		{"lowercased", "Robot Rotating 90 Degrees", "robot rotating ninety degrees"},
		{"coordinates spelled out", "Robot navigating to coordinates (5, 7)", "robot navigating to coordinates five seven"},
		{"larger numbers", "repeating 125 time(s)", "repeating one hundred twenty five times"},
		{"collapsed whitespace", "a   b\t c", "a b c"},
		{"empty", "...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestSpellNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "zero"},
		{7, "seven"},
		{13, "thirteen"},
		{20, "twenty"},
		{42, "forty two"},
		{100, "one hundred"},
		{101, "one hundred one"},
		{999, "nine hundred ninety nine"},
		{1000, "one thousand"},
		{22050, "twenty two thousand fifty"},
		{1_000_000, "one million"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, spellNumber(tt.n), "n=%d", tt.n)
	}
}

func TestSynthesize(t *testing.T) {
	wav := []byte("RIFFfakewav")
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/synthesize", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"audio_data":  base64.StdEncoding.EncodeToString(wav),
			"sample_rate": 24000,
		})
	}))
	defer srv.Close()

	c := New(config.TTSConfig{Endpoint: srv.URL})
	ctx := trace.WithCorrelationID(context.Background(), "abc12345")

	res, err := c.Synthesize(ctx, "Robot navigating to coordinates (5, 7)")
	require.NoError(t, err)
	assert.Equal(t, wav, res.Audio)
	assert.Equal(t, "audio/wav", res.ContentType)
	assert.Equal(t, 24000, res.SampleRate)

	// Text is cleaned before it reaches the service.
	assert.Equal(t, "robot navigating to coordinates five seven", gotBody["text"])
	assert.Equal(t, "abc12345", gotBody["correlation_id"])
}

func TestSynthesizeEmptyText(t *testing.T) {
	c := New(config.TTSConfig{Endpoint: "http://unused"})

	_, err := c.Synthesize(context.Background(), "!!!")
	require.Error(t, err)
}

func TestSynthesizeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(config.TTSConfig{Endpoint: srv.URL})
	_, err := c.Synthesize(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
