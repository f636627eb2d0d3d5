// Package stt defines the interface to the external speech recognizer and a
// client for Whisper-compatible transcription endpoints.
//
// The recognizer is a black-box audio-to-text converter reached over HTTP;
// everything about the model behind it is out of scope here.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"roverd/internal/config"
	"roverd/internal/trace"
)

// Transcriber converts audio bytes to text.
type Transcriber interface {
	// Name returns the backend identifier.
	Name() string

	// Transcribe converts the audio payload to text.
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)

	// Close releases any resources held by the transcriber.
	Close() error
}

// Client transcribes audio through an OpenAI-compatible Whisper endpoint
// (whisper.cpp server, faster-whisper, or the hosted API).
type Client struct {
	endpoint string
	model    string
	language string
	client   *http.Client
}

// New creates a transcription client from config.
func New(cfg config.STTConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		language: cfg.Language,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "whisper" }

// Transcribe uploads the audio as multipart form data and returns the text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio"+extFromContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}

	if c.model != "" {
		_ = writer.WriteField("model", c.model)
	}
	if c.language != "" {
		_ = writer.WriteField("language", c.language)
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if id := trace.FromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	slog.Debug("transcription complete",
		"correlation_id", trace.FromContext(ctx), "text_length", len(result.Text))
	return result.Text, nil
}

// Close is a no-op for the HTTP client.
func (c *Client) Close() error { return nil }

func extFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	default:
		return ".wav"
	}
}
