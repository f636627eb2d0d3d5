package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Run from a temp dir so no stray roverd.yaml is picked up.
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HealthPort)
	assert.True(t, cfg.Transports.HTTP.Enabled)
	assert.Equal(t, "runner", cfg.Generation.Backend)
	assert.Equal(t, 120*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "local", cfg.Validator.Mode)
	assert.Equal(t, 30*time.Second, cfg.Validator.Timeout)
	assert.False(t, cfg.Speech.TTS.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roverd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
generation:
  backend: local
  timeout: 90s
  local:
    endpoint: http://llm:11434/api/generate
    model: llama3.2
validator:
  mode: remote
  remote:
    endpoint: http://robot-validator:8000
transports:
  http:
    port: 9090
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Generation.Backend)
	assert.Equal(t, 90*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "llama3.2", cfg.Generation.Local.Model)
	assert.Equal(t, "remote", cfg.Validator.Mode)
	assert.Equal(t, "http://robot-validator:8000", cfg.Validator.Remote.Endpoint)
	assert.Equal(t, 9090, cfg.Transports.HTTP.Port)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roverd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  backend: quantum\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown generation backend")
}

func TestLoadRejectsRemoteWithoutEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roverd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validator:\n  mode: remote\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validator.remote.endpoint")
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("ROVERD_TEST_SECRET", "s3cret")

	assert.Equal(t, "s3cret", resolveEnvRef("${ROVERD_TEST_SECRET}"))
	assert.Equal(t, "plain", resolveEnvRef("plain"))
	assert.Equal(t, "${UNSET_VAR_XYZ}", resolveEnvRef("${UNSET_VAR_XYZ}"))
}
