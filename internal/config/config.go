// Package config handles loading and validating the roverd configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the roverd daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Generation GenerationConfig `mapstructure:"generation"`
	Validator  ValidatorConfig  `mapstructure:"validator"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GenerationConfig selects and configures the model backend.
type GenerationConfig struct {
	Backend string `mapstructure:"backend"` // "runner" or "local"

	// Timeout bounds each model call. The model is the dominant latency
	// source, so this is the long per-call timeout of the pipeline.
	Timeout time.Duration `mapstructure:"timeout"`

	// SystemPrompt overrides the built-in instruction set when non-empty.
	SystemPrompt string `mapstructure:"system_prompt"`

	Runner RunnerConfig   `mapstructure:"runner"`
	Local  LocalGenConfig `mapstructure:"local"`
}

// RunnerConfig holds settings for an OpenAI-compatible model runtime
// (Docker Model Runner, llama.cpp server, vLLM, or the hosted API).
type RunnerConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// LocalGenConfig holds settings for an Ollama generate endpoint.
type LocalGenConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// ValidatorConfig selects the validation backend.
type ValidatorConfig struct {
	Mode string `mapstructure:"mode"` // "local" or "remote"

	// Timeout bounds each validation call. Validation does no model work,
	// so this is the short per-call timeout of the pipeline.
	Timeout time.Duration `mapstructure:"timeout"`

	Remote RemoteValidatorConfig `mapstructure:"remote"`
}

// RemoteValidatorConfig holds settings for an external validation service.
type RemoteValidatorConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// SpeechConfig configures the external speech collaborators.
type SpeechConfig struct {
	STT STTConfig `mapstructure:"stt"`
	TTS TTSConfig `mapstructure:"tts"`
}

// STTConfig holds settings for the Whisper-compatible transcription service.
type STTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"` // ISO-639-1 (e.g. "en")
}

// TTSConfig holds settings for the speech synthesis service.
type TTSConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Endpoint         string `mapstructure:"endpoint"`
	VoiceDescription string `mapstructure:"voice_description"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and
// defaults. If configFile is non-empty it is used directly; otherwise the
// standard search order applies: ./roverd.yaml, ./configs/roverd.yaml,
// /etc/roverd/roverd.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("generation.backend", "runner")
	v.SetDefault("generation.timeout", "120s")
	v.SetDefault("generation.runner.base_url", "http://localhost:11434/v1")
	v.SetDefault("generation.runner.model", "gemma-270m-finetuned")
	v.SetDefault("generation.runner.max_tokens", 512)
	v.SetDefault("generation.runner.temperature", 0.1)
	v.SetDefault("generation.local.endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("generation.local.model", "llama3")
	v.SetDefault("validator.mode", "local")
	v.SetDefault("validator.timeout", "30s")
	v.SetDefault("speech.stt.enabled", false)
	v.SetDefault("speech.stt.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("speech.stt.language", "en")
	v.SetDefault("speech.tts.enabled", false)
	v.SetDefault("speech.tts.endpoint", "http://localhost:8003")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("roverd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/roverd")
	}

	// Environment variables: ROVERD_SERVER_HEALTH_PORT, ROVERD_GENERATION_BACKEND, etc.
	v.SetEnvPrefix("ROVERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Generation.Runner.APIKey = resolveEnvRef(cfg.Generation.Runner.APIKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the daemon cannot start with.
func (c *Config) validate() error {
	switch c.Generation.Backend {
	case "runner", "local":
	default:
		return fmt.Errorf("unknown generation backend %q (want runner or local)", c.Generation.Backend)
	}
	switch c.Validator.Mode {
	case "local":
	case "remote":
		if c.Validator.Remote.Endpoint == "" {
			return fmt.Errorf("validator.mode is remote but validator.remote.endpoint is empty")
		}
	default:
		return fmt.Errorf("unknown validator mode %q (want local or remote)", c.Validator.Mode)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
