// Roverd is a robot command orchestration daemon. It turns natural-language
// intents (typed or spoken) into validated, schema-checked robot commands,
// retrying generation once with corrective feedback when validation fails.
//
// Usage:
//
//	roverd [flags]
//	roverd --config /path/to/roverd.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"roverd/internal/config"
	"roverd/internal/generate"
	localgen "roverd/internal/generate/local"
	"roverd/internal/generate/runner"
	"roverd/internal/health"
	"roverd/internal/router"
	"roverd/internal/simulate"
	"roverd/internal/speech/stt"
	"roverd/internal/speech/tts"
	"roverd/internal/transport"
	grpctransport "roverd/internal/transport/grpc"
	httptransport "roverd/internal/transport/http"
	"roverd/internal/validate"
	remoteval "roverd/internal/validate/remote"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/roverd.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("roverd %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("roverd starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	systemPrompt := cfg.Generation.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = generate.SystemPrompt
	}

	// Initialize the generation backend.
	var gen generate.Client
	switch cfg.Generation.Backend {
	case "runner":
		gen = runner.New(cfg.Generation.Runner, systemPrompt)
		slog.Info("using runner generation backend",
			"base_url", cfg.Generation.Runner.BaseURL,
			"model", cfg.Generation.Runner.Model)
	case "local":
		gen = localgen.New(cfg.Generation.Local, systemPrompt)
		slog.Info("using local generation backend",
			"endpoint", cfg.Generation.Local.Endpoint,
			"model", cfg.Generation.Local.Model)
	default:
		slog.Error("unknown generation backend", "backend", cfg.Generation.Backend)
		os.Exit(1)
	}
	defer gen.Close()

	// Initialize the validator. The local validator runs in-process and the
	// router simulates valid commands itself; a remote validator returns a
	// message that already includes the simulated action.
	var (
		val router.Validator
		sim router.Simulator
	)
	switch cfg.Validator.Mode {
	case "local":
		val = validate.Local{}
		sim = simulate.Describe
	case "remote":
		val = remoteval.New(cfg.Validator.Remote)
		slog.Info("using remote validator", "endpoint", cfg.Validator.Remote.Endpoint)
	default:
		slog.Error("unknown validator mode", "mode", cfg.Validator.Mode)
		os.Exit(1)
	}

	opts := router.Options{
		Simulate:          sim,
		GenerationTimeout: cfg.Generation.Timeout,
		ValidationTimeout: cfg.Validator.Timeout,
	}

	// Optional speech adapters.
	if cfg.Speech.STT.Enabled {
		transcriber := stt.New(cfg.Speech.STT)
		defer transcriber.Close()
		opts.Transcriber = transcriber
		slog.Info("speech-to-text enabled", "endpoint", cfg.Speech.STT.Endpoint)
	}
	if cfg.Speech.TTS.Enabled {
		synth := tts.New(cfg.Speech.TTS)
		defer synth.Close()
		opts.Synthesizer = synth
		slog.Info("text-to-speech enabled", "endpoint", cfg.Speech.TTS.Endpoint)
	}

	rtr := router.New(gen, val, opts)

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, gen.Name()))
	}

	if len(transports) == 0 {
		slog.Error("no transports enabled — enable at least one in config")
		os.Exit(1)
	}

	// Start health check server. Readiness also probes the generation
	// backend when it supports health checks.
	var probe health.Probe
	if h, ok := gen.(interface{ Healthy(context.Context) error }); ok {
		probe = h.Healthy
	}
	healthServer := health.New(cfg.Server.HealthPort, probe)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, rtr.Handle); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("roverd ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("roverd stopped")
}
