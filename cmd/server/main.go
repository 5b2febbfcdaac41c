package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"code-smarty/internal/analysis"
	"code-smarty/internal/api"
	"code-smarty/internal/config"
	"code-smarty/internal/lang"
	"code-smarty/internal/llm"
	"code-smarty/internal/monitor"
	"code-smarty/internal/pipeline"
	"code-smarty/internal/repofetch"
	"code-smarty/internal/sandbox"
	"code-smarty/internal/storage"
	"code-smarty/internal/suggest"
)

func main() {
	// Structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
	} else {
		log.Info().Msg("no config file found, using defaults")
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitor.NewMetrics()

	// Generative backend: the credential is required at startup, not at
	// first use, so a misconfigured deployment fails loudly.
	llmCfg := llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		Host:     cfg.LLM.Host,
		APIKey:   os.Getenv("GEMINI_API_KEY"),
	}
	llmClient, err := llm.New(llmCfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.LLM.Provider).Msg("generative backend init failed")
	}

	// Sandbox executor probes the engine once; a missing engine degrades
	// every execution to the fallback path instead of failing startup.
	executor := sandbox.NewExecutor(ctx, sandbox.Options{
		Preference:       cfg.Sandbox.Backend,
		ContainerdSocket: cfg.Sandbox.ContainerdSocket,
		Namespace:        cfg.Sandbox.Namespace,
		MaxConcurrent:    cfg.Sandbox.MaxConcurrent,
		DefaultTimeout:   cfg.Sandbox.DefaultTimeout,
		Limits: sandbox.ResourceLimits{
			CPUShares: cfg.Sandbox.DefaultLimits.CPUShares,
			MemoryMB:  cfg.Sandbox.DefaultLimits.MemoryMB,
			PidsLimit: cfg.Sandbox.DefaultLimits.PidsLimit,
			DiskMB:    cfg.Sandbox.DefaultLimits.DiskMB,
		},
	})
	executor.OnDegrade = metrics.RecordDegraded
	defer func() {
		if err := executor.Close(); err != nil {
			log.Error().Err(err).Msg("executor close error")
		}
	}()

	detector := lang.NewDetector(llmClient)
	dispatcher := analysis.NewDispatcher(analysis.Config{
		PythonLinter:      cfg.Analyzer.PythonLinter,
		PythonTypeChecker: cfg.Analyzer.PythonTypeChecker,
		CLinter:           cfg.Analyzer.CLinter,
		CCompiler:         cfg.Analyzer.CCompiler,
		CPPCompiler:       cfg.Analyzer.CPPCompiler,
		MemChecker:        cfg.Analyzer.MemChecker,
	})
	synthesizer := suggest.NewSynthesizer(llmClient)
	orch := pipeline.NewOrchestrator(detector, dispatcher, executor, synthesizer, metrics)
	fetcher := repofetch.NewFetcher(cfg.Repo.CloneTimeout)

	// Database is optional — runs without it for development
	var db *storage.DB
	if cfg.Database.DSN != "" {
		db, err = storage.New(ctx, cfg.Database.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, audit logging disabled")
		} else {
			defer db.Close()
		}
	}

	var auditWriter *storage.AuditWriter
	if db != nil {
		auditWriter = storage.NewAuditWriter(db, 10000)
		auditWriter.Start()
		defer auditWriter.Flush(10 * time.Second)
	}

	server := api.NewServer(cfg, orch, fetcher, executor.Available, db, auditWriter, metrics)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		cancel()
	}()

	log.Info().
		Str("addr", cfg.Address()).
		Str("llm_provider", cfg.LLM.Provider).
		Bool("db_enabled", db != nil).
		Bool("engine_available", executor.Available()).
		Msg("server starting")

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}
