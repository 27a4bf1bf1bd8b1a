package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"mcp-gateway/internal/adapter/api"
	"mcp-gateway/internal/adapter/store"
	"mcp-gateway/internal/config"
	"mcp-gateway/internal/logging"
	"mcp-gateway/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Default().Warn("failed to load .env", "error", err)
	}

	var cfg config.Config
	cmd := &cli.Command{
		Name:  "mcp-gateway",
		Usage: "MCP gateway: rate limiting, context fetching and generation behind one API",
		Flags: config.Flags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, &cfg)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logging.Default().Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.LogLevel, os.Stdout)
	logging.SetDefault(logger)
	ctx = logging.With(ctx, logger)

	if err := cfg.Validate(); err != nil {
		return goerr.Wrap(err, "invalid configuration")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close(logger)

	limiter := store.NewSlidingWindowLimiter(
		int(cfg.RateLimitRequests),
		cfg.RateLimitWindow(),
		store.WithMaxClients(int(cfg.RateLimitMaxClients)),
	)
	go limiter.Run(ctx, cfg.RateLimitSweepInterval)

	// A nil *InteractionRecorder must stay a nil interface.
	var recorder usecase.Recorder
	if d.recorder != nil {
		recorder = d.recorder
	}

	orchestrator := usecase.NewOrchestrator(
		usecase.NewContextFetcher(d.contextProvider, int(cfg.MaxContextResults), cfg.ContextTimeout),
		usecase.NewGenerator(d.generator, cfg.GenerationTimeout),
		recorder,
		cfg.ModelName,
		cfg.ContextProvider,
	)

	if cfg.GeneratorBackend == config.GeneratorBackendGemini {
		go d.warmUp(ctx, logger)
	}

	validator, err := api.NewValidator()
	if err != nil {
		return err
	}

	app := api.NewApp(cfg.ServerName)
	handler := api.NewHandler(orchestrator, limiter, d.recorder, validator, api.ServerInfo{
		Name:            cfg.ServerName,
		Version:         cfg.ServerVersion,
		Description:     cfg.ServerDescription,
		ModelName:       cfg.ModelName,
		ModelVersion:    cfg.ModelVersion,
		ContextProvider: cfg.ContextProvider,
	})
	api.SetupRouter(app, handler, limiter, cfg.APIPrefix, os.Stdout)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp gateway running",
			"port", cfg.Port,
			"prefix", cfg.APIPrefix,
			"context_backend", cfg.ContextBackend,
			"generator_backend", cfg.GeneratorBackend,
			"stores", cfg.Stores(),
		)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "http server failed")
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if d.recorder != nil {
		if err := d.recorder.Close(shutdownCtx); err != nil {
			logger.Error("interaction recorder did not drain", "error", err)
		}
		stats := d.recorder.Stats()
		logger.Info("interaction recorder closed", "saved", stats.Saved, "failed", stats.Failed, "dropped", stats.Dropped)
	}
	return nil
}
