// Command paperlens-api runs the PaperLens web application: login, PDF
// upload and analysis, history and the admin panel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/paperlens-ai/paperlens/internal/analyze"
	"github.com/paperlens-ai/paperlens/internal/auth"
	"github.com/paperlens-ai/paperlens/internal/cache"
	"github.com/paperlens-ai/paperlens/internal/config"
	"github.com/paperlens-ai/paperlens/internal/llm"
	"github.com/paperlens-ai/paperlens/internal/observability"
	"github.com/paperlens-ai/paperlens/internal/pdf"
	"github.com/paperlens-ai/paperlens/internal/server"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Optional: local development keeps SECRET_KEY and API keys in .env.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "paperlens-api",
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server exited")
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	logger.Info().Str("driver", cfg.Database.Driver).Msg("Database ready")

	cacheClient, err := newCacheClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer cacheClient.Close()

	users := storage.NewUserRepository(db)
	analyses := storage.NewAnalysisRepository(db)

	sessions := auth.NewManager(users, auth.Config{
		SessionTTL:       cfg.Auth.SessionTTL,
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		LockoutDuration:  cfg.Auth.LockoutDuration,
	})

	llmClient := llm.NewClient(llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Referer:     cfg.LLM.Referer,
		AppName:     cfg.LLM.AppName,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.RequestTimeout,
		Logger:      logger,
	})

	analyzer := analyze.NewService(
		pdf.NewValidator(cfg.Upload.MaxSizeBytes),
		pdf.NewExtractor(),
		llmClient,
		cacheClient,
		analyses,
		logger,
		analyze.Config{
			MediaDir:          cfg.Upload.MediaDir,
			MaxPromptChars:    cfg.LLM.MaxPromptChars,
			MaxConcurrentJobs: cfg.LLM.MaxConcurrentJobs,
			CacheTTL:          cfg.Cache.TTL,
		},
	)

	srv, err := server.New(cfg, logger, users, analyses, sessions, analyzer)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info().Msg("Shutdown complete")
	return nil
}

func newCacheClient(cfg *config.Config, logger *observability.Logger) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Redis cache connected")
		return client, nil
	}

	logger.Info().Int("max_entries", cfg.Cache.MaxEntries).Msg("In-memory cache enabled")
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}
