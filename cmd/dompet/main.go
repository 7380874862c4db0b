package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"dompet/internal/auth"
	"dompet/internal/backend"
	"dompet/internal/cli"
	apphttp "dompet/internal/http"
	"dompet/internal/log"
	"dompet/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	txs := services.NewTransactionService(result.Store, result.Store, result.Store, result.Publisher, logger,
		services.TransactionOptions{
			PairMode:       services.PairMode(cfg.PairMode),
			FallbackBudget: cfg.DefaultBudget,
			CacheSize:      cfg.CacheSize,
			CacheTTL:       cfg.CacheTTL,
		})

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:               services.NewAuthService(result.Store, tokens, logger),
		Projects:           services.NewProjectService(result.Store, result.Store, logger),
		Transactions:       txs,
		Budgets:            services.NewBudgetService(result.Store, result.Store, txs, logger),
		Tokens:             tokens,
		Ready:              result.Ready,
		Logger:             logger,
		Currency:           cfg.Currency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting dompet server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"pair_mode", cfg.PairMode,
		"events", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
