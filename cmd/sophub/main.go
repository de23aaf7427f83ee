package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/opsfloor/sophub/pkg/ai"
	"github.com/opsfloor/sophub/pkg/api"
	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/config"
	"github.com/opsfloor/sophub/pkg/db"
	"github.com/opsfloor/sophub/pkg/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(ctx, conn); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	aiClient := ai.NewClient(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel, cfg.AI.RequestTimeout)
	if !aiClient.Configured() {
		logger.Warn("SOPHUB_GEMINI_API_KEY not set; AI assist endpoints will reject requests")
	}

	server := api.NewServer(conn, issuer, aiClient, logger)

	var registry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		server.WithMetrics(observability.NewMetrics(registry))
		if err := server.RefreshGauges(ctx); err != nil {
			logger.WithError(err).Warn("Failed to refresh gauges")
		}
	}

	server.StartRateLimitCleanup(ctx)

	// Periodic sweep picks up suggestions whose immediate summarization was
	// missed (crash, restart, or a backlog from before the key was set).
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.AI.SummarizeSchedule, func() {
		server.Worker().Sweep(ctx)
	}); err != nil {
		logger.WithError(err).Error("Failed to schedule suggestion sweep")
		os.Exit(1)
	}
	if registry != nil {
		if _, err := scheduler.AddFunc("@every 1m", func() {
			if err := server.RefreshGauges(ctx); err != nil {
				logger.WithError(err).Warn("Failed to refresh gauges")
			}
		}); err != nil {
			logger.WithError(err).Error("Failed to schedule gauge refresh")
			os.Exit(1)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", server.HealthHandler())
	if registry != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("Starting SOP hub API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health/metrics server")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("API server shutdown failed")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
