package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/api"
	"github.com/arnab-netizen/AICMO-sub004/internal/config"
	"github.com/arnab-netizen/AICMO-sub004/internal/engine"
	"github.com/arnab-netizen/AICMO-sub004/internal/lock"
	"github.com/arnab-netizen/AICMO-sub004/internal/mail"
	"github.com/arnab-netizen/AICMO-sub004/internal/store"
	"github.com/arnab-netizen/AICMO-sub004/internal/worker"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, os.DirFS("migrations")); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	// Collaborators
	sender := mail.NewRelaySender(cfg.Worker.SenderURL, cfg.Worker.SenderSecret)
	inbox := mail.NewHTTPInboxProvider(cfg.Worker.InboxURL)
	notifier := mail.NewWebhookNotifier(cfg.Alert.WebhookURL)

	// Worker components
	limiter := engine.NewSendLimiter(redisStore.Client(), logger)
	breaker := engine.NewCircuitBreaker(redisStore.Client(), logger)
	locker := lock.NewManager(pgStore, cfg.Worker.WorkerID, cfg.Worker.LeaseTTL, logger)

	dispatcher := worker.NewDispatcher(pgStore, pgStore, pgStore, sender, limiter, breaker, cfg.Worker, logger)
	ingestor := worker.NewIngestor(pgStore, inbox, cfg.Worker.InboxProvider, logger)
	followUp := worker.NewFollowUpEngine(pgStore, logger)
	decider := worker.NewDecider(pgStore, cfg.Worker, logger)
	alerts := worker.NewAlertDispatcher(pgStore, notifier, cfg.Alert.Recipients, logger)

	orchestrator := worker.NewOrchestrator(locker, dispatcher, ingestor, followUp, decider, alerts, cfg.Worker, logger)

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		orchestrator.Run(loopCtx)
	}()

	// Operator API
	router := api.NewRouter(pgStore)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("operator API starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	stopLoop()
	select {
	case <-loopDone:
	case <-time.After(30 * time.Second):
		logger.Warn("worker loop did not stop in time")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}
