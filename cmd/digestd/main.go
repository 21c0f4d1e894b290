// digestd — Slack thread-digest service. Ingests workspace events through
// signed intake, folds them into thread state on per-lane workers, and
// serves personalized digests over HTTP with scheduled DM delivery.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/digestkit/digestd/pkg/api"
	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/database"
	"github.com/digestkit/digestd/pkg/delivery"
	"github.com/digestkit/digestd/pkg/queue"
	"github.com/digestkit/digestd/pkg/services"
	"github.com/digestkit/digestd/pkg/sim"
	"github.com/digestkit/digestd/pkg/store"
	"github.com/digestkit/digestd/pkg/version"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting digestd", "version", version.Full(), "http_port", cfg.HTTPPort)

	ctx := context.Background()

	dbClient, err := database.NewClient(ctx, database.LoadConfigFromEnv())
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database", "error", err)
		}
	}()

	st := store.New(dbClient.GORM())

	// Queue lanes and the pipeline workers that drain them.
	queues := queue.NewManager(cfg.Queue)
	executor := queue.NewPipelineExecutor(st, nil)
	pool := queue.NewPool(queues, cfg.Queue, executor)
	pool.Start(ctx)

	// Domain services.
	ingestService := services.NewIngestService(st, queues, cfg)
	profileService := services.NewProfileService(st, cfg)
	digestService := services.NewDigestService(st, profileService, cfg)
	feedbackService := services.NewFeedbackService(st, cfg)
	scheduleService := services.NewScheduleService(st)

	// Delivery over Slack DMs, driven by the minute scheduler.
	deliverer := delivery.NewService(st, nil)
	scheduler := delivery.NewScheduler(st, digestService, deliverer)
	scheduler.Start(ctx)

	streamer := sim.NewStreamer(ingestService)

	server := api.NewServer(api.Deps{
		Config:    cfg,
		DB:        dbClient,
		Store:     st,
		Queues:    queues,
		Ingest:    ingestService,
		Profiles:  profileService,
		Digests:   digestService,
		Feedback:  feedbackService,
		Schedules: scheduleService,
		Scheduler: scheduler,
		Streamer:  streamer,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("digestd started", "workers_per_lane", cfg.Queue.WorkersPerLane)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// Stop intake sources first, then drain the workers, then close HTTP.
	streamer.Stop()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Queue.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-shutdownCtx.Done():
		slog.Warn("Worker shutdown timeout exceeded")
	}

	httpCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
