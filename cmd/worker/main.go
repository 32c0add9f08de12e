// Package main provides the entrypoint for the FareFuse snapshot worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/farefuse/farefuse/internal/api/response"
	"github.com/farefuse/farefuse/internal/config"
	"github.com/farefuse/farefuse/internal/database"
	"github.com/farefuse/farefuse/internal/snapshot"
	"github.com/farefuse/farefuse/internal/telemetry"
	"github.com/farefuse/farefuse/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "farefuse-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Environment).
		Msg("starting FareFuse worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	repo := snapshot.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare snapshot table")
	}

	wcfg := worker.DefaultConfig()
	wcfg.Retention = cfg.Snapshot.Retention

	ingestor := worker.NewIngestor(repo, wcfg, log)
	purgeJob := worker.NewPurgeJob(worker.PurgeJobConfig{
		Purger: repo,
		Config: wcfg,
		Logger: log,
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.PubSub.ProjectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Ingestor:         ingestor,
			Worker:           wcfg,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		g.Go(func() error {
			return handler.Start(gctx)
		})
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - only the retention purge runs")
	}

	g.Go(func() error {
		purgeJob.Start(gctx)
		return nil
	})

	// Health endpoint for the container platform
	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := ingestor.Stats()
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": Version,
			"ingest": map[string]any{
				"received": stats.Received,
				"stored":   stats.Stored,
				"dropped":  stats.Dropped,
				"retried":  stats.Retried,
			},
			"purge": purgeJob.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down worker")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker stopped with error")
		return
	}

	log.Info().Msg("worker stopped")
}
