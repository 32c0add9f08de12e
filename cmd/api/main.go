// Package main provides the entrypoint for the FareFuse API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/api"
	"github.com/farefuse/farefuse/internal/api/middleware"
	"github.com/farefuse/farefuse/internal/auth"
	"github.com/farefuse/farefuse/internal/config"
	"github.com/farefuse/farefuse/internal/corridor"
	"github.com/farefuse/farefuse/internal/database"
	"github.com/farefuse/farefuse/internal/explain"
	"github.com/farefuse/farefuse/internal/featureflags"
	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/internal/oracle"
	"github.com/farefuse/farefuse/internal/oracle/gemini"
	"github.com/farefuse/farefuse/internal/pricing"
	"github.com/farefuse/farefuse/internal/provider/resilience"
	"github.com/farefuse/farefuse/internal/search"
	"github.com/farefuse/farefuse/internal/snapshot"
	"github.com/farefuse/farefuse/internal/suggest"
	"github.com/farefuse/farefuse/internal/telemetry"
	"github.com/farefuse/farefuse/internal/travel"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "farefuse-api"

	// Setup structured logging
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
	if !cfg.IsProduction() {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Environment).
		Msg("starting FareFuse API")

	// Initialize OpenTelemetry
	ctx := context.Background()

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

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Oracle: one Gemini client, instrumented per purpose
	monitor := resilience.NewMonitor()
	var base oracle.TextOracle = oracle.Unavailable{}
	if cfg.Gemini.APIKey != "" {
		base = gemini.NewClient(gemini.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Monitor: monitor,
		})
		log.Info().Str("model", cfg.Gemini.Model).Msg("gemini oracle configured")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - prices, hubs and explanations use fallbacks")
	}

	priceOracle := mustInstrument(log, base, "price")
	suggestOracle := mustInstrument(log, base, "suggest")
	explainOracle := mustInstrument(log, base, "explain")

	// Database is only needed for Postgres-backed snapshots and flags
	var pool *pgxpool.Pool
	if cfg.Snapshot.Sink == config.SinkPostgres || cfg.Database.URL != "" {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Database).Msg("database connected")
	}

	// Snapshot sink
	var sink snapshot.Sink = snapshot.NopSink{}
	switch cfg.Snapshot.Sink {
	case config.SinkPostgres:
		repo := snapshot.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare snapshot table")
		}
		sink = repo
	case config.SinkPubSub:
		publisher, err := snapshot.NewPubSubPublisher(ctx, snapshot.PubSubConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create snapshot publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close snapshot publisher")
			}
		}()
		sink = publisher
	}
	log.Info().Str("sink", cfg.Snapshot.Sink).Msg("snapshot sink initialized")

	// Feature flags
	var ffRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if pool != nil {
		pgFlags := featureflags.NewPostgresRepository(pool)
		if err := pgFlags.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare feature flag table")
		}
		ffRepo = pgFlags
	}
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	// Auth
	var authService *auth.Service
	if cfg.Auth.SigningKey != "" {
		authService = auth.NewService(auth.ServiceConfig{
			JWTService: auth.NewJWTService(auth.JWTConfig{SigningKey: cfg.Auth.SigningKey}),
		})
		log.Info().Msg("guest sessions enabled")
	} else {
		log.Warn().Msg("JWT_SIGNING_KEY not set - auth endpoints are placeholders")
	}

	// Search pipeline
	registry := location.DefaultRegistry()

	modes := pricing.DefaultModes()
	flight := modes[travel.ModeFlight]
	flight.Band = pricing.Range{Min: cfg.Pricing.FlightMin, Max: cfg.Pricing.FlightMax}
	modes[travel.ModeFlight] = flight
	train := modes[travel.ModeTrain]
	train.Band = pricing.Range{Min: cfg.Pricing.TrainMin, Max: cfg.Pricing.TrainMax}
	modes[travel.ModeTrain] = train

	searchService, err := search.NewService(search.ServiceConfig{
		Registry: registry,
		Pricer: pricing.NewService(priceOracle, pricing.ServiceConfig{
			Modes:           modes,
			OracleTimeout:   cfg.Pricing.OracleTimeout,
			SimulateLatency: cfg.Pricing.SimulateLatency,
			Logger:          log,
		}),
		Suggester: suggest.NewSuggester(suggestOracle, suggest.Config{
			Timeout:  cfg.Search.SuggestTimeout,
			CacheTTL: cfg.Search.SuggestCacheTTL,
			Logger:   log,
		}),
		Corridor:  corridor.NewFilter(registry, cfg.Search.CorridorTolerance),
		Estimator: travel.NewEstimator(registry, travel.DefaultEstimatorConfig()),
		Explainer: explain.NewExplainer(explainOracle, explain.Config{
			Timeout:         cfg.Search.ExplainTimeout,
			SavingThreshold: cfg.Search.SavingThreshold,
			Logger:          log,
		}),
		Sink:           sink,
		Flags:          ffService,
		HubConcurrency: cfg.Search.HubConcurrency,
		Logger:         log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize search service")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		Searcher:           searchService,
		Registry:           registry,
		AuthService:        authService,
		FeatureFlagService: ffService,
		Monitor:            monitor,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequireTLS:         cfg.RequireTLS,
		OpsAPIKey:          cfg.OpsAPIKey,
	})

	// Searches fan out to several oracle calls, so the write timeout
	// leaves room for the slowest hub.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := searchService.Flush(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pending price snapshots dropped")
	}

	log.Info().Msg("server stopped")
}

func mustInstrument(log zerolog.Logger, o oracle.TextOracle, purpose string) oracle.TextOracle {
	instrumented, err := oracle.Instrument(o, purpose)
	if err != nil {
		log.Fatal().Err(err).Str("purpose", purpose).Msg("failed to instrument oracle")
	}
	return instrumented
}
