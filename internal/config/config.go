// Package config loads service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/farefuse/farefuse/internal/database"
)

// Snapshot sink kinds.
const (
	SinkPostgres = "postgres"
	SinkPubSub   = "pubsub"
	SinkNone     = "none"
)

// Config is the full service configuration.
type Config struct {
	Port        string
	Environment string

	Telemetry TelemetryConfig
	Gemini    GeminiConfig
	Pricing   PricingConfig
	Search    SearchConfig
	Snapshot  SnapshotConfig
	PubSub    PubSubConfig
	Auth      AuthConfig
	Database  database.Config

	CORSAllowedOrigins []string
	RequireTLS         bool

	// OpsAPIKey guards POST /api/ops/flags/invalidate.
	OpsAPIKey string
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// GeminiConfig configures the generative-text oracle.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// PricingConfig configures fare bands and the pricing oracle.
type PricingConfig struct {
	SimulateLatency bool
	FlightMin       int
	FlightMax       int
	TrainMin        int
	TrainMax        int
	OracleTimeout   time.Duration
}

// SearchConfig configures hub discovery and ranking.
type SearchConfig struct {
	SuggestTimeout    time.Duration
	ExplainTimeout    time.Duration
	SuggestCacheTTL   time.Duration
	CorridorTolerance float64
	SavingThreshold   int
	HubConcurrency    int
}

// SnapshotConfig configures price snapshot persistence.
type SnapshotConfig struct {
	Sink      string
	Retention time.Duration
}

// PubSubConfig configures the snapshot topic and subscription.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	Subscription string
}

// AuthConfig configures guest tokens.
type AuthConfig struct {
	SigningKey string
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables. Unparseable values
// are reported together; the returned Config then holds defaults for them.
func FromEnv() (Config, error) {
	p := &parser{}

	cfg := Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		Telemetry: TelemetryConfig{
			Enabled:      p.bool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  p.float("OTEL_SAMPLE_RATIO", 1),
		},
		Gemini: GeminiConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		},
		Pricing: PricingConfig{
			SimulateLatency: p.bool("PRICING_SIMULATE_LATENCY", true),
			FlightMin:       p.int("FLIGHT_PRICE_MIN", 4500),
			FlightMax:       p.int("FLIGHT_PRICE_MAX", 6500),
			TrainMin:        p.int("TRAIN_PRICE_MIN", 1200),
			TrainMax:        p.int("TRAIN_PRICE_MAX", 3200),
			OracleTimeout:   p.duration("ORACLE_PRICE_TIMEOUT", 5*time.Second),
		},
		Search: SearchConfig{
			SuggestTimeout:    p.duration("ORACLE_SUGGEST_TIMEOUT", 5*time.Second),
			ExplainTimeout:    p.duration("ORACLE_EXPLAIN_TIMEOUT", 3*time.Second),
			SuggestCacheTTL:   p.duration("SUGGEST_CACHE_TTL", 6*time.Hour),
			CorridorTolerance: p.float("CORRIDOR_TOLERANCE", 1.5),
			SavingThreshold:   p.int("EXPLAIN_SAVING_THRESHOLD", 500),
			HubConcurrency:    p.int("HUB_CONCURRENCY", 4),
		},
		Snapshot: SnapshotConfig{
			Sink:      strings.ToLower(getEnvOrDefault("SNAPSHOT_SINK", SinkNone)),
			Retention: p.duration("SNAPSHOT_RETENTION", 24*time.Hour),
		},
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Topic:        getEnvOrDefault("PUBSUB_TOPIC", "price-snapshots"),
			Subscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "price-snapshots-worker"),
		},
		Auth: AuthConfig{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
		},
		Database:           database.ConfigFromEnv(),
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RequireTLS:         p.bool("REQUIRE_TLS", false),
		OpsAPIKey:          os.Getenv("OPS_API_KEY"),
	}

	p.check(cfg.Validate())
	return cfg, errors.Join(p.errs...)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error

	if c.Pricing.FlightMin > c.Pricing.FlightMax {
		errs = append(errs, fmt.Errorf("FLIGHT_PRICE_MIN %d exceeds FLIGHT_PRICE_MAX %d", c.Pricing.FlightMin, c.Pricing.FlightMax))
	}
	if c.Pricing.TrainMin > c.Pricing.TrainMax {
		errs = append(errs, fmt.Errorf("TRAIN_PRICE_MIN %d exceeds TRAIN_PRICE_MAX %d", c.Pricing.TrainMin, c.Pricing.TrainMax))
	}
	for _, t := range []struct {
		key string
		d   time.Duration
	}{
		{"ORACLE_PRICE_TIMEOUT", c.Pricing.OracleTimeout},
		{"ORACLE_SUGGEST_TIMEOUT", c.Search.SuggestTimeout},
		{"ORACLE_EXPLAIN_TIMEOUT", c.Search.ExplainTimeout},
	} {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", t.key, t.d))
		}
	}
	if c.Search.CorridorTolerance < 1 {
		errs = append(errs, fmt.Errorf("CORRIDOR_TOLERANCE must be at least 1, got %g", c.Search.CorridorTolerance))
	}

	switch c.Snapshot.Sink {
	case SinkNone, SinkPostgres:
	case SinkPubSub:
		if c.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("PUBSUB_PROJECT_ID is required when SNAPSHOT_SINK=pubsub"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SNAPSHOT_SINK %q", c.Snapshot.Sink))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

type parser struct {
	errs []error
}

func (p *parser) check(err error) {
	if err != nil {
		p.errs = append(p.errs, err)
	}
}

func (p *parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
