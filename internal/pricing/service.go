package pricing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/oracle"
	"github.com/farefuse/farefuse/internal/travel"
)

// Rand is the randomness source used for fallback fares, jitter and
// simulated latency. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// ServiceConfig holds configuration for the pricing service.
type ServiceConfig struct {
	// Modes maps each supported mode to its pricing parameters.
	// Default: DefaultModes().
	Modes map[travel.Mode]ModeConfig

	// OracleTimeout bounds the headline-price oracle call. Default: 5s.
	OracleTimeout time.Duration

	// SimulateLatency enables the per-mode artificial delay.
	SimulateLatency bool

	// Rand overrides the randomness source. Default: math/rand/v2.
	Rand Rand

	// Now overrides the clock used for demand and timestamps.
	Now func() time.Time

	Logger zerolog.Logger
}

// DefaultModes returns the reference fare bands.
func DefaultModes() map[travel.Mode]ModeConfig {
	return map[travel.Mode]ModeConfig{
		travel.ModeFlight: {
			Band:    Range{Min: 4500, Max: 6500},
			Jitter:  Range{Min: -80, Max: 150},
			Latency: Window{Min: 600 * time.Millisecond, Max: 1200 * time.Millisecond},
			Source:  SourceFlight,
		},
		travel.ModeTrain: {
			Band:    Range{Min: 1200, Max: 3200},
			Jitter:  Range{Min: -50, Max: 100},
			Latency: Window{Min: 400 * time.Millisecond, Max: 900 * time.Millisecond},
			Source:  SourceTrain,
		},
	}
}

// DefaultServiceConfig returns the production defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Modes:           DefaultModes(),
		OracleTimeout:   5 * time.Second,
		SimulateLatency: true,
	}
}

// Service quotes fares for single legs. It is safe for concurrent use if
// the configured Rand is.
type Service struct {
	oracle oracle.TextOracle
	modes  map[travel.Mode]ModeConfig
	config ServiceConfig
	rand   Rand
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a pricing service backed by o.
func NewService(o oracle.TextOracle, cfg ServiceConfig) *Service {
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 5 * time.Second
	}

	modes := make(map[travel.Mode]ModeConfig, len(cfg.Modes))
	source := cfg.Modes
	if len(source) == 0 {
		source = DefaultModes()
	}
	for mode, mc := range source {
		mc.Band = mc.Band.normalized()
		mc.Jitter = mc.Jitter.normalized()
		if mc.Latency.Max < mc.Latency.Min {
			mc.Latency.Min, mc.Latency.Max = mc.Latency.Max, mc.Latency.Min
		}
		modes[mode] = mc
	}

	r := cfg.Rand
	if r == nil {
		r = globalRand{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		oracle: o,
		modes:  modes,
		config: cfg,
		rand:   r,
		now:    now,
		logger: cfg.Logger,
	}
}

// Band returns the fare band for mode.
func (s *Service) Band(mode travel.Mode) (Range, bool) {
	mc, ok := s.modes[mode]
	return mc.Band, ok
}

// Price quotes a single leg. Oracle failures never surface: a timeout,
// error or unparseable answer falls back to a uniform-random fare in the
// band. The only errors are an unknown mode and caller cancellation.
func (s *Service) Price(ctx context.Context, mode travel.Mode, from, to string) (Quote, error) {
	mc, ok := s.modes[mode]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	start := time.Now()

	if s.config.SimulateLatency {
		if err := sleep(ctx, s.between(mc.Latency)); err != nil {
			return Quote{}, err
		}
	}

	now := s.now()
	demand := Demand(now.Hour())

	headline, fallback := s.headline(ctx, mode, mc.Band, demand, now.Hour())
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}

	price := mc.Band.Clamp(headline + s.randomIn(mc.Jitter))

	return Quote{
		Mode:      mode,
		From:      from,
		To:        to,
		Price:     price,
		Source:    mc.Source,
		Demand:    demand,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: now.UTC(),
		Fallback:  fallback,
	}, nil
}

// headline asks the oracle for a fare within band. The second return value
// is true when a random fallback was used instead.
func (s *Service) headline(ctx context.Context, mode travel.Mode, band Range, demand DemandLevel, hour int) (int, bool) {
	text, err := oracle.Generate(ctx, s.oracle, pricePrompt(mode, band, demand, hour), s.config.OracleTimeout)
	if err != nil {
		s.logger.Debug().Err(err).Str("mode", string(mode)).Msg("price oracle unavailable, using random fare")
		return s.randomIn(band), true
	}

	n, ok := oracle.ExtractInt(text)
	if !ok {
		s.logger.Debug().Str("mode", string(mode)).Str("response", truncate(text, 80)).Msg("price oracle returned no number, using random fare")
		return s.randomIn(band), true
	}

	return band.Clamp(n), false
}

func pricePrompt(mode travel.Mode, band Range, demand DemandLevel, hour int) string {
	return fmt.Sprintf(`You are a real-time airline and railway pricing engine.
Generate ONE realistic price (numeric only) for this travel route.

Route Type: %s
Min Historical Price: ₹%d
Max Historical Price: ₹%d
Current Demand: %s (Low/Medium/High)
Time of Day: %d

Return ONLY the price as a number between %d and %d.
Do not include currency symbol, text, or explanation.
Example response: %d`,
		mode, band.Min, band.Max, demand, hour, band.Min, band.Max, (band.Min+band.Max)/2)
}

// randomIn returns a uniform integer in r.
func (s *Service) randomIn(r Range) int {
	return r.Min + s.rand.IntN(r.Max-r.Min+1)
}

func (s *Service) between(w Window) time.Duration {
	span := int((w.Max - w.Min) / time.Millisecond)
	if span <= 0 {
		return w.Min
	}
	return w.Min + time.Duration(s.rand.IntN(span+1))*time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
