// Package suggest asks the generative-text oracle for intermediate hub
// cities between two endpoints, repairs what comes back, and falls back to
// a static table when the oracle has nothing usable.
package suggest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/cache"
	"github.com/farefuse/farefuse/internal/oracle"
)

// Source tells where a suggestion list came from.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

// Result is a suggestion list with its provenance.
type Result struct {
	Cities []string
	Source Source
}

// Config holds configuration for the suggester.
type Config struct {
	// Timeout bounds the oracle call. Default: 5s.
	Timeout time.Duration

	// CacheTTL is how long a pair's suggestions are reused. Default: 6h.
	CacheTTL time.Duration

	// Cache stores suggestions. Default: a fresh cache.NewStrings().
	Cache *cache.Cache[[]string]

	// Fallbacks is the static hub table. Default: DefaultFallbacks().
	Fallbacks map[string][]string

	// DefaultHubs is the last-resort list. Default: DefaultHubs.
	DefaultHubs []string

	Logger zerolog.Logger
}

// Suggester produces candidate hubs for a city pair. Lookup never fails.
type Suggester struct {
	oracle      oracle.TextOracle
	cache       *cache.Cache[[]string]
	fallbacks   map[string][]string
	defaultHubs []string
	config      Config
	logger      zerolog.Logger
}

// NewSuggester creates a suggester backed by o.
func NewSuggester(o oracle.TextOracle, cfg Config) *Suggester {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 6 * time.Hour
	}

	c := cfg.Cache
	if c == nil {
		c = cache.NewStrings()
	}

	table := cfg.Fallbacks
	if table == nil {
		table = DefaultFallbacks()
	}
	fallbacks := make(map[string][]string, len(table))
	for k, v := range table {
		fallbacks[strings.ToLower(k)] = slices.Clone(v)
	}

	defaults := cfg.DefaultHubs
	if len(defaults) == 0 {
		defaults = DefaultHubs
	}

	return &Suggester{
		oracle:      o,
		cache:       c,
		fallbacks:   fallbacks,
		defaultHubs: slices.Clone(defaults),
		config:      cfg,
		logger:      cfg.Logger,
	}
}

// Suggest returns candidate hub cities for from→to.
func (s *Suggester) Suggest(ctx context.Context, from, to string) []string {
	return s.Discover(ctx, from, to).Cities
}

// Discover is Suggest with provenance. Results, including fallbacks, are
// cached per ordered pair.
func (s *Suggester) Discover(ctx context.Context, from, to string) Result {
	key := CacheKey(from, to)
	if cached, ok := s.cache.Get(key); ok {
		return Result{Cities: cached, Source: SourceCache}
	}

	result := Result{Cities: s.ask(ctx, from, to), Source: SourceOracle}
	if len(result.Cities) == 0 {
		result = Result{Cities: s.Fallback(from, to), Source: SourceFallback}
	}

	// An abandoned request must not poison the cache with a fallback.
	if ctx.Err() == nil || result.Source == SourceOracle {
		s.cache.Set(key, result.Cities, s.config.CacheTTL)
	}

	s.logger.Debug().
		Str("from", from).
		Str("to", to).
		Str("source", string(result.Source)).
		Strs("cities", result.Cities).
		Msg("hub suggestions")

	return result
}

func (s *Suggester) ask(ctx context.Context, from, to string) []string {
	text, err := oracle.Generate(ctx, s.oracle, prompt(from, to), s.config.Timeout)
	if err != nil {
		s.logger.Debug().Err(err).Str("from", from).Str("to", to).Msg("suggest oracle unavailable")
		return nil
	}
	return Repair(oracle.ExtractStringArray(text), from, to)
}

// Fallback returns the static hubs for the pair: the "From-To" entry, then
// the "To-From" entry, then the default hub list minus the endpoints.
func (s *Suggester) Fallback(from, to string) []string {
	if hubs, ok := s.fallbacks[strings.ToLower(from+"-"+to)]; ok {
		return slices.Clone(hubs)
	}
	if hubs, ok := s.fallbacks[strings.ToLower(to+"-"+from)]; ok {
		return slices.Clone(hubs)
	}
	return Repair(s.defaultHubs, from, to)
}

// Repair trims names, drops empties and the endpoints themselves, and
// removes case-insensitive duplicates while keeping first occurrences.
func Repair(cities []string, from, to string) []string {
	seen := map[string]struct{}{
		fold(from): {},
		fold(to):   {},
	}

	out := make([]string, 0, len(cities))
	for _, c := range cities {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		k := fold(name)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, name)
	}
	return out
}

// CacheKey returns the cache key for an ordered pair.
func CacheKey(from, to string) string {
	return fmt.Sprintf("cities:%s:%s", from, to)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func prompt(from, to string) string {
	return fmt.Sprintf(`List intermediate cities between %s and %s for train/flight connections.
Output: JSON array only, no text.
Example: ["Delhi","Jaipur"]`, from, to)
}
