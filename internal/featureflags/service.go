package featureflags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository   Repository
	Logger       zerolog.Logger
	CacheTTL     time.Duration // How long to cache flags in memory
	DefaultFlags map[string]*Flag
}

// Service evaluates flags with a short-lived cache and falls back to
// defaults when the repository is unavailable. A nil *Service reports
// every flag at its default.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag

	mu    sync.RWMutex
	cache map[string]cachedFlag
}

type cachedFlag struct {
	flag    *Flag
	expires time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}

	defaultFlags := cfg.DefaultFlags
	if defaultFlags == nil {
		defaultFlags = DefaultFlags()
	}

	return &Service{
		repo:         cfg.Repository,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: defaultFlags,
		cache:        make(map[string]cachedFlag),
	}
}

// GetFlag retrieves a flag by key: cache, then repository, then defaults.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if s == nil {
		return DefaultFlags()[key]
	}

	if flag, ok := s.getCached(key); ok {
		return flag
	}

	if s.repo != nil {
		flag, err := s.repo.GetFlag(ctx, key)
		if err == nil {
			s.setCached(key, flag)
			return flag
		}
		if !errors.Is(err, ErrFlagNotFound) {
			s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
		}
	}

	return s.defaultFlags[key].clone()
}

// GetAllFlags returns repository flags merged over defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	if s == nil {
		return DefaultFlags()
	}

	result := make(map[string]*Flag, len(s.defaultFlags))
	for k, v := range s.defaultFlags {
		result[k] = v.clone()
	}
	if s.repo == nil {
		return result
	}

	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}

	for k, v := range flags {
		result[k] = v
		s.setCached(k, v)
	}
	return result
}

// SetFlag updates a flag and refreshes its cache entry.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	if s.repo == nil {
		return errors.New("feature flag repository not configured")
	}
	flag.UpdatedAt = time.Now()
	if err := s.repo.SetFlag(ctx, flag); err != nil {
		return err
	}
	s.setCached(flag.Key, flag)
	return nil
}

// InvalidateCache clears cached flags.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cachedFlag)
}

// IsEnabled returns true if the flag with the given key is truthy.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

func (s *Service) getCached(key string) (*Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cache[key]
	if !ok || time.Now().After(c.expires) {
		return nil, false
	}
	return c.flag, true
}

func (s *Service) setCached(key string, flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cachedFlag{flag: flag, expires: time.Now().Add(s.cacheTTL)}
}

// Convenience methods for well-known flags.

// PriceLoggingDisabled reports whether searches should skip snapshots.
func (s *Service) PriceLoggingDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisablePriceLogging)
}

// MixedRoutesDisabled reports whether hub discovery is switched off.
func (s *Service) MixedRoutesDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableMixedRoutes)
}

// ExplanationsDisabled reports whether route explanations are switched off.
func (s *Service) ExplanationsDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableRouteExplanations)
}

// MaxHubs returns the per-search hub cap, 0 for none.
func (s *Service) MaxHubs(ctx context.Context) int {
	n := s.GetFlag(ctx, FlagMaxHubs).IntValue(0)
	if n < 0 {
		return 0
	}
	return n
}
