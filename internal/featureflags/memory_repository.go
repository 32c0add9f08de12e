package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory Repository used when no database is
// configured and in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

// NewInMemoryRepository creates a repository seeded with DefaultFlags.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithFlags(DefaultFlags())
}

// NewInMemoryRepositoryWithFlags creates a repository seeded with flags.
func NewInMemoryRepositoryWithFlags(flags map[string]*Flag) *InMemoryRepository {
	repo := &InMemoryRepository{flags: make(map[string]*Flag, len(flags))}
	for k, v := range flags {
		repo.flags[k] = v.clone()
	}
	return repo
}

// GetFlag retrieves a copy of a single flag.
func (r *InMemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flag, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return flag.clone(), nil
}

// GetAllFlags retrieves copies of all flags.
func (r *InMemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Flag, len(r.flags))
	for k, v := range r.flags {
		result[k] = v.clone()
	}
	return result, nil
}

// SetFlag creates or updates a flag.
func (r *InMemoryRepository) SetFlag(_ context.Context, flag *Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := flag.clone()
	stored.UpdatedAt = time.Now()
	r.flags[flag.Key] = stored
	return nil
}

// DeleteFlag removes a flag.
func (r *InMemoryRepository) DeleteFlag(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.flags, key)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
