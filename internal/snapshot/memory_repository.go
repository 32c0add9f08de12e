package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory Repository for tests and local runs.
type InMemoryRepository struct {
	mu        sync.RWMutex
	snapshots []Snapshot
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Save stores a copy of s.
func (r *InMemoryRepository) Save(_ context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	cp.Metadata.Legs = append([]Leg(nil), s.Metadata.Legs...)
	r.snapshots = append(r.snapshots, cp)
	return nil
}

// DeleteOlderThan removes snapshots fetched before cutoff.
func (r *InMemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.snapshots[:0]
	var removed int64
	for _, s := range r.snapshots {
		if s.FetchedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.snapshots = kept
	return removed, nil
}

// List returns all stored snapshots ordered by fetch time.
func (r *InMemoryRepository) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FetchedAt.Before(out[j].FetchedAt) })
	return out
}

// Len returns the number of stored snapshots.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}

var _ Repository = (*InMemoryRepository)(nil)
