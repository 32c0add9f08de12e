// Package snapshot records price observations produced by searches. Writes
// are best-effort: the search path never waits on or fails because of them.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long snapshots are kept before purging.
const DefaultRetention = 24 * time.Hour

// ErrInvalidSnapshot is returned for snapshots missing required fields.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// RoutePair is the searched origin and destination.
type RoutePair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Leg is a priced segment of a mixed route.
type Leg struct {
	Mode  string `json:"mode"`
	From  string `json:"from"`
	To    string `json:"to"`
	Price int    `json:"price"`
}

// Metadata carries route details that do not fit the flat columns.
type Metadata struct {
	Hub  string  `json:"hub,omitempty"`
	Time float64 `json:"time"`
	Legs []Leg   `json:"legs,omitempty"`
}

// Snapshot is one observed fare for a route option.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	Route     RoutePair `json:"route"`
	Type      string    `json:"type"`
	Price     int       `json:"price"`
	Currency  string    `json:"currency"`
	Demand    string    `json:"demand"`
	Source    string    `json:"source"`
	LatencyMs int64     `json:"latency_ms,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate checks required fields.
func (s *Snapshot) Validate() error {
	switch {
	case s == nil:
		return ErrInvalidSnapshot
	case s.Route.From == "" || s.Route.To == "":
		return errors.Join(ErrInvalidSnapshot, errors.New("route endpoints are required"))
	case s.Type == "":
		return errors.Join(ErrInvalidSnapshot, errors.New("type is required"))
	case s.Price < 0:
		return errors.Join(ErrInvalidSnapshot, errors.New("price must not be negative"))
	}
	return nil
}

// Sink accepts snapshots for storage.
type Sink interface {
	Save(ctx context.Context, s *Snapshot) error
}

// Repository is a Sink that can also purge old data.
type Repository interface {
	Sink

	// DeleteOlderThan removes snapshots fetched before cutoff and returns
	// how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NopSink discards every snapshot.
type NopSink struct{}

// Save implements Sink.
func (NopSink) Save(context.Context, *Snapshot) error { return nil }

var _ Sink = NopSink{}
