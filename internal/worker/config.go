// Package worker runs the background side of the snapshot pipeline: it
// consumes price snapshots published by the API and stores them, and it
// purges snapshots past their retention window.
package worker

import (
	"time"

	"github.com/farefuse/farefuse/internal/snapshot"
)

// Config holds configuration for the worker jobs.
type Config struct {
	// MaxOutstandingMessages bounds unacknowledged messages held at once.
	// Default: 10
	MaxOutstandingMessages int

	// MaxExtension is how long a message's ack deadline may be extended.
	// Default: 10 minutes
	MaxExtension time.Duration

	// SaveTimeout bounds a single snapshot write.
	// Default: 10 seconds
	SaveTimeout time.Duration

	// Retention is how long snapshots are kept.
	// Default: snapshot.DefaultRetention (24h)
	Retention time.Duration

	// PurgeInterval is the period of the retention purge.
	// Default: 1 hour
	PurgeInterval time.Duration

	// PurgeTimeout bounds a single purge run.
	// Default: 1 minute
	PurgeTimeout time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		MaxOutstandingMessages: 10,
		MaxExtension:           10 * time.Minute,
		SaveTimeout:            10 * time.Second,
		Retention:              snapshot.DefaultRetention,
		PurgeInterval:          time.Hour,
		PurgeTimeout:           time.Minute,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxOutstandingMessages <= 0 {
		c.MaxOutstandingMessages = d.MaxOutstandingMessages
	}
	if c.MaxExtension <= 0 {
		c.MaxExtension = d.MaxExtension
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = d.SaveTimeout
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = d.PurgeInterval
	}
	if c.PurgeTimeout <= 0 {
		c.PurgeTimeout = d.PurgeTimeout
	}
	return c
}
