package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/snapshot"
)

// Disposition tells the transport what to do with a message.
type Disposition int

const (
	// Ack removes the message: it was stored, or it can never be stored.
	Ack Disposition = iota
	// Nack asks for redelivery after a transient failure.
	Nack
)

func (d Disposition) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// IngestStats counts processed messages.
type IngestStats struct {
	Received int64
	Stored   int64
	Dropped  int64
	Retried  int64

	LastStoredAt time.Time
}

// Ingestor decodes published snapshots and writes them to a sink.
type Ingestor struct {
	sink        snapshot.Sink
	saveTimeout time.Duration
	logger      zerolog.Logger

	mu    sync.Mutex
	stats IngestStats
}

// NewIngestor creates an ingestor writing to sink.
func NewIngestor(sink snapshot.Sink, cfg Config, logger zerolog.Logger) *Ingestor {
	cfg = cfg.withDefaults()
	return &Ingestor{
		sink:        sink,
		saveTimeout: cfg.SaveTimeout,
		logger:      logger,
	}
}

// Process handles one message body. Malformed or invalid snapshots are
// dropped; storage errors are retried unless the caller has gone away.
func (i *Ingestor) Process(ctx context.Context, data []byte) Disposition {
	i.count(func(s *IngestStats) { s.Received++ })

	snap, err := snapshot.Decode(data)
	if err != nil {
		i.logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed snapshot")
		i.count(func(s *IngestStats) { s.Dropped++ })
		return Ack
	}

	saveCtx, cancel := context.WithTimeout(ctx, i.saveTimeout)
	defer cancel()

	if err := i.sink.Save(saveCtx, snap); err != nil {
		if errors.Is(err, snapshot.ErrInvalidSnapshot) {
			i.logger.Warn().Err(err).Str("snapshot_id", snap.ID.String()).Msg("dropping invalid snapshot")
			i.count(func(s *IngestStats) { s.Dropped++ })
			return Ack
		}

		i.logger.Error().Err(err).Str("snapshot_id", snap.ID.String()).Msg("failed to store snapshot")
		i.count(func(s *IngestStats) { s.Retried++ })
		return Nack
	}

	i.logger.Debug().
		Str("snapshot_id", snap.ID.String()).
		Str("type", snap.Type).
		Str("from", snap.Route.From).
		Str("to", snap.Route.To).
		Int("price", snap.Price).
		Msg("stored snapshot")

	i.count(func(s *IngestStats) {
		s.Stored++
		s.LastStoredAt = time.Now()
	})
	return Ack
}

// Stats returns a copy of the counters.
func (i *Ingestor) Stats() IngestStats {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stats
}

func (i *Ingestor) count(update func(*IngestStats)) {
	i.mu.Lock()
	update(&i.stats)
	i.mu.Unlock()
}
