package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS price_snapshots (
		id          UUID PRIMARY KEY,
		route_from  TEXT NOT NULL,
		route_to    TEXT NOT NULL,
		type        TEXT NOT NULL,
		price       INTEGER NOT NULL,
		currency    TEXT NOT NULL DEFAULT 'INR',
		demand      TEXT NOT NULL DEFAULT 'Medium',
		source      TEXT NOT NULL,
		latency_ms  BIGINT,
		metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
		fetched_at  TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS price_snapshots_fetched_at_idx ON price_snapshots (fetched_at);
	CREATE INDEX IF NOT EXISTS price_snapshots_route_idx ON price_snapshots (route_from, route_to, fetched_at DESC);
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the snapshot table and indexes if missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create price_snapshots schema: %w", err)
	}
	return nil
}

// Save inserts a snapshot. Replayed messages with the same ID are ignored.
func (r *PostgresRepository) Save(ctx context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	fetchedAt := s.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := `
		INSERT INTO price_snapshots
			(id, route_from, route_to, type, price, currency, demand, source, latency_ms, metadata, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		id,
		s.Route.From,
		s.Route.To,
		s.Type,
		s.Price,
		s.Currency,
		s.Demand,
		s.Source,
		s.LatencyMs,
		metadata,
		fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// DeleteOlderThan removes snapshots fetched before cutoff.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM price_snapshots WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PostgresRepository)(nil)
