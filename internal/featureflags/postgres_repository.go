package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL feature flags repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the feature_flags table if missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS feature_flags (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create feature_flags schema: %w", err)
	}
	return nil
}

// GetFlag retrieves a single feature flag by key.
func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	query := `
		SELECT key, value, updated_at
		FROM feature_flags
		WHERE key = $1
	`

	var (
		flag      Flag
		valueJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, key).Scan(&flag.Key, &valueJSON, &flag.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFlagNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(valueJSON, &flag.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", key, err)
	}

	return &flag, nil
}

// GetAllFlags retrieves all feature flags.
func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM feature_flags ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flags := make(map[string]*Flag)
	for rows.Next() {
		var (
			flag      Flag
			valueJSON []byte
		)
		if err := rows.Scan(&flag.Key, &valueJSON, &flag.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(valueJSON, &flag.Value); err != nil {
			return nil, fmt.Errorf("decode flag %s: %w", flag.Key, err)
		}
		flags[flag.Key] = &flag
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return flags, nil
}

// SetFlag creates or updates a feature flag.
func (r *PostgresRepository) SetFlag(ctx context.Context, flag *Flag) error {
	query := `
		INSERT INTO feature_flags (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	valueJSON, err := json.Marshal(flag.Value)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query, flag.Key, valueJSON, time.Now())
	return err
}

// DeleteFlag removes a feature flag by key.
func (r *PostgresRepository) DeleteFlag(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
