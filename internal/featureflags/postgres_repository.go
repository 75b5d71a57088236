package featureflags

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores overrides in the feature_flags table with the
// value as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Flag, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM feature_flags ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing feature flags: %w", err)
	}

	flags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Flag, error) {
		var (
			f   Flag
			raw []byte
		)
		if err := row.Scan(&f.Key, &raw, &f.UpdatedAt); err != nil {
			return Flag{}, err
		}
		if err := json.Unmarshal(raw, &f.Value); err != nil {
			return Flag{}, fmt.Errorf("decoding flag %s: %w", f.Key, err)
		}
		return f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing feature flags: %w", err)
	}
	return flags, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, flags []Flag) error {
	batch := &pgx.Batch{}
	now := time.Now()
	for _, f := range flags {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encoding flag %s: %w", f.Key, err)
		}
		batch.Queue(`
			INSERT INTO feature_flags (key, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at`, f.Key, raw, now)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting feature flags: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting flag %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}
