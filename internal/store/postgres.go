package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_records (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresKV keeps the key space in one table. SetNX relies on the primary
// key and INSERT ... ON CONFLICT DO NOTHING, never on a prior SELECT.
type PostgresKV struct {
	DB *pgxpool.Pool
}

func NewPostgresKV(pool *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{DB: pool}
}

// EnsureSchema creates the backing table if needed.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.Exec(ctx, kvSchema); err != nil {
		return fmt.Errorf("create kv_records: %w", err)
	}
	return nil
}

func (p *PostgresKV) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	q := `INSERT INTO kv_records (key, value, updated_at) VALUES ($1, $2, now())
	      ON CONFLICT (key) DO NOTHING`
	tag, err := p.DB.Exec(ctx, q, key, value)
	if err != nil {
		return false, fmt.Errorf("kv setnx: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	q := `INSERT INTO kv_records (key, value, updated_at) VALUES ($1, $2, now())
	      ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := p.DB.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func (p *PostgresKV) Replace(ctx context.Context, key string, value []byte) (bool, error) {
	q := `UPDATE kv_records SET value=$2, updated_at=now() WHERE key=$1`
	tag, err := p.DB.Exec(ctx, q, key, value)
	if err != nil {
		return false, fmt.Errorf("kv replace: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresKV) ReplaceIf(ctx context.Context, key string, expected, value []byte) (bool, error) {
	q := `UPDATE kv_records SET value=$3, updated_at=now() WHERE key=$1 AND value=$2`
	tag, err := p.DB.Exec(ctx, q, key, expected, value)
	if err != nil {
		return false, fmt.Errorf("kv replace-if: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := p.DB.QueryRow(ctx, `SELECT value FROM kv_records WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get: %w", err)
	}
	return v, nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) (bool, error) {
	tag, err := p.DB.Exec(ctx, `DELETE FROM kv_records WHERE key=$1`, key)
	if err != nil {
		return false, fmt.Errorf("kv delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresKV) DeleteIf(ctx context.Context, key string, expected []byte) (bool, error) {
	tag, err := p.DB.Exec(ctx, `DELETE FROM kv_records WHERE key=$1 AND value=$2`, key, expected)
	if err != nil {
		return false, fmt.Errorf("kv delete-if: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresKV) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := p.DB.Query(ctx,
		`SELECT key, value FROM kv_records WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("kv scan: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("kv scan row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv scan rows: %w", err)
	}
	return out, nil
}
