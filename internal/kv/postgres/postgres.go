// Package postgres implements the kv.Store contract on PostgreSQL via
// a pgx connection pool, for deployments that already run Postgres and
// want the bot's state in it.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MayStepanyan/lunchbreakbot/internal/kv"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv_values (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kv_lists (
			seq   BIGSERIAL PRIMARY KEY,
			key   TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_lists_key ON kv_lists(key)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_values (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("postgres set %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_values WHERE key = $1`, key).Scan(&v)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres get %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *Store) Append(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, v := range values {
			if _, err := tx.Exec(ctx, `INSERT INTO kv_lists (key, value) VALUES ($1, $2)`, key, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres append %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, key string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT value FROM kv_lists WHERE key = $1 ORDER BY seq ASC`, key)
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_values WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres delete %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_lists WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres delete %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return nil
}

// Keys translates the kv glob pattern to a LIKE pattern: '*' becomes
// '%' and LIKE metacharacters are escaped. Only '*' is supported, per
// the kv contract.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	like := globToLike(pattern)
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM kv_values WHERE key LIKE $1 ESCAPE '\'
		 UNION
		 SELECT DISTINCT key FROM kv_lists WHERE key LIKE $1 ESCAPE '\'`, like)
	if err != nil {
		return nil, fmt.Errorf("postgres keys %s: %w: %v", pattern, kv.ErrUnavailable, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func globToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
