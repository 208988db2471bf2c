// Package sqlite implements the kv.Store contract on SQLite using the
// CGO-less modernc driver. Suitable for single-node deployments that
// need durability without an external server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // CGO-less SQLite driver

	"github.com/MayStepanyan/lunchbreakbot/internal/kv"
)

type Store struct {
	db *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv_values (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kv_lists (
			seq   INTEGER PRIMARY KEY AUTOINCREMENT,
			key   TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_lists_key ON kv_lists(key)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_values(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_values WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *Store) Append(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite append %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv_lists(key, value) VALUES(?, ?)`, key, v); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite append %s: %w: %v", key, kv.ErrUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite append %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM kv_lists WHERE key=? ORDER BY seq ASC`, key)
	if err != nil {
		return nil, fmt.Errorf("sqlite list %s: %w: %v", key, kv.ErrUnavailable, err)
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_values WHERE key=?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_lists WHERE key=?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w: %v", key, kv.ErrUnavailable, err)
	}
	return nil
}

// Keys enumerates both key spaces with SQLite's GLOB operator, which
// shares the '*' wildcard semantics of the kv contract.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_values WHERE key GLOB ?
		 UNION
		 SELECT DISTINCT key FROM kv_lists WHERE key GLOB ?`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("sqlite keys %s: %w: %v", pattern, kv.ErrUnavailable, err)
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

func (s *Store) Close() error {
	return s.db.Close()
}
