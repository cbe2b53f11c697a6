package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLiteStore stores entries in the kv_entries table of a DB.
type SQLiteStore struct {
	db *DB
}

// NewSQLiteStore creates a store on an open database
func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &OpError{Backend: BackendSQLite, Op: "get", Key: key, Err: err}
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &OpError{Backend: BackendSQLite, Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return &OpError{Backend: BackendSQLite, Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Count returns the number of rows in kv_entries
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_entries`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
