package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS response_cache (
		fingerprint TEXT PRIMARY KEY,
		api TEXT NOT NULL,
		target TEXT NOT NULL,
		status_code INTEGER,
		payload BLOB,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_response_cache_expires ON response_cache(expires_at);`,
	`CREATE INDEX IF NOT EXISTS idx_response_cache_api ON response_cache(api);`,
	`CREATE TABLE IF NOT EXISTS limiter_state (
		api TEXT PRIMARY KEY,
		consecutive_errors INTEGER NOT NULL DEFAULT 0,
		success_streak INTEGER NOT NULL DEFAULT 0,
		last_call_at INTEGER
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
