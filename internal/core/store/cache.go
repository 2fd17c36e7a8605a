package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatepace/gatepace/internal/core"
)

// GetCachedResponse returns a cached response if it is still fresh. A stale
// or absent entry returns nil with no error; the two are indistinguishable
// by contract.
func (s *Store) GetCachedResponse(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, errors.New("fingerprint is required")
	}

	var (
		api        string
		target     string
		statusCode sql.NullInt64
		payload    []byte
		storedAt   int64
		expiresAt  int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT api, target, status_code, payload, stored_at, expires_at
		FROM response_cache
		WHERE fingerprint = ? AND expires_at > ?
	`, fingerprint, time.Now().UTC().Unix())

	if err := row.Scan(&api, &target, &statusCode, &payload, &storedAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached response: %w", err)
	}

	return &core.CacheEntry{
		Fingerprint: fingerprint,
		API:         api,
		Target:      target,
		StatusCode:  int(statusCode.Int64),
		Payload:     payload,
		StoredAt:    time.Unix(storedAt, 0).UTC(),
		ExpiresAt:   time.Unix(expiresAt, 0).UTC(),
	}, nil
}

// SetCachedResponse stores a response with a TTL. Concurrent writes to the
// same fingerprint resolve last-writer-wins.
func (s *Store) SetCachedResponse(ctx context.Context, entry *core.CacheEntry, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || entry == nil {
		return nil
	}

	fingerprint := strings.TrimSpace(entry.Fingerprint)
	if fingerprint == "" {
		return errors.New("fingerprint is required")
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO response_cache (fingerprint, api, target, status_code, payload, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			api = excluded.api,
			target = excluded.target,
			status_code = excluded.status_code,
			payload = excluded.payload,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, fingerprint, entry.API, entry.Target, entry.StatusCode, []byte(entry.Payload), now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}

	return nil
}
