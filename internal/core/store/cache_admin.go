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

// CacheQuery selects persisted cache entries for admin operations.
type CacheQuery struct {
	All         bool
	API         string
	ExpiredOnly bool
}

func (q CacheQuery) Validate() error {
	if q.All || q.ExpiredOnly {
		return nil
	}
	if strings.TrimSpace(q.API) != "" {
		return nil
	}
	return errors.New("must specify --all, --api, or --expired")
}

func (q CacheQuery) whereClause(now time.Time) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	clauses := []string{}
	args := []any{}

	if api := strings.TrimSpace(q.API); api != "" {
		clauses = append(clauses, "api = ?")
		args = append(args, api)
	}
	if q.ExpiredOnly {
		clauses = append(clauses, "expires_at <= ?")
		args = append(args, now.Unix())
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

// ListCacheEntries returns persisted cache entries matching the query,
// including stale ones so operators can inspect what prune would remove.
func (s *Store) ListCacheEntries(ctx context.Context, q CacheQuery) ([]core.CacheEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT fingerprint, api, target, status_code, payload, stored_at, expires_at
		FROM response_cache
		%s
		ORDER BY api, target
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []core.CacheEntry{}
	for rows.Next() {
		var (
			entry      core.CacheEntry
			statusCode sql.NullInt64
			payload    []byte
			storedAt   int64
			expiresAt  int64
		)
		if err := rows.Scan(&entry.Fingerprint, &entry.API, &entry.Target, &statusCode, &payload, &storedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan cache entries: %w", err)
		}
		entry.StatusCode = int(statusCode.Int64)
		entry.Payload = payload
		entry.StoredAt = time.Unix(storedAt, 0).UTC()
		entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	return entries, nil
}

// CountCacheEntries counts entries the query matches.
func (s *Store) CountCacheEntries(ctx context.Context, q CacheQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause(time.Now().UTC())
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM response_cache
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

// DeleteCacheEntries removes matching entries and reports how many.
func (s *Store) DeleteCacheEntries(ctx context.Context, q CacheQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause(time.Now().UTC())
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM response_cache
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}
	return affected, nil
}
