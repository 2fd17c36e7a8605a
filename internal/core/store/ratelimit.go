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

// LimiterStates loads all persisted limiter snapshots keyed by API name.
func (s *Store) LimiterStates(ctx context.Context) (map[string]core.LimiterState, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT api, consecutive_errors, success_streak, last_call_at
		FROM limiter_state
		ORDER BY api
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch limiter states: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	states := make(map[string]core.LimiterState)
	for rows.Next() {
		var (
			api        string
			errs       int
			streak     int
			lastCallAt sql.NullInt64
		)
		if err := rows.Scan(&api, &errs, &streak, &lastCallAt); err != nil {
			return nil, fmt.Errorf("scan limiter states: %w", err)
		}

		state := core.LimiterState{
			ConsecutiveErrors: errs,
			SuccessStreak:     streak,
		}
		if lastCallAt.Valid {
			value := time.Unix(lastCallAt.Int64, 0).UTC()
			state.LastCallAt = &value
		}
		states[api] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch limiter states: %w", err)
	}

	return states, nil
}

// SaveLimiterStates persists limiter snapshots, one row per API.
func (s *Store) SaveLimiterStates(ctx context.Context, states map[string]core.LimiterState) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for api, state := range states {
		api = strings.TrimSpace(api)
		if api == "" {
			continue
		}

		var lastCallAt sql.NullInt64
		if state.LastCallAt != nil {
			lastCallAt = sql.NullInt64{Int64: state.LastCallAt.UTC().Unix(), Valid: true}
		}

		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO limiter_state (api, consecutive_errors, success_streak, last_call_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(api) DO UPDATE SET
				consecutive_errors = excluded.consecutive_errors,
				success_streak = excluded.success_streak,
				last_call_at = excluded.last_call_at
		`, api, state.ConsecutiveErrors, state.SuccessStreak, lastCallAt)
		if err != nil {
			return fmt.Errorf("store limiter state: %w", err)
		}
	}

	return nil
}

// LimiterQuery selects persisted limiter rows for admin operations.
type LimiterQuery struct {
	All    bool
	API    string
	Prefix string
}

func (q LimiterQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.API) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --api, or --prefix")
}

func (q LimiterQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if api := strings.TrimSpace(q.API); api != "" {
		return "WHERE api = ?", []any{api}, nil
	}
	return "WHERE api LIKE ?", []any{strings.TrimSpace(q.Prefix) + "%"}, nil
}

// LimiterEntry pairs an API name with its persisted state.
type LimiterEntry struct {
	API   string
	State core.LimiterState
}

// ListLimiterStates returns persisted limiter rows matching the query.
func (s *Store) ListLimiterStates(ctx context.Context, q LimiterQuery) ([]LimiterEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT api, consecutive_errors, success_streak, last_call_at
		FROM limiter_state
		%s
		ORDER BY api
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list limiter states: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []LimiterEntry{}
	for rows.Next() {
		var (
			entry      LimiterEntry
			lastCallAt sql.NullInt64
		)
		if err := rows.Scan(&entry.API, &entry.State.ConsecutiveErrors, &entry.State.SuccessStreak, &lastCallAt); err != nil {
			return nil, fmt.Errorf("scan limiter states: %w", err)
		}
		if lastCallAt.Valid {
			value := time.Unix(lastCallAt.Int64, 0).UTC()
			entry.State.LastCallAt = &value
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list limiter states: %w", err)
	}

	return entries, nil
}

// ResetLimiterStates deletes matching limiter rows and reports how many.
func (s *Store) ResetLimiterStates(ctx context.Context, q LimiterQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM limiter_state
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset limiter states: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset limiter states: %w", err)
	}
	return affected, nil
}
