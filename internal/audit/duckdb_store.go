// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/trackrelay/internal/relay"
)

// DuckDBStore implements Store on the relay's DuckDB database.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed event store. Call CreateTable
// before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the session_events table and its indexes if missing.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS session_events_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS session_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('session_events_id_seq'),
			type VARCHAR NOT NULL,
			session_id VARCHAR NOT NULL,
			user_id BIGINT NOT NULL,
			person_id BIGINT NOT NULL,
			video_id BIGINT NOT NULL,
			reason VARCHAR,
			at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_at ON session_events(at)`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_user_id ON session_events(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_session_id ON session_events(session_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts event. Times are stored in UTC.
func (s *DuckDBStore) Save(ctx context.Context, event relay.Event) error {
	var reason *string
	if event.Reason != "" {
		reason = &event.Reason
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_events (type, session_id, user_id, person_id, video_id, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.Type, event.SessionID, event.UserID, event.PersonID, event.VideoID, reason, event.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session event: %w", err)
	}
	return nil
}

// Query returns the newest events matching filter, oldest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]relay.Event, error) {
	conditions, args := buildFilterConditions(filter)

	query := "SELECT type, session_id, user_id, person_id, video_id, reason, at FROM session_events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY at DESC, id DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	var events []relay.Event
	for rows.Next() {
		var (
			event  relay.Event
			reason sql.NullString
		)
		if err := rows.Scan(&event.Type, &event.SessionID, &event.UserID, &event.PersonID, &event.VideoID, &reason, &event.At); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		event.Reason = reason.String
		event.At = event.At.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session events: %w", err)
	}

	reverse(events)
	return events, nil
}

// Delete removes events older than olderThan and reports how many.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM session_events WHERE at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete session events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted session events: %w", err)
	}
	return n, nil
}

func buildFilterConditions(filter QueryFilter) ([]string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.UserID != 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if cond := buildSliceCondition("type", filter.Types, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if filter.Since != nil {
		conditions = append(conditions, "at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if filter.Until != nil {
		conditions = append(conditions, "at <= ?")
		args = append(args, filter.Until.UTC())
	}
	return conditions, args
}

// buildSliceCondition creates a SQL IN condition for a slice of string values.
func buildSliceCondition[T ~string](column string, values []T, args *[]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, string(v))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

func reverse(events []relay.Event) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
