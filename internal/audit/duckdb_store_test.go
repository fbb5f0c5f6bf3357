// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/trackrelay/internal/config"
	"github.com/tomtom215/trackrelay/internal/database"
)

// testDBSemaphore serializes DuckDB test databases.
var testDBSemaphore = make(chan struct{}, 1)

func setupDuckDBStore(t *testing.T) *DuckDBStore {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	store := NewDuckDBStore(db.Conn())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	return store
}

func TestDuckDBStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return setupDuckDBStore(t) })
}

func TestDuckDBStore_CreateTableIdempotent(t *testing.T) {
	store := setupDuckDBStore(t)
	if err := store.CreateTable(context.Background()); err != nil {
		t.Errorf("second CreateTable() error = %v", err)
	}
}

func TestDuckDBStore_EmptyReasonIsNull(t *testing.T) {
	store := setupDuckDBStore(t)
	ctx := context.Background()

	event := sampleEvents()[0]
	if err := store.Save(ctx, event); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var nulls int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM session_events WHERE reason IS NULL").Scan(&nulls); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if nulls != 1 {
		t.Errorf("NULL reasons = %d, want 1", nulls)
	}
}

func TestDuckDBStore_NonUTCInput(t *testing.T) {
	store := setupDuckDBStore(t)
	ctx := context.Background()

	event := sampleEvents()[0]
	event.At = baseTime.In(time.FixedZone("UTC+5", 5*3600))
	if err := store.Save(ctx, event); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	events, err := store.Query(ctx, DefaultQueryFilter())
	if err != nil || len(events) != 1 {
		t.Fatalf("Query() = %v, %v", events, err)
	}
	if !events[0].At.Equal(baseTime) {
		t.Errorf("At = %v, want %v", events[0].At, baseTime)
	}
}
