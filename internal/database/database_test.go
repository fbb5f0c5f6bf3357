// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/trackrelay/internal/config"
)

// testDBSemaphore serializes DuckDB test databases; concurrent CGO opens
// can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates a new in-memory test database. The semaphore is held
// until the test completes.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(cfg)
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(60 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 60s")
		return nil
	}
}

func TestNew_InMemory(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if db.Conn() == nil {
		t.Fatal("Conn() returned nil")
	}

	for _, table := range []string{"users", "people", "videos"} {
		var n int
		if err := db.Conn().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}
}

func TestNew_FileDatabaseReopens(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "trackrelay.duckdb")
	cfg := &config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.CreateVideo(context.Background(), newVideo(1)); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Schema creation is idempotent and data survives
	db, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	v, err := db.GetVideo(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetVideo() after reopen error = %v", err)
	}
	if v.Path != "/videos/clip.mp4" {
		t.Errorf("Path = %s", v.Path)
	}
}

func TestEnsureContext(t *testing.T) {
	db := &DB{}

	//nolint:staticcheck // nil context is the case under test
	ctx, cancel := db.ensureContext(nil)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("nil context should get a deadline")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	ctx2, cancel2 := db.ensureContext(parent)
	defer cancel2()
	if ctx2 != parent {
		t.Error("context with a deadline should be returned as is")
	}
}
