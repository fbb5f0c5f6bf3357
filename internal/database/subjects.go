// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/models"
)

// CreatePerson inserts a person and sets its ID and CreatedAt.
func (db *DB) CreatePerson(ctx context.Context, person *models.Person) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	person.CreatedAt = time.Now().UTC()

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO people (user_id, name, embedding, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, person.UserID, person.Name, person.Embedding, person.CreatedAt).Scan(&person.ID)
	metrics.RecordDBQuery("insert", "people", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by id regardless of owner. Returns ErrNotFound if absent.
func (db *DB) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var p models.Person
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, name, embedding, created_at
		FROM people
		WHERE id = ?
	`, id).Scan(&p.ID, &p.UserID, &p.Name, &p.Embedding, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "people", time.Since(start), nil)
		return nil, ErrNotFound
	}
	metrics.RecordDBQuery("select", "people", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query person: %w", err)
	}
	return &p, nil
}

// CreateVideo inserts a video and sets its ID and CreatedAt.
func (db *DB) CreateVideo(ctx context.Context, video *models.Video) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	video.CreatedAt = time.Now().UTC()

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO videos (user_id, path, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`, video.UserID, video.Path, video.CreatedAt).Scan(&video.ID)
	metrics.RecordDBQuery("insert", "videos", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// GetVideo retrieves a video by id regardless of owner. Returns ErrNotFound if absent.
func (db *DB) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var v models.Video
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, path, created_at
		FROM videos
		WHERE id = ?
	`, id).Scan(&v.ID, &v.UserID, &v.Path, &v.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "videos", time.Since(start), nil)
		return nil, ErrNotFound
	}
	metrics.RecordDBQuery("select", "videos", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	return &v, nil
}
