// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
database_schema.go - Database Schema Management

Tables:
  - users: accounts with bcrypt password hashes and a role
  - people: people to track, each with a face embedding, owned by a user
  - videos: video files owned by a user

Ids come from sequences. Timestamps are written by the application in UTC
so the schema needs no ICU extension.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables(ctx context.Context) error {
	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS users_id_seq START 1`,
		`CREATE SEQUENCE IF NOT EXISTS people_id_seq START 1`,
		`CREATE SEQUENCE IF NOT EXISTS videos_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY DEFAULT nextval('users_id_seq'),
			email VARCHAR NOT NULL UNIQUE,
			username VARCHAR NOT NULL,
			password_hash VARCHAR NOT NULL,
			role VARCHAR NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS people (
			id BIGINT PRIMARY KEY DEFAULT nextval('people_id_seq'),
			user_id BIGINT NOT NULL,
			name VARCHAR NOT NULL,
			embedding BLOB,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS videos (
			id BIGINT PRIMARY KEY DEFAULT nextval('videos_id_seq'),
			user_id BIGINT NOT NULL,
			path VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
}

// createIndexes creates lookup indexes for owner queries
func (db *DB) createIndexes(ctx context.Context) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_people_user_id ON people(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_user_id ON videos(user_id)`,
	}
	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
