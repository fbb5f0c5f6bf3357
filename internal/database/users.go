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
	"strings"
	"time"

	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/models"
)

const userColumns = `id, email, username, password_hash, role, created_at`

// CreateUser inserts a user and sets its ID and CreatedAt.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if !models.IsValidRole(user.Role) {
		return fmt.Errorf("invalid role %q", user.Role)
	}
	user.CreatedAt = time.Now().UTC()

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, strings.ToLower(user.Email), user.Username, user.PasswordHash, user.Role, user.CreatedAt).Scan(&user.ID)
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by id. Returns ErrNotFound if absent.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	metrics.RecordDBQuery("select", "users", time.Since(start), ignoreNotFound(err))
	return user, err
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	user, err := scanUser(row)
	metrics.RecordDBQuery("select", "users", time.Since(start), ignoreNotFound(err))
	return user, err
}

// EnsureAdmin creates an admin account for email unless one already exists.
// An existing account keeps its password.
func (db *DB) EnsureAdmin(ctx context.Context, email, passwordHash string) (*models.User, error) {
	existing, err := db.GetUserByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			logging.Warn().Str("email", email).Msg("Seed admin email belongs to a non-admin account")
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	admin := &models.User{
		Email:        email,
		Username:     "admin",
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}
	if err := db.CreateUser(ctx, admin); err != nil {
		return nil, err
	}

	logging.WithComponent(logging.ComponentDatabase).Info().
		Int64(logging.FieldUserID, admin.ID).
		Msg("Created seed admin account")
	return admin, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// ignoreNotFound keeps missing rows out of the query error metric.
func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
