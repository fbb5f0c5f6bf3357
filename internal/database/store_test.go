// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package database

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/trackrelay/internal/models"
)

func newVideo(userID int64) *models.Video {
	return &models.Video{UserID: userID, Path: "/videos/clip.mp4"}
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "Alice@Example.com", Username: "alice", PasswordHash: "hash"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == 0 {
		t.Fatal("CreateUser() did not set ID")
	}
	if user.Role != models.RoleUser {
		t.Errorf("default role = %s, want %s", user.Role, models.RoleUser)
	}

	byID, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Email != "alice@example.com" || byID.PasswordHash != "hash" {
		t.Errorf("GetUserByID() = %+v", byID)
	}

	byEmail, err := db.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail() id = %d, want %d", byEmail.ID, user.ID)
	}

	if _, err := db.GetUserByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrNotFound", err)
	}

	dup := &models.User{Email: "alice@example.com", Username: "other", PasswordHash: "x"}
	if err := db.CreateUser(ctx, dup); err == nil {
		t.Error("duplicate email should fail")
	}

	bad := &models.User{Email: "b@example.com", Username: "b", PasswordHash: "x", Role: "root"}
	if err := db.CreateUser(ctx, bad); err == nil {
		t.Error("invalid role should fail")
	}
}

func TestEnsureAdmin(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	admin, err := db.EnsureAdmin(ctx, "admin@example.com", "hash-1")
	if err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("role = %s, want admin", admin.Role)
	}

	again, err := db.EnsureAdmin(ctx, "admin@example.com", "hash-2")
	if err != nil {
		t.Fatalf("second EnsureAdmin() error = %v", err)
	}
	if again.ID != admin.ID {
		t.Errorf("second EnsureAdmin() created a new account")
	}
	if again.PasswordHash != "hash-1" {
		t.Error("existing admin password must not be overwritten")
	}
}

func TestPeopleAndVideos(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	person := &models.Person{UserID: 5, Name: "Alice", Embedding: []byte{0x01, 0x02, 0xff}}
	if err := db.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson() error = %v", err)
	}

	got, err := db.GetPerson(ctx, person.ID)
	if err != nil {
		t.Fatalf("GetPerson() error = %v", err)
	}
	if got.UserID != 5 || got.Name != "Alice" || !bytes.Equal(got.Embedding, person.Embedding) {
		t.Errorf("GetPerson() = %+v", got)
	}

	video := newVideo(5)
	if err := db.CreateVideo(ctx, video); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}
	v, err := db.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if v.UserID != 5 || v.Path != video.Path {
		t.Errorf("GetVideo() = %+v", v)
	}

	if _, err := db.GetPerson(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPerson(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetVideo(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVideo(missing) error = %v, want ErrNotFound", err)
	}
}
