// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleUser, true},
		{RoleAdmin, true},
		{"viewer", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidRole(tt.role); got != tt.want {
			t.Errorf("IsValidRole(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestNewTrackingSubject(t *testing.T) {
	person := &Person{ID: 1, UserID: 5, Name: "Alice", Embedding: []byte{1, 2, 3}}
	video := &Video{ID: 2, UserID: 5, Path: "/videos/a.mp4"}

	data, err := json.Marshal(NewTrackingSubject(person, video))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"id":1,"user_id":5,"name":"Alice","embedding":"AQID","video":{"id":2,"user_id":5,"path":"/videos/a.mp4"}}`
	if string(data) != want {
		t.Errorf("subject = %s, want %s", data, want)
	}
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	u := User{ID: 1, Email: "a@example.com", PasswordHash: "secret-hash"}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := m["password_hash"]; ok {
		t.Error("password hash must not be serialized")
	}
	if _, ok := m["PasswordHash"]; ok {
		t.Error("password hash must not be serialized")
	}
}
