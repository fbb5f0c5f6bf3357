// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package authz

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// setupEnforcer creates an enforcer with default config and registers cleanup.
func setupEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	enforcer, err := NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)
	return enforcer
}

func TestEnforcer_Authorize(t *testing.T) {
	e := setupEnforcer(t)

	user := Principal{UserID: 7, Role: "user"}
	admin := Principal{UserID: 1, Role: "admin"}

	tests := []struct {
		name   string
		p      Principal
		object string
		action string
		owner  int64
		want   bool
	}{
		{"user tracks own person", user, ObjectPerson, ActionTrack, 7, true},
		{"user tracks own video", user, ObjectVideo, ActionTrack, 7, true},
		{"user tracks foreign person", user, ObjectPerson, ActionTrack, 8, false},
		{"user tracks foreign video", user, ObjectVideo, ActionTrack, 8, false},
		{"user stops own session", user, ObjectSession, ActionStop, 7, true},
		{"user lists sessions", user, ObjectSessions, ActionList, NoOwner, false},
		{"admin tracks foreign person", admin, ObjectPerson, ActionTrack, 8, true},
		{"admin lists sessions", admin, ObjectSessions, ActionList, NoOwner, true},
		{"unknown role", Principal{UserID: 7, Role: "guest"}, ObjectPerson, ActionTrack, 7, false},
		{"empty role", Principal{UserID: 7}, ObjectVideo, ActionTrack, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Authorize(tt.p, tt.object, tt.action, tt.owner)
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Authorize(%+v, %s, %s, %d) = %v, want %v",
					tt.p, tt.object, tt.action, tt.owner, got, tt.want)
			}
		})
	}
}

func TestEnforcer_CachedDecision(t *testing.T) {
	e, err := NewEnforcer(&EnforcerConfig{CacheEnabled: true, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	defer e.Close()

	p := Principal{UserID: 3, Role: "user"}
	before := testutil.ToFloat64(AuthzCacheHitsTotal)

	for i := 0; i < 2; i++ {
		ok, err := e.Authorize(p, ObjectPerson, ActionTrack, 3)
		if err != nil || !ok {
			t.Fatalf("Authorize() = %v, %v", ok, err)
		}
	}

	if got := testutil.ToFloat64(AuthzCacheHitsTotal) - before; got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
}

func TestEnforcer_PolicyChangeClearsCache(t *testing.T) {
	e := setupEnforcer(t)
	p := Principal{UserID: 3, Role: "user"}

	ok, _ := e.Authorize(p, ObjectSessions, ActionList, NoOwner)
	if ok {
		t.Fatal("user should not list sessions by default")
	}

	// Ownerless objects stay denied for users even with a matching rule
	if _, err := e.AddPolicy("user", ObjectSessions, ActionList); err != nil {
		t.Fatalf("AddPolicy() error = %v", err)
	}
	ok, _ = e.Authorize(p, ObjectSessions, ActionList, NoOwner)
	if ok {
		t.Error("owner check must still apply to non-admin roles")
	}

	if _, err := e.RemovePolicy("user", ObjectPerson, ActionTrack); err != nil {
		t.Fatalf("RemovePolicy() error = %v", err)
	}
	ok, _ = e.Authorize(p, ObjectPerson, ActionTrack, 3)
	if ok {
		t.Error("removed rule should no longer allow tracking")
	}
}

func TestEnforcer_PolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.csv")
	policy := "p, admin, *, *\np, user, video, track\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	e, err := NewEnforcer(&EnforcerConfig{PolicyPath: path})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	defer e.Close()

	p := Principal{UserID: 2, Role: "user"}
	if ok, _ := e.Authorize(p, ObjectVideo, ActionTrack, 2); !ok {
		t.Error("file policy should allow video tracking")
	}
	if ok, _ := e.Authorize(p, ObjectPerson, ActionTrack, 2); ok {
		t.Error("file policy has no person rule")
	}
	if len(e.GetPolicy()) != 2 {
		t.Errorf("GetPolicy() len = %d, want 2", len(e.GetPolicy()))
	}
}

func TestEnforcer_BadModelPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.conf")
	if err := os.WriteFile(path, []byte("[request_definition]\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := NewEnforcer(&EnforcerConfig{ModelPath: path}); err == nil {
		t.Error("NewEnforcer() with an incomplete model should fail")
	}
}
