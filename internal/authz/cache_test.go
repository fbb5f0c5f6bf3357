// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package authz

import (
	"testing"
	"time"
)

func TestEnforcementCache(t *testing.T) {
	c := newEnforcementCache(time.Minute)
	defer c.stop()

	if _, ok := c.get("user", "1", "1", ObjectPerson, ActionTrack); ok {
		t.Fatal("empty cache returned a hit")
	}

	c.set("user", "1", "1", ObjectPerson, ActionTrack, true)
	allowed, ok := c.get("user", "1", "1", ObjectPerson, ActionTrack)
	if !ok || !allowed {
		t.Errorf("get() = %v, %v; want true, true", allowed, ok)
	}

	// Owner is part of the key
	if _, ok := c.get("user", "1", "2", ObjectPerson, ActionTrack); ok {
		t.Error("different owner should miss")
	}

	c.clear()
	if _, ok := c.get("user", "1", "1", ObjectPerson, ActionTrack); ok {
		t.Error("clear() left an entry")
	}
}

func TestEnforcementCache_Expiry(t *testing.T) {
	c := newEnforcementCache(time.Minute)
	defer c.stop()

	c.mu.Lock()
	c.items[c.key("user", "1", "1", ObjectVideo, ActionTrack)] = &cacheItem{
		allowed:   true,
		expiresAt: time.Now().Add(-time.Second),
	}
	c.mu.Unlock()

	if _, ok := c.get("user", "1", "1", ObjectVideo, ActionTrack); ok {
		t.Error("expired entry should miss")
	}
}

func TestEnforcementCache_StopIdempotent(t *testing.T) {
	c := newEnforcementCache(0)
	if c.ttl != 5*time.Minute {
		t.Errorf("ttl = %v, want default 5m", c.ttl)
	}
	c.stop()
	c.stop()
}
