// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/trackrelay/internal/audit"
	"github.com/tomtom215/trackrelay/internal/relay"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{"valid credentials", LoginRequest{Email: "alice@example.com", Password: testPassword}, http.StatusOK, ""},
		{"email is case insensitive", LoginRequest{Email: "ALICE@example.com", Password: testPassword}, http.StatusOK, ""},
		{"wrong password", LoginRequest{Email: "alice@example.com", Password: "nope"}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown email", LoginRequest{Email: "carol@example.com", Password: testPassword}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"malformed body", "{not json", http.StatusBadRequest, "INVALID_REQUEST"},
		{"invalid email", LoginRequest{Email: "alice", Password: testPassword}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing password", LoginRequest{Email: "alice@example.com"}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)

			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if got := errorCode(body); got != tt.wantErr {
				t.Errorf("error code = %q, want %q", got, tt.wantErr)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var cookie *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == "token" {
					cookie = c
				}
			}
			if cookie == nil || cookie.Value == "" {
				t.Fatal("login should set the token cookie")
			}
			if !cookie.HttpOnly {
				t.Error("token cookie should be HttpOnly")
			}
			if _, err := env.jwt.ValidateToken(cookie.Value); err != nil {
				t.Errorf("cookie token does not validate: %v", err)
			}

			data, _ := body.Data.(map[string]interface{})
			if data["user_id"] != float64(aliceID) || data["role"] != "user" {
				t.Errorf("login data = %v", data)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
	if resp.StatusCode != http.StatusOK || body == nil || body.Status != "success" {
		t.Fatalf("logout = %d %+v", resp.StatusCode, body)
	}

	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == "token" && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout should expire the token cookie")
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/auth/me", env.token(t, aliceID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := body.Data.(map[string]interface{})
	if data["email"] != "alice@example.com" {
		t.Errorf("me = %v", data)
	}
	if _, leaked := data["PasswordHash"]; leaked {
		t.Error("password hash must not be serialized")
	}
}

func TestMe_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, bobID)
	env.store.delete(bobID)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for a token whose user is gone", resp.StatusCode)
	}
}

func TestVideoTrack_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	_, resp, err := env.dial(t, "/ws/video-track/1/2", "")
	if err == nil {
		t.Fatal("dial without a token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %v, want 401", resp)
	}
}

func TestVideoTrack_InvalidIDs(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, aliceID)

	for _, path := range []string{
		"/ws/video-track/0/2",
		"/ws/video-track/1/-5",
		"/ws/video-track/abc/2",
	} {
		t.Run(path, func(t *testing.T) {
			conn, _, err := env.dial(t, path, token)
			if err != nil {
				t.Fatalf("upgrade should succeed for invalid ids: %v", err)
			}

			frame := readFrame(t, conn)
			if frame["type"] != relay.FrameError || frame["message"] != MsgInvalidTrackParams {
				t.Errorf("frame = %v", frame)
			}

			_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
			if _, _, err := conn.ReadMessage(); err == nil {
				t.Error("connection should close after the error frame")
			}
		})
	}

	if n := env.manager.Registry().Len(); n != 0 {
		t.Errorf("registry has %d sessions, want 0", n)
	}
}

func TestVideoTrack_SessionAndStop(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, aliceID)

	conn, _, err := env.dial(t, "/ws/video-track/7/9", token)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}

	frame := readFrame(t, conn)
	if frame["type"] != relay.FrameConnected {
		t.Fatalf("first frame = %v, want connected", frame)
	}
	sessionID, _ := frame["sessionId"].(string)

	initFrame := env.upstream.waitFrame(t, relay.FrameInitialize)
	subject, _ := initFrame["subject"].(map[string]interface{})
	if subject["id"] != float64(7) {
		t.Errorf("initialize subject = %v, want person 7", initFrame["subject"])
	}
	waitFor(t, "session ACTIVE", func() bool {
		s, err := env.manager.Registry().Get(sessionID)
		return err == nil && s.State() == relay.StateActive
	})

	// Another user has nothing to stop
	resp, body := env.do(t, http.MethodPost, "/api/v1/sessions/current/stop", env.token(t, bobID), nil)
	if resp.StatusCode != http.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Errorf("bob stop = %d %q, want 404 NOT_FOUND", resp.StatusCode, errorCode(body))
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/sessions/current/stop", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", resp.StatusCode)
	}
	data, _ := body.Data.(map[string]interface{})
	if data["session_id"] != sessionID {
		t.Errorf("stop data = %v", data)
	}

	if got := readFrame(t, conn); got["type"] != relay.FrameTrackingStopped {
		t.Errorf("client frame = %v, want tracking_stopped", got)
	}
	env.upstream.waitFrame(t, relay.FrameStopTracking)

	if _, err := env.manager.SessionForUser(aliceID); err != nil {
		t.Error("session should stay open after stop_tracking")
	}
}

func TestVideoTrack_RateLimited(t *testing.T) {
	env := newTestEnv(t, withLimiter(NewSessionLimiter(1, 1)))
	token := env.token(t, aliceID)

	conn, _, err := env.dial(t, "/ws/video-track/1/2", token)
	if err != nil {
		t.Fatalf("first dial error = %v", err)
	}
	readFrame(t, conn)

	_, resp, err := env.dial(t, "/ws/video-track/1/2", token)
	if err == nil {
		t.Fatal("second dial within the window should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("handshake response = %v, want 429", resp)
	}
}

func TestStopCurrentSession_NoSession(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/sessions/current/stop", env.token(t, aliceID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if errorCode(body) != "NOT_FOUND" {
		t.Errorf("error code = %q", errorCode(body))
	}
}

func TestListSessions(t *testing.T) {
	env := newTestEnv(t)

	conn, _, err := env.dial(t, "/ws/video-track/1/2", env.token(t, aliceID))
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	readFrame(t, conn)

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"regular user", env.token(t, bobID), http.StatusForbidden},
		{"admin", env.token(t, adminID), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, "/api/v1/sessions", tt.token, nil)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			data, _ := body.Data.(map[string]interface{})
			if data["count"] != float64(1) {
				t.Errorf("count = %v, want 1", data["count"])
			}
			sessions, _ := data["sessions"].([]interface{})
			if len(sessions) != 1 {
				t.Fatalf("sessions = %v", sessions)
			}
			first, _ := sessions[0].(map[string]interface{})
			if first["user_id"] != float64(aliceID) {
				t.Errorf("session = %v", first)
			}
		})
	}
}

func TestSessionEvents(t *testing.T) {
	t.Run("history configured", func(t *testing.T) {
		history := staticHistory{
			{Type: relay.EventSessionCreated, SessionID: "s-1", UserID: aliceID, At: time.Now()},
			{Type: relay.EventSessionClosed, SessionID: "s-1", UserID: aliceID, Reason: relay.ReasonClientClosed, At: time.Now()},
		}
		env := newTestEnv(t, withHistory(history))

		resp, body := env.do(t, http.MethodGet, "/api/v1/sessions/events", env.token(t, adminID), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		data, _ := body.Data.(map[string]interface{})
		events, _ := data["events"].([]interface{})
		if len(events) != 2 {
			t.Fatalf("events = %v", events)
		}
		last, _ := events[1].(map[string]interface{})
		if last["reason"] != relay.ReasonClientClosed {
			t.Errorf("last event = %v", last)
		}
	})

	t.Run("no history", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.do(t, http.MethodGet, "/api/v1/sessions/events", env.token(t, adminID), nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})

	t.Run("regular user", func(t *testing.T) {
		env := newTestEnv(t, withHistory(staticHistory{}))
		resp, _ := env.do(t, http.MethodGet, "/api/v1/sessions/events", env.token(t, aliceID), nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("recent window filtered", func(t *testing.T) {
		history := staticHistory{
			{Type: relay.EventSessionCreated, SessionID: "s-1", UserID: aliceID, At: time.Now()},
			{Type: relay.EventSessionCreated, SessionID: "s-2", UserID: bobID, At: time.Now()},
			{Type: relay.EventSessionEvicted, SessionID: "s-1", UserID: aliceID, At: time.Now()},
		}
		env := newTestEnv(t, withHistory(history))

		path := fmt.Sprintf("/api/v1/sessions/events?user_id=%d&type=session.evicted", aliceID)
		_, body := env.do(t, http.MethodGet, path, env.token(t, adminID), nil)
		data, _ := body.Data.(map[string]interface{})
		if data["count"] != float64(1) {
			t.Errorf("count = %v, want 1", data["count"])
		}
	})

	t.Run("persistent store", func(t *testing.T) {
		store := audit.NewMemoryStore(0)
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, sid := range []string{"old", "mid", "new"} {
			_ = store.Save(context.Background(), relay.Event{
				Type: relay.EventSessionCreated, SessionID: sid, UserID: aliceID, At: base.Add(time.Duration(i) * time.Hour),
			})
		}
		env := newTestEnv(t, withEventStore(store))

		_, body := env.do(t, http.MethodGet, "/api/v1/sessions/events?since=2026-03-01T12:30:00Z&limit=5", env.token(t, adminID), nil)
		data, _ := body.Data.(map[string]interface{})
		events, _ := data["events"].([]interface{})
		if len(events) != 2 {
			t.Fatalf("events = %v, want mid and new", events)
		}
		first, _ := events[0].(map[string]interface{})
		if first["session_id"] != "mid" {
			t.Errorf("first event = %v, want mid", first)
		}
	})

	t.Run("invalid query", func(t *testing.T) {
		env := newTestEnv(t, withHistory(staticHistory{}))
		for _, q := range []string{"user_id=abc", "limit=5000", "type=session.unknown", "since=yesterday", "since=2026-03-02T00:00:00Z&until=2026-03-01T00:00:00Z"} {
			resp, body := env.do(t, http.MethodGet, "/api/v1/sessions/events?"+q, env.token(t, adminID), nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
			}
			if code := errorCode(body); code != "VALIDATION_ERROR" {
				t.Errorf("%s: code = %s", q, code)
			}
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing on /api/v1")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	data, _ := body.Data.(map[string]interface{})
	if resp.StatusCode != http.StatusOK || data["status"] != "healthy" {
		t.Errorf("health = %d %v", resp.StatusCode, data)
	}
	if data["upstream_breaker"] != "closed" {
		t.Errorf("upstream_breaker = %v, want closed", data["upstream_breaker"])
	}

	resp, _ = env.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready = %d, want 200", resp.StatusCode)
	}

	env.store.setPingErr(errPing)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready with database down = %d, want 503", resp.StatusCode)
	}
	_, body = env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	data, _ = body.Data.(map[string]interface{})
	if data["status"] != "degraded" {
		t.Errorf("health with database down = %v, want degraded", data["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	h := &Handler{config: testConfig()}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"allowed origin", "http://localhost:3000", true},
		{"foreign origin", "http://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws/video-track/1/2", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}

	wildcard := testConfig()
	wildcard.Security.CORSOrigins = []string{"*"}
	h = &Handler{config: wildcard}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anything.example")
	if !h.checkWebSocketOrigin(req) {
		t.Error("wildcard should allow any origin")
	}
}

func TestVideoTrack_ForeignOriginRejected(t *testing.T) {
	env := newTestEnv(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+env.token(t, aliceID))
	header.Set("Origin", "http://evil.example")

	url := "ws" + env.server.URL[len("http"):] + "/ws/video-track/1/2"
	conn, resp, err := gorilla.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err == nil {
		conn.Close()
		t.Fatal("foreign origin should fail the handshake")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("handshake response = %v, want 403", resp)
	}
}

func TestNewHandler_RequiresDeps(t *testing.T) {
	if _, err := NewHandler(Deps{}); err == nil {
		t.Error("NewHandler(Deps{}) should fail")
	}
}
