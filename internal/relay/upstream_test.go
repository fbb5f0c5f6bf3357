// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trackrelay/internal/websocket"
)

func TestNewUpstreamConnector_Validation(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"ws", "ws://localhost:5000", false},
		{"wss with path", "wss://tracker.internal/api", false},
		{"http scheme", "http://localhost:5000", true},
		{"empty", "", true},
		{"unparseable", "ws://[::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUpstreamConnector(ConnectorConfig{BaseURL: tt.baseURL})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewUpstreamConnector(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestUpstreamConnector_Defaults(t *testing.T) {
	u, err := NewUpstreamConnector(ConnectorConfig{BaseURL: "ws://localhost:5000"})
	if err != nil {
		t.Fatalf("NewUpstreamConnector() error = %v", err)
	}

	if u.Settings() != DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", u.Settings())
	}
	if u.cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", u.cfg.ConnectTimeout)
	}
	if u.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %s, want closed", u.BreakerState())
	}
}

func TestUpstreamConnector_Endpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"ws://localhost:5000", "ws://localhost:5000/video-stream/abc"},
		{"ws://localhost:5000/", "ws://localhost:5000/video-stream/abc"},
		{"wss://tracker/api", "wss://tracker/api/video-stream/abc"},
	}

	for _, tt := range tests {
		u, err := NewUpstreamConnector(ConnectorConfig{BaseURL: tt.base})
		if err != nil {
			t.Fatalf("NewUpstreamConnector(%s) error = %v", tt.base, err)
		}
		if got := u.Endpoint("abc"); got != tt.want {
			t.Errorf("Endpoint() with base %s = %s, want %s", tt.base, got, tt.want)
		}
	}
}

func TestUpstreamConnector_CircuitBreaker(t *testing.T) {
	dialErr := errors.New("connection refused")
	calls := 0
	u, err := NewUpstreamConnector(ConnectorConfig{
		BaseURL:         "ws://localhost:5000",
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
		Dial: func(context.Context, string) (websocket.Conn, error) {
			calls++
			return nil, dialErr
		},
	})
	if err != nil {
		t.Fatalf("NewUpstreamConnector() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := u.dialUpstream(context.Background(), u.Endpoint("s")); !errors.Is(err, dialErr) {
			t.Fatalf("dial %d error = %v, want dial error", i, err)
		}
	}

	if u.BreakerState() != "open" {
		t.Errorf("BreakerState() = %s, want open", u.BreakerState())
	}
	if _, err := u.dialUpstream(context.Background(), u.Endpoint("s")); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("dial with open breaker error = %v, want ErrOpenState", err)
	}
	if calls != 2 {
		t.Errorf("dialer called %d times, want 2", calls)
	}
}

func TestUpstreamConnector_CanceledDialDoesNotTrip(t *testing.T) {
	u, err := NewUpstreamConnector(ConnectorConfig{
		BaseURL:         "ws://localhost:5000",
		BreakerFailures: 1,
		Dial: func(ctx context.Context, _ string) (websocket.Conn, error) {
			return nil, ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("NewUpstreamConnector() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, _ = u.dialUpstream(ctx, u.Endpoint("s"))
	}

	if u.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %s, want closed", u.BreakerState())
	}
}

func TestUpstreamConnector_DialFailureTearsDown(t *testing.T) {
	u, err := NewUpstreamConnector(ConnectorConfig{
		BaseURL: "ws://localhost:5000",
		Dial: func(context.Context, string) (websocket.Conn, error) {
			return nil, errors.New("no route to host")
		},
	})
	if err != nil {
		t.Fatalf("NewUpstreamConnector() error = %v", err)
	}

	s := testSession("s", 1, time.Now())
	s.markAcked()

	var gotID, gotReason string
	u.Connect(s.Context(), s, func(id, reason string) {
		gotID, gotReason = id, reason
	})

	if gotID != "s" || gotReason != ReasonUpstreamFailed {
		t.Errorf("teardown(%q, %q), want (s, %s)", gotID, gotReason, ReasonUpstreamFailed)
	}
}

func TestUpstreamConnector_DialAbandonedWhenClosing(t *testing.T) {
	u, err := NewUpstreamConnector(ConnectorConfig{
		BaseURL: "ws://localhost:5000",
		Dial: func(ctx context.Context, _ string) (websocket.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("NewUpstreamConnector() error = %v", err)
	}

	s := testSession("s", 1, time.Now())
	s.beginClose()
	s.cancel()

	called := false
	u.Connect(s.Context(), s, func(string, string) { called = true })
	if called {
		t.Error("teardown must not be called for a session already closing")
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state   gobreaker.State
		wantStr string
		wantNum float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
	}
	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.wantStr {
			t.Errorf("stateToString(%v) = %s, want %s", tt.state, got, tt.wantStr)
		}
		if got := stateToFloat(tt.state); got != tt.wantNum {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.wantNum)
		}
	}
}
