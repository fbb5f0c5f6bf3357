// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"context"
	"fmt"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/trackrelay/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	// Initialize logging for tests with discard output
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

const testTimeout = 3 * time.Second

var testUpgrader = gorilla.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// fakeResolver returns a person-shaped subject for any refs unless err is set.
type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(_ context.Context, userID int64, refs SubjectRefs) (interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{
		"id":        refs.PersonID,
		"user_id":   userID,
		"name":      "Alice",
		"embedding": "AQID",
		"video": map[string]interface{}{
			"id":      refs.VideoID,
			"user_id": userID,
			"path":    "/videos/clip.mp4",
		},
	}, nil
}

// eventRecorder is an EventSink that keeps every event.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// upstreamConn is one connection accepted by the fake tracking service.
type upstreamConn struct {
	conn     *gorilla.Conn
	path     string
	received chan []byte
}

// next returns the next frame the upstream received, or nil if the socket closed.
func (u *upstreamConn) next(t *testing.T) []byte {
	t.Helper()
	select {
	case msg, ok := <-u.received:
		if !ok {
			return nil
		}
		return msg
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for upstream frame")
		return nil
	}
}

// expectNothing asserts no frame arrives within d.
func (u *upstreamConn) expectNothing(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case msg, ok := <-u.received:
		if ok {
			t.Fatalf("upstream received unexpected frame %s", msg)
		}
	case <-time.After(d):
	}
}

// fakeUpstream is an httptest server speaking the tracking service side.
type fakeUpstream struct {
	server *httptest.Server
	conns  chan *upstreamConn
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{conns: make(chan *upstreamConn, 16)}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		uc := &upstreamConn{conn: conn, path: r.URL.Path, received: make(chan []byte, 64)}
		u.conns <- uc
		go func() {
			defer close(uc.received)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				uc.received <- data
			}
		}()
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *fakeUpstream) url() string {
	return "ws" + strings.TrimPrefix(u.server.URL, "http")
}

func (u *fakeUpstream) accept(t *testing.T) *upstreamConn {
	t.Helper()
	select {
	case uc := <-u.conns:
		return uc
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for upstream connection")
		return nil
	}
}

// harness wires a Manager to a fake upstream and an httptest relay endpoint.
type harness struct {
	registry *Registry
	manager  *Manager
	upstream *fakeUpstream
	events   *eventRecorder
	server   *httptest.Server
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	resolver SubjectResolver
	baseURL  string
	newID    func() string
}

func withResolver(r SubjectResolver) harnessOption {
	return func(c *harnessConfig) { c.resolver = r }
}

func withUpstreamURL(u string) harnessOption {
	return func(c *harnessConfig) { c.baseURL = u }
}

func withNewID(newID func() string) harnessOption {
	return func(c *harnessConfig) { c.newID = newID }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		registry: NewRegistry(),
		events:   &eventRecorder{},
	}

	cfg := harnessConfig{resolver: &fakeResolver{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.baseURL == "" {
		h.upstream = newFakeUpstream(t)
		cfg.baseURL = h.upstream.url()
	}

	connector, err := NewUpstreamConnector(ConnectorConfig{
		BaseURL:        cfg.baseURL,
		ConnectTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewUpstreamConnector() error = %v", err)
	}

	h.manager, err = NewManager(Options{
		Registry:  h.registry,
		Resolver:  cfg.resolver,
		Connector: connector,
		Events:    h.events,
		NewID:     cfg.newID,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		userID, _ := strconv.ParseInt(q.Get("user"), 10, 64)
		personID, _ := strconv.ParseInt(q.Get("person"), 10, 64)
		videoID, _ := strconv.ParseInt(q.Get("video"), 10, 64)

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = h.manager.Serve(context.Background(), conn, userID, SubjectRefs{PersonID: personID, VideoID: videoID})
	}))
	t.Cleanup(h.server.Close)

	// Runs before the servers close
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = h.manager.Shutdown(ctx)
	})

	return h
}

// dial opens a client connection for userID tracking person in video.
func (h *harness) dial(t *testing.T, userID, personID, videoID int64) *gorilla.Conn {
	t.Helper()
	wsURL := fmt.Sprintf("ws%s/?user=%d&person=%d&video=%d",
		strings.TrimPrefix(h.server.URL, "http"), userID, personID, videoID)

	conn, resp, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial relay: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// connect dials and consumes the connected frame, returning the session id
// and the matching upstream connection.
func (h *harness) connect(t *testing.T, userID, personID, videoID int64) (*gorilla.Conn, string, *upstreamConn) {
	t.Helper()
	client := h.dial(t, userID, personID, videoID)

	frame := readFrame(t, client)
	if frame["type"] != FrameConnected {
		t.Fatalf("first frame type = %v, want %s", frame["type"], FrameConnected)
	}
	id, _ := frame["sessionId"].(string)

	up := h.upstream.accept(t)
	waitFor(t, "session ACTIVE", func() bool {
		s, err := h.registry.Get(id)
		return err == nil && s.State() == StateActive
	})
	return client, id, up
}

// readFrame reads one JSON frame from a client connection.
func readFrame(t *testing.T, conn *gorilla.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("frame %q is not JSON: %v", data, err)
	}
	return frame
}

// readClose reads until the connection fails and returns the close code,
// or -1 if it ended without a close frame.
func readClose(t *testing.T, conn *gorilla.Conn) int {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if ce, ok := err.(*gorilla.CloseError); ok {
			return ce.Code
		}
		return -1
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

// expectClientOpen asserts that a client whose session ended upstream is
// still connected, then closes it and waits for the manager to let go of it.
func expectClientOpen(t *testing.T, h *harness, conn *gorilla.Conn) {
	t.Helper()
	waitFor(t, "client detached", func() bool { return h.manager.DetachedClients() == 1 })

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, data, err := conn.ReadMessage()
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("client read = %q, %v; want the socket left open", data, err)
	}

	_ = conn.Close()
	waitFor(t, "detached client released", func() bool { return h.manager.DetachedClients() == 0 })
}
