// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/trackrelay/internal/auth"
	"github.com/tomtom215/trackrelay/internal/authz"
	"github.com/tomtom215/trackrelay/internal/config"
	"github.com/tomtom215/trackrelay/internal/database"
	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/models"
	"github.com/tomtom215/trackrelay/internal/relay"
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

const (
	testSecret   = "this_is_a_very_long_secret_key_for_testing_purposes_12345"
	testPassword = "correct-horse-battery"
	testTimeout  = 3 * time.Second

	adminID = int64(1)
	aliceID = int64(2)
	bobID   = int64(3)
)

// passwordHash is computed once; bcrypt is slow on purpose.
var passwordHash = func() string {
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		panic(err)
	}
	return hash
}()

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[int64]*models.User{
		adminID: {ID: adminID, Email: "admin@example.com", Role: models.RoleAdmin, PasswordHash: passwordHash},
		aliceID: {ID: aliceID, Email: "alice@example.com", Role: models.RoleUser, PasswordHash: passwordHash},
		bobID:   {ID: bobID, Email: "bob@example.com", Role: models.RoleUser, PasswordHash: passwordHash},
	}}
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *fakeStore) setPingErr(err error) {
	s.mu.Lock()
	s.pingErr = err
	s.mu.Unlock()
}

func (s *fakeStore) delete(id int64) {
	s.mu.Lock()
	delete(s.users, id)
	s.mu.Unlock()
}

// echoResolver accepts any refs.
type echoResolver struct{}

func (echoResolver) Resolve(_ context.Context, userID int64, refs relay.SubjectRefs) (interface{}, error) {
	return map[string]interface{}{"id": refs.PersonID, "user_id": userID}, nil
}

// staticHistory is an EventHistory returning fixed events.
type staticHistory []relay.Event

func (h staticHistory) Recent() []relay.Event { return h }

// fakeUpstream accepts tracking service connections and records frames.
type fakeUpstream struct {
	server   *httptest.Server
	received chan []byte
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	upgrader := gorilla.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	u := &fakeUpstream{received: make(chan []byte, 64)}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			u.received <- data
		}
	}))
	t.Cleanup(u.server.Close)
	return u
}

// waitFrame waits for an upstream frame of the given type.
func (u *fakeUpstream) waitFrame(t *testing.T, frameType string) map[string]interface{} {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case data := <-u.received:
			var frame map[string]interface{}
			if err := json.Unmarshal(data, &frame); err == nil && frame["type"] == frameType {
				return frame
			}
		case <-deadline:
			t.Fatalf("timeout waiting for upstream %s frame", frameType)
			return nil
		}
	}
}

type testEnv struct {
	server   *httptest.Server
	store    *fakeStore
	manager  *relay.Manager
	jwt      *auth.JWTManager
	upstream *fakeUpstream
}

type envOption func(*Deps)

func withHistory(h EventHistory) envOption {
	return func(d *Deps) { d.Events = h }
}

func withEventStore(q EventQuerier) envOption {
	return func(d *Deps) { d.EventStore = q }
}

func withLimiter(l *SessionLimiter) envOption {
	return func(d *Deps) { d.Limiter = l }
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			SessionTimeout:    30 * time.Minute,
			CookieName:        "token",
			RateLimitDisabled: true,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
		Relay: config.RelayConfig{
			SessionRatePerMinute: 0,
			SessionBurst:         5,
		},
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{store: newFakeStore(), upstream: newFakeUpstream(t)}
	cfg := testConfig()

	connector, err := relay.NewUpstreamConnector(relay.ConnectorConfig{
		BaseURL:        "ws" + strings.TrimPrefix(env.upstream.server.URL, "http"),
		ConnectTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewUpstreamConnector() error = %v", err)
	}

	env.manager, err = relay.NewManager(relay.Options{
		Registry:  relay.NewRegistry(),
		Resolver:  echoResolver{},
		Connector: connector,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	env.jwt, err = auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	deps := Deps{
		Config:     cfg,
		Store:      env.store,
		Manager:    env.manager,
		JWT:        env.jwt,
		Authorizer: enforcer,
		Breaker:    connector,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	handler, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	router := NewRouter(handler, auth.NewMiddleware(env.jwt, env.store, cfg.Security.CookieName), authz.NewMiddleware(enforcer))
	env.server = httptest.NewServer(router.SetupChi())
	t.Cleanup(env.server.Close)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = env.manager.Shutdown(ctx)
	})

	return env
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	u, err := e.store.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("unknown test user %d", userID)
	}
	token, _, err := e.jwt.GenerateToken(u.ID, u.Role)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

// do sends a request and decodes the JSON envelope when there is one.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, *models.APIResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var envelope models.APIResponse
	if json.Unmarshal(data, &envelope) != nil {
		return resp, nil
	}
	return resp, &envelope
}

// dial opens the tracking WebSocket with a bearer token.
func (e *testEnv) dial(t *testing.T, path, token string) (*gorilla.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + path
	conn, resp, err := gorilla.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

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

func errorCode(resp *models.APIResponse) string {
	if resp == nil || resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

var errPing = errors.New("database unavailable")

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
