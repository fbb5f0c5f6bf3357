// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package subjects

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/trackrelay/internal/authz"
	"github.com/tomtom215/trackrelay/internal/database"
	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/models"
	"github.com/tomtom215/trackrelay/internal/relay"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

var errStore = errors.New("connection reset")

type fakeStore struct {
	users  map[int64]*models.User
	people map[int64]*models.Person
	videos map[int64]*models.Video
	err    error
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetPerson(_ context.Context, id int64) (*models.Person, error) {
	if p, ok := f.people[id]; ok {
		return p, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetVideo(_ context.Context, id int64) (*models.Video, error) {
	if v, ok := f.videos[id]; ok {
		return v, nil
	}
	return nil, database.ErrNotFound
}

func newStore() *fakeStore {
	return &fakeStore{
		users: map[int64]*models.User{
			1: {ID: 1, Role: models.RoleAdmin},
			2: {ID: 2, Role: models.RoleUser},
			3: {ID: 3, Role: models.RoleUser},
		},
		people: map[int64]*models.Person{
			10: {ID: 10, UserID: 2, Name: "Alice", Embedding: []byte{1, 2, 3}},
			11: {ID: 11, UserID: 3, Name: "Bob"},
		},
		videos: map[int64]*models.Video{
			20: {ID: 20, UserID: 2, Path: "/videos/a.mp4"},
			21: {ID: 21, UserID: 3, Path: "/videos/b.mp4"},
		},
	}
}

func newTestResolver(t *testing.T, store Store) *Resolver {
	t.Helper()
	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)
	return NewResolver(store, enforcer)
}

func TestResolve_Success(t *testing.T) {
	r := newTestResolver(t, newStore())
	before := testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("success"))

	got, err := r.Resolve(context.Background(), 2, relay.SubjectRefs{PersonID: 10, VideoID: 20})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	subject, ok := got.(models.TrackingSubject)
	if !ok {
		t.Fatalf("Resolve() returned %T, want models.TrackingSubject", got)
	}
	if subject.ID != 10 || subject.Name != "Alice" || subject.Embedding != "AQID" {
		t.Errorf("subject = %+v", subject)
	}
	if subject.Video.ID != 20 || subject.Video.Path != "/videos/a.mp4" {
		t.Errorf("subject.Video = %+v", subject.Video)
	}

	if got := testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("success")) - before; got != 1 {
		t.Errorf("success resolutions = %v, want 1", got)
	}
}

func TestResolve_AdminAccessesAnyRecord(t *testing.T) {
	r := newTestResolver(t, newStore())

	if _, err := r.Resolve(context.Background(), 1, relay.SubjectRefs{PersonID: 11, VideoID: 20}); err != nil {
		t.Fatalf("admin Resolve() error = %v", err)
	}
}

func TestResolve_Failures(t *testing.T) {
	r := newTestResolver(t, newStore())

	tests := []struct {
		name    string
		userID  int64
		refs    relay.SubjectRefs
		subject string
		message string
	}{
		{"unknown user", 99, relay.SubjectRefs{PersonID: 10, VideoID: 20}, "user", MsgUserForbidden},
		{"missing person", 2, relay.SubjectRefs{PersonID: 404, VideoID: 20}, "person", MsgPersonNotFound},
		{"foreign person", 2, relay.SubjectRefs{PersonID: 11, VideoID: 20}, "person", MsgPersonNotFound},
		{"missing video", 2, relay.SubjectRefs{PersonID: 10, VideoID: 404}, "video", MsgVideoNotFound},
		{"foreign video", 2, relay.SubjectRefs{PersonID: 10, VideoID: 21}, "video", MsgVideoNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.userID, tt.refs)

			var resErr *relay.ResolutionError
			if !errors.As(err, &resErr) {
				t.Fatalf("Resolve() error = %v, want *relay.ResolutionError", err)
			}
			if resErr.Subject != tt.subject || resErr.Message != tt.message {
				t.Errorf("ResolutionError = {%s, %s}, want {%s, %s}",
					resErr.Subject, resErr.Message, tt.subject, tt.message)
			}
		})
	}
}

func TestResolve_StoreError(t *testing.T) {
	store := newStore()
	store.err = errStore
	r := newTestResolver(t, store)

	_, err := r.Resolve(context.Background(), 2, relay.SubjectRefs{PersonID: 10, VideoID: 20})
	if !errors.Is(err, errStore) {
		t.Fatalf("Resolve() error = %v, want wrapped store error", err)
	}

	var resErr *relay.ResolutionError
	if errors.As(err, &resErr) {
		t.Error("store failures must not be reported as resolution errors")
	}
}
