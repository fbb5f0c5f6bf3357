// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package subjects

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/trackrelay/internal/authz"
	"github.com/tomtom215/trackrelay/internal/database"
	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/models"
	"github.com/tomtom215/trackrelay/internal/relay"
)

// Client-facing resolution messages.
const (
	MsgUserForbidden  = "This user cannot access this resource"
	MsgPersonNotFound = "This person doesn't exist"
	MsgVideoNotFound  = "This video doesn't exist"
)

// Store is the subset of the database used for resolution.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
}

// Authorizer decides ownership-scoped access.
type Authorizer interface {
	Authorize(p authz.Principal, object, action string, ownerID int64) (bool, error)
}

// Resolver turns a person id and video id into the subject sent upstream,
// enforcing that the user may track both.
type Resolver struct {
	store Store
	authz Authorizer
}

// NewResolver creates a resolver backed by store and authorizer.
func NewResolver(store Store, authorizer Authorizer) *Resolver {
	return &Resolver{store: store, authz: authorizer}
}

// Resolve implements relay.SubjectResolver.
//
// A record the user may not access is reported exactly like a missing one so
// that ids owned by other users are not disclosed.
func (r *Resolver) Resolve(ctx context.Context, userID int64, refs relay.SubjectRefs) (interface{}, error) {
	user, err := r.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.ResolutionsTotal.WithLabelValues("forbidden").Inc()
			return nil, &relay.ResolutionError{Subject: "user", Message: MsgUserForbidden, Err: err}
		}
		return nil, r.storeError("user", err)
	}
	principal := authz.Principal{UserID: user.ID, Role: user.Role}

	person, err := r.store.GetPerson(ctx, refs.PersonID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, r.notFound("person", MsgPersonNotFound, err)
		}
		return nil, r.storeError("person", err)
	}
	if err := r.check(principal, authz.ObjectPerson, person.UserID, MsgPersonNotFound); err != nil {
		return nil, err
	}

	video, err := r.store.GetVideo(ctx, refs.VideoID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, r.notFound("video", MsgVideoNotFound, err)
		}
		return nil, r.storeError("video", err)
	}
	if err := r.check(principal, authz.ObjectVideo, video.UserID, MsgVideoNotFound); err != nil {
		return nil, err
	}

	metrics.ResolutionsTotal.WithLabelValues("success").Inc()
	return models.NewTrackingSubject(person, video), nil
}

func (r *Resolver) check(p authz.Principal, object string, ownerID int64, message string) error {
	allowed, err := r.authz.Authorize(p, object, authz.ActionTrack, ownerID)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("authorize %s: %w", object, err)
	}
	if !allowed {
		metrics.ResolutionsTotal.WithLabelValues("forbidden").Inc()
		logging.Debug().
			Int64(logging.FieldUserID, p.UserID).
			Str("object", object).
			Int64("owner_id", ownerID).
			Msg("Subject access denied")
		return &relay.ResolutionError{Subject: object, Message: message}
	}
	return nil
}

func (r *Resolver) notFound(subject, message string, err error) error {
	metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
	return &relay.ResolutionError{Subject: subject, Message: message, Err: err}
}

func (r *Resolver) storeError(subject string, err error) error {
	metrics.ResolutionsTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("load %s: %w", subject, err)
}
