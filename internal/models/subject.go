// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package models

import (
	"encoding/base64"
	"time"
)

// Person is someone to find in a video. Embedding is the face embedding
// computed at enrollment; it is opaque to this service.
type Person struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Embedding []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Video is an uploaded video file on the tracking service's disk.
type Video struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// TrackingSubject is the subject sent to the upstream tracker in the
// initialize frame: the person's fields with the embedding base64-encoded,
// plus the video to search.
type TrackingSubject struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Name      string       `json:"name"`
	Embedding string       `json:"embedding"`
	Video     VideoSubject `json:"video"`
}

// VideoSubject is the video part of a TrackingSubject.
type VideoSubject struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Path   string `json:"path"`
}

// NewTrackingSubject builds the upstream subject for person in video.
func NewTrackingSubject(person *Person, video *Video) TrackingSubject {
	return TrackingSubject{
		ID:        person.ID,
		UserID:    person.UserID,
		Name:      person.Name,
		Embedding: base64.StdEncoding.EncodeToString(person.Embedding),
		Video: VideoSubject{
			ID:     video.ID,
			UserID: video.UserID,
			Path:   video.Path,
		},
	}
}
