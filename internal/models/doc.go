// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package models defines the data structures shared by the store, the subject
resolver and the HTTP layer.

Key Components:

  - User: account with a role (user or admin)
  - Person: someone to track, with a face embedding
  - Video: a video file owned by a user
  - TrackingSubject: person + video as sent upstream in the initialize frame
  - APIResponse / APIError: JSON envelope for HTTP responses
*/
package models
