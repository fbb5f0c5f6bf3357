// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package subjects resolves the person and video a tracking session refers
// to. The user must exist, and both records must belong to them unless they
// are an admin. Failures come back as *relay.ResolutionError carrying the
// message shown to the client; store failures are plain wrapped errors.
package subjects
