// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and reports fields by their json tag name.
//
//	type trackParams struct {
//	    PersonID int64 `json:"personId" validate:"gt=0"`
//	    VideoID  int64 `json:"videoId" validate:"gt=0"`
//	}
//
//	if verr := validation.ValidateStruct(&params); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // "personId must be greater than 0"
//	}
package validation
