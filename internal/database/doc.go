// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package database provides the DuckDB-backed store of users, people and
videos.

The relay only reads from the store: the subject resolver loads a person
and a video before a session is created, and the auth layer loads users for
login and token validation. Writes come from seeding (EnsureAdmin) and from
tests.

Lookups return ErrNotFound for missing rows. Ownership is not checked here;
internal/subjects applies the owner/admin policy on top of these lookups.

Every query is timed into duckdb_query_duration_seconds and failures are
counted in duckdb_query_errors_total, labeled by operation and table.

Usage:

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	person, err := db.GetPerson(ctx, personID)
*/
package database
