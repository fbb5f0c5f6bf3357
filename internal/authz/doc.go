// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package authz decides who may track which subjects, using Casbin.
//
// Every check carries the caller's user id and role together with the owner
// of the object being accessed:
//
//	[request_definition]
//	r = sub, role, owner, obj, act
//
//	[matchers]
//	m = g(r.role, p.sub) && keyMatch(r.obj, p.obj) &&
//	    (p.act == "*" || r.act == p.act) &&
//	    (p.sub == "admin" || r.sub == r.owner)
//
// Admins may act on any record. Other users may only track people and videos
// whose user_id matches their own, and may stop only their own session.
// The listing of all sessions is admin only.
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(nil) // embedded model and policy
//	if err != nil {
//	    return err
//	}
//	defer enforcer.Close()
//
//	ok, err := enforcer.Authorize(
//	    authz.Principal{UserID: user.ID, Role: user.Role},
//	    authz.ObjectPerson, authz.ActionTrack, person.UserID)
//
// HTTP routes use Middleware.Require, which reads the authenticated user
// placed in the request context by internal/auth.
//
// # Configuration
//
// ModelPath and PolicyPath override the embedded model.conf and policy.csv.
// Decisions are cached for CacheTTL; any policy change clears the cache.
package authz
