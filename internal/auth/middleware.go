// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/models"
)

// UserStore loads the account a token refers to.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Middleware authenticates requests by JWT from the session cookie or a
// Bearer Authorization header.
type Middleware struct {
	jwtManager *JWTManager
	users      UserStore
	cookieName string
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(jwtManager *JWTManager, users UserStore, cookieName string) *Middleware {
	if cookieName == "" {
		cookieName = "token"
	}
	return &Middleware{
		jwtManager: jwtManager,
		users:      users,
		cookieName: cookieName,
	}
}

// Authenticate is middleware that enforces authentication. The user named by
// the token must still exist; its current role is used, not the token's.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.extractJWTToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Msg("Token validation failed")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		user, err := m.users.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			logging.Warn().Err(err).Int64("user_id", claims.UserID).Msg("Token user lookup failed")
			http.Error(w, "Unauthorized: this user doesn't exist, please log in again", http.StatusUnauthorized)
			return
		}

		ctx := WithUser(r.Context(), user)
		ctx = logging.ContextWithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractJWTToken extracts JWT token from Authorization header or cookie
func (m *Middleware) extractJWTToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			return "", fmt.Errorf("unauthorized: missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}

	return parts[1], nil
}
