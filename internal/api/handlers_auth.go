// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trackrelay/internal/auth"
	"github.com/tomtom215/trackrelay/internal/database"
	"github.com/tomtom215/trackrelay/internal/models"
)

// maxLoginBodyBytes bounds the login request body.
const maxLoginBodyBytes = 4 << 10

// Login authenticates email and password and issues the session token,
// both in the response body and as the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAndValidateLoginRequest(w, r)
	if !ok {
		return
	}

	user, ok := h.authenticateCredentials(w, r, req)
	if !ok {
		return
	}

	h.generateAndSendToken(w, r, user)
}

// parseAndValidateLoginRequest parses and validates the login request body
func (h *Handler) parseAndValidateLoginRequest(w http.ResponseWriter, r *http.Request) (*LoginRequest, bool) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", nil)
		return nil, false
	}
	req.Email = strings.TrimSpace(req.Email)

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return nil, false
	}
	return &req, true
}

// authenticateCredentials looks up the user and checks the password. Unknown
// emails and wrong passwords get the same response.
func (h *Handler) authenticateCredentials(w http.ResponseWriter, r *http.Request, req *LoginRequest) (*models.User, bool) {
	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed", err)
			return nil, false
		}
		h.security.LogLoginFailure(0, req.Email, r.RemoteAddr, r.UserAgent(), "unknown email")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return nil, false
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.security.LogLoginFailure(user.ID, req.Email, r.RemoteAddr, r.UserAgent(), "wrong password")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return nil, false
	}
	return user, true
}

// generateAndSendToken generates the JWT, sets the cookie and sends the response
func (h *Handler) generateAndSendToken(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, expiresAt, err := h.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate authentication token", err)
		return
	}

	auth.SetSessionCookie(w, h.config.Security.CookieName, token, expiresAt, h.secureCookies(r))

	h.security.LogLoginSuccess(user.ID, user.Email, r.RemoteAddr, r.UserAgent())
	respondSuccess(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
	})
}

// Logout clears the session cookie. Tokens are stateless, so a copied
// token stays valid until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if claims, err := h.jwt.ValidateToken(h.sessionToken(r)); err == nil {
		userID = claims.UserID
	}
	h.security.LogLogout(userID, r.RemoteAddr)

	auth.ClearSessionCookie(w, h.config.Security.CookieName, h.secureCookies(r))
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"logged_out": true,
		"at":         time.Now(),
	})
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required", nil)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// sessionToken returns the bearer token or session cookie, whichever is set.
func (h *Handler) sessionToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	if cookie, err := r.Cookie(h.config.Security.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *Handler) secureCookies(r *http.Request) bool {
	return h.config.Security.CookieSecure || r.TLS != nil
}
