// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package auth

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/logging"
)

// LoginHandler exchanges admin credentials for a JWT.
type LoginHandler struct {
	jwtManager   *JWTManager
	basicManager *BasicAuthManager
	middleware   *Middleware
}

// NewLoginHandler returns the handler for POST /api/v1/auth/login.
func NewLoginHandler(jwtManager *JWTManager, basicManager *BasicAuthManager, mw *Middleware) *LoginHandler {
	return &LoginHandler{jwtManager: jwtManager, basicManager: basicManager, middleware: mw}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
}

// ServeHTTP accepts Basic credentials or a JSON body.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.jwtManager == nil || h.basicManager == nil {
		writeDetail(w, http.StatusNotFound, "Login is only available when AUTH_MODE=jwt.")
		return
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid login request.")
			return
		}
		username, password = req.Username, req.Password
	}

	if !h.basicManager.Check(username, password) {
		logging.CtxWarn(r.Context()).Str("username", username).Msg("Login failed")
		writeDetail(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	principal := h.middleware.PrincipalFor(username)
	token, err := h.jwtManager.GenerateToken(principal)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to issue token")
		writeDetail(w, http.StatusInternalServerError, "Failed to issue token.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwtManager.timeout),
		Username:  principal.Username,
		Roles:     principal.Roles,
	}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode login response")
	}
}
