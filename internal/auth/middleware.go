// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package auth

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
)

// Middleware authenticates requests according to the configured AuthMode.
type Middleware struct {
	mode            AuthMode
	jwtManager      *JWTManager
	basicManager    *BasicAuthManager
	adminUsername   string
	serviceUsername string
	panelWorkerUser string
}

// NewMiddleware builds the authenticator for cfg.AuthMode. jwtManager is
// required in jwt mode and basicManager in basic mode.
func NewMiddleware(cfg *config.SecurityConfig, jwtManager *JWTManager, basicManager *BasicAuthManager) (*Middleware, error) {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}
	return &Middleware{
		mode:            mode,
		jwtManager:      jwtManager,
		basicManager:    basicManager,
		adminUsername:   cfg.AdminUsername,
		serviceUsername: cfg.ServiceUsername,
		panelWorkerUser: cfg.PanelWorkerUser,
	}, nil
}

// Mode returns the active authentication mode.
func (m *Middleware) Mode() AuthMode {
	return m.mode
}

// Authenticate rejects unauthenticated requests with 401 and stores the
// Principal in the context otherwise.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			principal *Principal
			err       error
		)

		switch m.mode {
		case AuthModeNone:
			principal = &Principal{
				Username: "anonymous",
				Roles:    []string{RoleAdmin, RoleAuthenticated},
				Groups:   []string{"local"},
			}
		case AuthModeBasic:
			principal, err = m.authenticateBasic(r)
		default:
			principal, err = m.authenticateJWT(r)
		}

		if err != nil {
			logging.CtxWarn(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			if m.mode == AuthModeBasic {
				w.Header().Set("WWW-Authenticate", WWWAuthenticate)
			}
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided or are invalid.")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func (m *Middleware) authenticateBasic(r *http.Request) (*Principal, error) {
	username, err := m.basicManager.ValidateRequest(r)
	if err != nil {
		return nil, err
	}
	return m.PrincipalFor(username), nil
}

func (m *Middleware) authenticateJWT(r *http.Request) (*Principal, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, ErrNoCredentials
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	p := claims.Principal()
	if !p.HasRole(RoleAuthenticated) {
		p.Roles = append(p.Roles, RoleAuthenticated)
	}
	return p, nil
}

// PrincipalFor maps a configured account name to its roles: the admin
// account is admin, the service account is staff and the panel worker has
// its own role.
func (m *Middleware) PrincipalFor(username string) *Principal {
	roles := []string{RoleAuthenticated}
	switch username {
	case m.adminUsername:
		roles = append(roles, RoleAdmin)
	case m.serviceUsername:
		roles = append(roles, RoleStaff)
	case m.panelWorkerUser:
		roles = append(roles, RolePanelWorker)
	}
	return &Principal{Username: username, Roles: roles, Groups: []string{"publisher"}}
}

// bearerToken reads "Authorization: Bearer <t>" or "JWT <t>", then the
// token cookie.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && (strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "JWT")) {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode auth error")
	}
}
