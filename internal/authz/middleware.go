// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package authz

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/auth"
	"github.com/tomtom215/catalogus/internal/logging"
)

// Middleware authorizes requests that already carry an auth.Principal.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware wraps enforcer.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize requires permission for object with the action derived from
// the HTTP method.
func (m *Middleware) Authorize(object string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.check(w, r, next, object, methodToAction(r.Method))
		})
	}
}

// AuthorizeAction requires permission for an explicit object and action.
func (m *Middleware) AuthorizeAction(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.check(w, r, next, object, action)
		})
	}
}

func (m *Middleware) check(w http.ResponseWriter, r *http.Request, next http.Handler, object, action string) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeForbidden(w)
		return
	}

	allowed, err := m.enforcer.EnforceWithRoles(principal.Username, principal.Roles, object, action)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("object", object).Msg("Authorization error")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !allowed {
		logging.CtxInfo(r.Context()).
			Str("username", principal.Username).
			Str("object", object).
			Str("action", action).
			Msg("Authorization denied")
		writeForbidden(w)
		return
	}
	next.ServeHTTP(w, r)
}

// ReadOnlyByPublisherUser lets GET requests through only for callers in at
// least one group; other methods pass.
func ReadOnlyByPublisherUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil || !principal.HasGroups() {
				writeForbidden(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	default:
		return ActionWrite
	}
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"detail": "You do not have permission to perform this action.",
	})
}
