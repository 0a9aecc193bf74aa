// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package auth authenticates API callers with JWT bearer tokens or HTTP
// Basic credentials and stores the resulting Principal in the request
// context.
package auth

import (
	"context"
	"errors"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	AuthModeNone  AuthMode = "none"
	AuthModeBasic AuthMode = "basic"
	AuthModeJWT   AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "none", "":
		return AuthModeNone, nil
	case "basic":
		return AuthModeBasic, nil
	case "jwt":
		return AuthModeJWT, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// Roles understood by the authorization policy.
const (
	RoleAdmin         = "admin"
	RoleStaff         = "staff"
	RolePanelWorker   = "panel_worker"
	RoleAuthenticated = "authenticated"
)

var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Principal is the authenticated caller.
type Principal struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Groups   []string `json:"groups,omitempty"`
}

// HasRole reports whether p holds role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports the staff or admin role.
func (p *Principal) IsStaff() bool {
	return p.HasRole(RoleStaff) || p.HasRole(RoleAdmin)
}

// HasGroups reports membership in at least one group.
func (p *Principal) HasGroups() bool {
	return len(p.Groups) > 0
}

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal returns ctx carrying p.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the authenticated caller or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}
