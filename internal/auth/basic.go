// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthManager checks HTTP Basic credentials against one account whose
// password is bcrypt-hashed at construction.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password with bcrypt cost 12.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &BasicAuthManager{username: username, passwordHash: hash}, nil
}

// Username returns the configured account name.
func (m *BasicAuthManager) Username() string {
	return m.username
}

// ValidateRequest checks the request's Basic credentials and returns the
// username on success.
func (m *BasicAuthManager) ValidateRequest(r *http.Request) (string, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return "", ErrNoCredentials
	}
	if !m.Check(username, password) {
		return "", ErrInvalidCredentials
	}
	return username, nil
}

// Check compares both fields without short-circuiting.
func (m *BasicAuthManager) Check(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// WWWAuthenticate is the challenge sent with 401 responses.
const WWWAuthenticate = `Basic realm="Catalogus", charset="UTF-8"`
