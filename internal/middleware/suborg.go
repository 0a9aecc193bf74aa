// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package middleware

import (
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/logging"
)

const (
	// LoggedInStatusCookie carries the marketing-site login state, including
	// the edly sub-organization slug.
	LoggedInStatusCookie = "logged_in_status"

	// DefaultSubOrganization is used when the cookie is missing or unreadable.
	DefaultSubOrganization = "edly"
)

// SubOrganization stores the edly sub-organization from the logged_in_status
// cookie in the request context.
func SubOrganization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithSubOrganization(r.Context(), subOrganizationFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func subOrganizationFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(LoggedInStatusCookie)
	if err != nil || cookie.Value == "" {
		return DefaultSubOrganization
	}

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		raw = cookie.Value
	}

	var status struct {
		EdlySubOrganization string `json:"edly-sub-org"`
	}
	if err := json.Unmarshal([]byte(raw), &status); err != nil || status.EdlySubOrganization == "" {
		return DefaultSubOrganization
	}
	return status.EdlySubOrganization
}
