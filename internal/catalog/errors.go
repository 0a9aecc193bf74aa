// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"errors"
	"fmt"

	"github.com/tomtom215/catalogus/internal/database"
)

var (
	// ErrNotFound is returned for a missing program, course or run.
	ErrNotFound = database.ErrNotFound
	// ErrConflict is returned when a course key is already taken.
	ErrConflict = database.ErrConflict
	// ErrPartnerNotFound is returned when no partner matches.
	ErrPartnerNotFound = errors.New("partner not found")
	// ErrBadImageData is returned for a malformed image data URI.
	ErrBadImageData = errors.New("bad image data")
	// ErrUpstream wraps Studio and Ecommerce failures.
	ErrUpstream = errors.New("upstream service error")
)

// ValidationError rejects a write whose field refers to unknown data.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
