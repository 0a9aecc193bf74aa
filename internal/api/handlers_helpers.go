// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/validation"
)

// maxBodyBytes bounds request bodies; card images arrive base64 encoded.
const maxBodyBytes = 16 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// generateETag creates a simple ETag from data using FNV-1a hash
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return `"` + strconv.FormatUint(uint64(hash), 16) + `"`
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}
	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getBoolParam treats 1, true, yes and on as set.
func getBoolParam(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// getOptionalBoolParam returns nil when key is absent.
func getOptionalBoolParam(r *http.Request, key string) *bool {
	if !r.URL.Query().Has(key) {
		return nil
	}
	v := getBoolParam(r, key)
	return &v
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// listParam collects repeated and comma-separated values of key.
func listParam(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		out = append(out, parseCommaSeparated(v)...)
	}
	return out
}

// pagination is the resolved window of a list request. Both page/page_size
// and limit/offset styles are accepted; the links follow the style used.
type pagination struct {
	limit     int
	offset    int
	pageStyle bool
}

func (h *Handler) paginate(r *http.Request) pagination {
	size := h.defaultPageSize
	if r.URL.Query().Has("limit") || r.URL.Query().Has("offset") {
		limit := getIntParam(r, "limit", size)
		return pagination{limit: h.clampPageSize(limit), offset: max(getIntParam(r, "offset", 0), 0)}
	}
	size = h.clampPageSize(getIntParam(r, "page_size", size))
	page := max(getIntParam(r, "page", 1), 1)
	return pagination{limit: size, offset: (page - 1) * size, pageStyle: true}
}

func (h *Handler) clampPageSize(n int) int {
	if n <= 0 {
		return h.defaultPageSize
	}
	if h.maxPageSize > 0 && n > h.maxPageSize {
		return h.maxPageSize
	}
	return n
}

// page builds the {count, next, previous, results} body.
func (p pagination) page(r *http.Request, count int, results interface{}) *models.Page {
	body := &models.Page{Count: count, Results: results}
	if p.offset+p.limit < count {
		body.Next = p.link(r, p.offset+p.limit)
	}
	if p.offset > 0 {
		body.Previous = p.link(r, max(p.offset-p.limit, 0))
	}
	return body
}

func (p pagination) link(r *http.Request, offset int) *string {
	q := r.URL.Query()
	if p.pageStyle {
		q.Del("page")
		if page := offset/p.limit + 1; page > 1 {
			q.Set("page", strconv.Itoa(page))
		}
	} else {
		q.Set("limit", strconv.Itoa(p.limit))
		q.Set("offset", strconv.Itoa(offset))
	}
	u := url.URL{Scheme: requestScheme(r), Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		return "https"
	}
	return "http"
}
