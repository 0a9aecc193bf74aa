// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	partnerKey       contextKey = "partner"
	subOrgKey        contextKey = "sub_org"
)

// GenerateCorrelationID returns the first 8 characters of a random UUID.
// Loader runs and background jobs use it to tie their log lines together.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID returns a full random UUID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID returns ctx carrying the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns ctx carrying a fresh correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns ctx carrying the HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithPartner records the partner short code serving the request.
func ContextWithPartner(ctx context.Context, shortCode string) context.Context {
	return context.WithValue(ctx, partnerKey, shortCode)
}

// PartnerFromContext returns the partner short code or "".
func PartnerFromContext(ctx context.Context) string {
	if code, ok := ctx.Value(partnerKey).(string); ok {
		return code
	}
	return ""
}

// ContextWithSubOrganization records the sub-organization taken from the
// logged_in_status cookie.
func ContextWithSubOrganization(ctx context.Context, subOrg string) context.Context {
	return context.WithValue(ctx, subOrgKey, subOrg)
}

// SubOrganizationFromContext returns the sub-organization or "".
func SubOrganizationFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(subOrgKey).(string); ok {
		return s
	}
	return ""
}

// Ctx returns the global logger enriched with the IDs found in ctx.
//
//	logging.Ctx(ctx).Info().Msg("Program created")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if code := PartnerFromContext(ctx); code != "" {
		logCtx = logCtx.Str("partner", code)
	}
	if subOrg := SubOrganizationFromContext(ctx); subOrg != "" {
		logCtx = logCtx.Str("sub_org", subOrg)
	}

	logger := logCtx.Logger()
	return &logger
}

// CtxInfo is shorthand for Ctx(ctx).Info().
func CtxInfo(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Info()
}

// CtxWarn is shorthand for Ctx(ctx).Warn().
func CtxWarn(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Warn()
}

// CtxErr is shorthand for Ctx(ctx).Err(err).
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}

// WithComponent returns a child logger tagged with a component name.
//
//	csvLog := logging.WithComponent("csvloader")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
