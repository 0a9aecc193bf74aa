// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/catalogus/internal/cache"
	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/middleware"
	"github.com/tomtom215/catalogus/internal/models"
)

// Version is reported by the health endpoints.
var Version = "dev"

// Enqueuer queues a dataloader request for the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, req models.DataLoaderRequest) error
}

// Handler serves the catalog endpoints.
type Handler struct {
	catalog  *catalog.Service
	jobs     Enqueuer
	importer CSVImporter
	config   *config.Config

	// responses caches rendered program details per partner and query.
	responses *cache.Cache
	perf      *middleware.PerformanceMonitor

	defaultPageSize int
	maxPageSize     int
	startTime       time.Time
	now             func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithImporter enables the CSV import endpoint.
func WithImporter(imp CSVImporter) HandlerOption {
	return func(h *Handler) { h.importer = imp }
}

// NewHandler creates the handler. jobs may be nil, in which case the
// dataloader endpoint reports the queue as unavailable.
func NewHandler(svc *catalog.Service, jobs Enqueuer, cfg *config.Config, opts ...HandlerOption) *Handler {
	ttl := cfg.Catalog.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	defaultSize := cfg.API.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = 20
	}
	h := &Handler{
		catalog:         svc,
		jobs:            jobs,
		config:          cfg,
		responses:       cache.New("responses", ttl, ttl),
		perf:            middleware.NewPerformanceMonitor(1000, time.Second),
		defaultPageSize: defaultSize,
		maxPageSize:     cfg.API.MaxPageSize,
		startTime:       time.Now(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Close stops the response cache janitor.
func (h *Handler) Close() {
	h.responses.Stop()
}

type partnerKey struct{}

// ResolvePartner stores the partner of the request's host in the context.
// Unknown hosts get 404 when no default partner is configured.
func (h *Handler) ResolvePartner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.catalog.ResolvePartner(r.Context(), r.Host)
		if errors.Is(err, catalog.ErrPartnerNotFound) {
			NewResponseWriter(w, r).NotFound("No partner is configured for this site")
			return
		}
		if err != nil {
			NewResponseWriter(w, r).DatabaseError(err)
			return
		}
		ctx := context.WithValue(r.Context(), partnerKey{}, p)
		ctx = logging.ContextWithPartner(ctx, p.ShortCode)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// partnerFrom returns the partner stored by ResolvePartner.
func partnerFrom(r *http.Request) *models.Partner {
	p, _ := r.Context().Value(partnerKey{}).(*models.Partner)
	return p
}

// writeServiceError maps catalog errors onto the envelope.
func writeServiceError(rw *ResponseWriter, err error, notFound string) {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationError, ve.Message,
			map[string]interface{}{"field": ve.Field})
	case errors.Is(err, catalog.ErrNotFound):
		rw.NotFound(notFound)
	case errors.Is(err, catalog.ErrConflict):
		rw.Conflict(err.Error())
	case errors.Is(err, catalog.ErrUpstream):
		rw.ExternalServiceError("upstream", err)
	default:
		rw.DatabaseError(err)
	}
}
