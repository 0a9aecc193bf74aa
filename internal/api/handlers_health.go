// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/catalogus/internal/models"
)

const (
	checkOK       = "ok"
	checkDown     = "unavailable"
	checkDisabled = "disabled"
)

func (h *Handler) dependencyChecks(r *http.Request) (db, idx string) {
	db = checkOK
	if err := h.catalog.Ping(r.Context()); err != nil {
		db = checkDown
	}
	idx = checkDisabled
	if h.catalog.SearchEnabled() {
		idx = checkOK
		if err := h.catalog.PingSearch(r.Context()); err != nil {
			idx = checkDown
		}
	}
	return db, idx
}

// Health handles health check requests
//
// @Summary Get system health status
// @Description Database and search index connectivity plus uptime. A down search index only degrades the service.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	db, idx := h.dependencyChecks(r)
	status := "healthy"
	switch {
	case db != checkOK:
		status = "unhealthy"
	case idx == checkDown:
		status = "degraded"
	}

	NewResponseWriter(w, r).Success(models.HealthStatus{
		Status:    status,
		Version:   Version,
		Database:  db,
		Search:    idx,
		Uptime:    time.Since(h.startTime).Seconds(),
		Timestamp: time.Now(),
	})
}

// HealthLive handles liveness check requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
//
// @Summary Kubernetes liveness check
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness check requests (Kubernetes-style)
// Returns 200 OK only when the database answers and the search index, if
// configured, answers too.
//
// @Summary Kubernetes readiness check
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	db, idx := h.dependencyChecks(r)
	ready := db == checkOK && idx != checkDown

	statusCode, status := http.StatusOK, "ready"
	if !ready {
		statusCode, status = http.StatusServiceUnavailable, "not_ready"
	}
	rw := NewResponseWriter(w, r)
	rw.writeJSON(statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"database":       db,
			"search":         idx,
			"ready_to_serve": ready,
			"uptime":         time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Performance reports request latency per route over the recent window.
//
// @Summary Request latency per route
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]middleware.RouteStats}
// @Router /performance [get]
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.perf.Stats())
}
