// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogus_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogus_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogus_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Authorization
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_authz_decisions_total",
			Help: "Authorization decisions by resource, action and decision",
		},
		[]string{"object", "action", "decision"},
	)

	// Catalog cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_cache_hits_total",
			Help: "Cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_cache_misses_total",
			Help: "Cache misses by cache name",
		},
		[]string{"cache"},
	)

	// CSV loader
	CSVRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_csv_rows_total",
			Help: "CSV rows processed by outcome (success, skipped, failed)",
		},
		[]string{"outcome"},
	)

	CSVImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalogus_csv_import_duration_seconds",
			Help:    "Duration of a complete CSV import",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Data loaders
	DataLoaderRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_dataloader_runs_total",
			Help: "Data loader pipeline runs by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	DataLoaderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogus_dataloader_duration_seconds",
			Help:    "Data loader pipeline duration by service",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 300, 900},
		},
		[]string{"service"},
	)

	DataLoaderJobsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_dataloader_jobs_queued_total",
			Help: "Data loader jobs published to the queue",
		},
		[]string{"service"},
	)

	// Search
	SearchOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_search_operations_total",
			Help: "Search index operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogus_search_duration_seconds",
			Help:    "Search index operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Upstream clients
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_upstream_requests_total",
			Help: "Outbound requests by upstream and status class",
		},
		[]string{"upstream", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalogus_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogus_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordDBQuery observes one query and counts it as an error when err is set.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordAuthzDecision(object, action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(object, action, decision).Inc()
}

func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordCSVRow counts a CSV row; outcome is success, skipped or failed.
func RecordCSVRow(outcome string) {
	CSVRowsTotal.WithLabelValues(outcome).Inc()
}

func RecordDataLoaderRun(service string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	DataLoaderRuns.WithLabelValues(service, outcome).Inc()
	DataLoaderDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func RecordSearchOperation(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SearchOperations.WithLabelValues(operation, outcome).Inc()
	SearchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordUpstreamRequest counts an outbound call by status class (2xx, 4xx, 5xx, error).
func RecordUpstreamRequest(upstream string, statusCode int, err error) {
	status := "error"
	switch {
	case err != nil && statusCode == 0:
	case statusCode >= 500:
		status = "5xx"
	case statusCode >= 400:
		status = "4xx"
	case statusCode >= 200:
		status = "2xx"
	}
	UpstreamRequests.WithLabelValues(upstream, status).Inc()
}
