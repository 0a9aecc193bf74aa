// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/catalogus/internal/logging"
)

// RequestSample is one finished request.
type RequestSample struct {
	Route      string
	Method     string
	Duration   time.Duration
	StatusCode int
}

// RouteStats aggregates the samples of one method and route pattern.
type RouteStats struct {
	Route        string  `json:"route"`
	RequestCount int64   `json:"request_count"`
	ErrorCount   int64   `json:"error_count"`
	AvgMS        float64 `json:"avg_ms"`
	P50MS        int64   `json:"p50_ms"`
	P95MS        int64   `json:"p95_ms"`
	P99MS        int64   `json:"p99_ms"`
	MaxMS        int64   `json:"max_ms"`
}

// PerformanceMonitor keeps a sliding window of request durations per route
// and warns about requests slower than its threshold.
type PerformanceMonitor struct {
	mu         sync.RWMutex
	samples    []RequestSample
	next       int
	full       bool
	slowAfter  time.Duration
	totalCount map[string]int64
}

// NewPerformanceMonitor keeps the last window samples. slowAfter <= 0
// disables the slow request warning.
func NewPerformanceMonitor(window int, slowAfter time.Duration) *PerformanceMonitor {
	if window <= 0 {
		window = 1000
	}
	return &PerformanceMonitor{
		samples:    make([]RequestSample, window),
		slowAfter:  slowAfter,
		totalCount: make(map[string]int64),
	}
}

// Record adds s to the window, evicting the oldest sample when full.
func (pm *PerformanceMonitor) Record(s RequestSample) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.samples[pm.next] = s
	pm.next = (pm.next + 1) % len(pm.samples)
	if pm.next == 0 {
		pm.full = true
	}
	pm.totalCount[s.Method+" "+s.Route]++
}

// Stats summarizes the window per route, busiest first. RequestCount is
// the lifetime count; the percentiles cover the window.
func (pm *PerformanceMonitor) Stats() []RouteStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	n := pm.next
	if pm.full {
		n = len(pm.samples)
	}
	durations := make(map[string][]int64)
	failures := make(map[string]int64)
	for _, s := range pm.samples[:n] {
		key := s.Method + " " + s.Route
		durations[key] = append(durations[key], s.Duration.Milliseconds())
		if s.StatusCode >= http.StatusInternalServerError {
			failures[key]++
		}
	}

	stats := make([]RouteStats, 0, len(durations))
	for route, ds := range durations {
		sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
		var sum int64
		for _, d := range ds {
			sum += d
		}
		stats = append(stats, RouteStats{
			Route:        route,
			RequestCount: pm.totalCount[route],
			ErrorCount:   failures[route],
			AvgMS:        float64(sum) / float64(len(ds)),
			P50MS:        percentile(ds, 0.50),
			P95MS:        percentile(ds, 0.95),
			P99MS:        percentile(ds, 0.99),
			MaxMS:        ds[len(ds)-1],
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Route < stats[j].Route
	})
	return stats
}

// Middleware times each request under its chi route pattern.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		elapsed := time.Since(start)
		route := routePattern(r)
		pm.Record(RequestSample{Route: route, Method: r.Method, Duration: elapsed, StatusCode: wrapper.statusCode})

		if pm.slowAfter > 0 && elapsed > pm.slowAfter {
			logging.CtxWarn(r.Context()).
				Str("method", r.Method).
				Str("route", route).
				Int64("duration_ms", elapsed.Milliseconds()).
				Msg("Slow request detected")
		}
	})
}

// percentile reads p from sorted.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
