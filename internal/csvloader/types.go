// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package csvloader

import (
	"time"
)

// Stats holds counters for one ingest run.
type Stats struct {
	// Path and Checksum identify the ingested file.
	Path     string `json:"path"`
	Checksum string `json:"checksum"`

	// TotalRows is the number of data rows in the file.
	TotalRows int64 `json:"total_rows"`

	// Processed counts rows handled in this and earlier resumed runs.
	Processed int64 `json:"processed"`

	// Created counts courses that did not exist before.
	Created int64 `json:"created"`

	// Succeeded counts rows whose course and run were written.
	Succeeded int64 `json:"succeeded"`

	// Skipped counts rows rejected before any write.
	Skipped int64 `json:"skipped"`

	// Failed counts rows that errored during a write.
	Failed int64 `json:"failed"`

	// LastRow is the 1-based index of the last processed data row.
	LastRow int64 `json:"last_row"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	DryRun    bool      `json:"dry_run"`
}

// Duration returns the elapsed time of the run.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Progress returns the processed share of rows as a percentage.
func (s *Stats) Progress() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.TotalRows) * 100
}

// RowsPerSecond returns the ingest rate.
func (s *Stats) RowsPerSecond() float64 {
	seconds := s.Duration().Seconds()
	if seconds == 0 {
		return 0
	}
	return float64(s.Processed) / seconds
}
