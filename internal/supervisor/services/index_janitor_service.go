// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package services

import (
	"context"
	"time"

	"github.com/tomtom215/catalogus/internal/logging"
)

// IndexPruner deletes search indexes no alias points at.
//
// Satisfied by *catalog.Service.
type IndexPruner interface {
	RemoveUnusedIndexes(ctx context.Context, keep int) ([]string, error)
}

// IndexJanitorService periodically drops stale search indexes left behind
// by alias swaps, keeping the newest keep of them for rollback.
type IndexJanitorService struct {
	pruner   IndexPruner
	interval time.Duration
	keep     int
	name     string
}

// NewIndexJanitorService returns a janitor sweeping every interval.
func NewIndexJanitorService(pruner IndexPruner, interval time.Duration, keep int) *IndexJanitorService {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if keep < 1 {
		keep = 1
	}
	return &IndexJanitorService{
		pruner:   pruner,
		interval: interval,
		keep:     keep,
		name:     "index-janitor",
	}
}

// Serve implements suture.Service. Sweep failures are logged, not returned:
// an unreachable cluster is retried on the next tick without burning the
// supervisor's restart budget.
func (s *IndexJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *IndexJanitorService) sweep(ctx context.Context) {
	removed, err := s.pruner.RemoveUnusedIndexes(ctx, s.keep)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warn().Err(err).Msg("Index sweep failed")
		}
		return
	}
	if len(removed) > 0 {
		logging.Info().Strs("indexes", removed).Msg("Removed unused search indexes")
	}
}

// String names the service in supervisor events.
func (s *IndexJanitorService) String() string {
	return s.name
}
