// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"context"
	"fmt"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/search"
)

// reindexBatch bounds the runs sent per bulk request.
const reindexBatch = 500

// SearchCourseRuns queries the search index, falling back to the database
// when the index is disabled or failing.
func (s *Service) SearchCourseRuns(ctx context.Context, partner *models.Partner, q search.CourseRunQuery) (*search.CourseRunResults, error) {
	q.Partner = partner.ShortCode
	if s.index != nil {
		res, err := s.index.SearchCourseRuns(ctx, q)
		if err == nil {
			return res, nil
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Search index unavailable, falling back to database search")
	}
	return s.searchDatabase(ctx, partner, q)
}

func (s *Service) searchDatabase(ctx context.Context, partner *models.Partner, q search.CourseRunQuery) (*search.CourseRunResults, error) {
	now := s.now()
	runs, total, err := s.store.SearchCourseRuns(ctx, partner.ID, database.CourseRunFilter{
		Q:            q.Q,
		Key:          q.Key,
		Keys:         q.Keys,
		ExcludeKeys:  q.ExcludeKeys,
		Published:    q.Published,
		Availability: q.Availability,
		Featured:     q.Featured,
		Title:        q.Title,
		Number:       q.Number,
		Limit:        q.Limit,
		Offset:       q.Offset,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	courses := map[string]*models.Course{}
	docs := make([]search.CourseRunDocument, 0, len(runs))
	for i := range runs {
		course, err := s.courseForRun(ctx, partner, courses, &runs[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, search.NewCourseRunDocument(partner.ShortCode, course, &runs[i], now))
	}
	return &search.CourseRunResults{Total: total, Results: docs}, nil
}

func (s *Service) courseForRun(ctx context.Context, partner *models.Partner, seen map[string]*models.Course, run *models.CourseRun) (*models.Course, error) {
	if c, ok := seen[run.CourseKey]; ok {
		return c, nil
	}
	c, err := s.store.GetCourseByKey(ctx, partner.ID, run.CourseKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load course %s: %w", run.CourseKey, err)
	}
	seen[run.CourseKey] = c
	return c, nil
}

// reindex sends runs of course to the search index. Failures are logged and
// never fail the write that triggered them.
func (s *Service) reindex(ctx context.Context, partner *models.Partner, course *models.Course, runs []models.CourseRun) {
	if s.index == nil || len(runs) == 0 {
		return
	}
	now := s.now()
	docs := make([]search.CourseRunDocument, 0, len(runs))
	for i := range runs {
		docs = append(docs, search.NewCourseRunDocument(partner.ShortCode, course, &runs[i], now))
	}
	if err := s.index.IndexCourseRuns(ctx, docs); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("course", course.Key).Msg("Failed to index course runs")
	}
}

// ReindexPartner indexes every run of the partner and returns the count.
func (s *Service) ReindexPartner(ctx context.Context, partner *models.Partner) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	now := s.now()
	courses := map[string]*models.Course{}
	indexed := 0
	for offset := 0; ; offset += reindexBatch {
		runs, total, err := s.store.SearchCourseRuns(ctx, partner.ID, database.CourseRunFilter{
			Limit:  reindexBatch,
			Offset: offset,
			Now:    now,
		})
		if err != nil {
			return indexed, err
		}
		docs := make([]search.CourseRunDocument, 0, len(runs))
		for i := range runs {
			course, err := s.courseForRun(ctx, partner, courses, &runs[i])
			if err != nil {
				return indexed, err
			}
			docs = append(docs, search.NewCourseRunDocument(partner.ShortCode, course, &runs[i], now))
		}
		if len(docs) > 0 {
			if err := s.index.IndexCourseRuns(ctx, docs); err != nil {
				return indexed, err
			}
		}
		indexed += len(docs)
		if len(runs) < reindexBatch || offset+len(runs) >= total {
			break
		}
	}
	logging.Ctx(ctx).Info().Str("partner", partner.ShortCode).Int("runs", indexed).Msg("Reindexed partner course runs")
	return indexed, nil
}

// RemoveUnusedIndexes deletes unaliased indexes beyond the newest keep.
func (s *Service) RemoveUnusedIndexes(ctx context.Context, keep int) ([]string, error) {
	if s.index == nil {
		return nil, nil
	}
	return s.index.RemoveUnusedIndexes(ctx, keep)
}
