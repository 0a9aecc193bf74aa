// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"net/http"

	"github.com/tomtom215/catalogus/internal/search"
)

// SearchCourseRuns runs a course-run search against the index, falling
// back to the database when the index is unavailable.
//
// @Summary Search course runs
// @Tags Search
// @Produce json
// @Param q query string false "Full-text query over title and descriptions"
// @Param key query string false "Exact run key"
// @Param keys query string false "Comma-separated run keys"
// @Param exclude_key query string false "Run keys to exclude"
// @Param published query bool false "Published runs only"
// @Param availability query string false "Availability label"
// @Param featured query bool false "Featured runs only"
// @Param title query string false "Title match"
// @Param number query string false "Course number"
// @Success 200 {object} models.Page
// @Failure 502 {object} models.APIResponse
// @Router /search/course_runs/ [get]
func (h *Handler) SearchCourseRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	partner := partnerFrom(r)
	pg := h.paginate(r)
	f := courseRunFilter(r)

	results, err := h.catalog.SearchCourseRuns(r.Context(), partner, search.CourseRunQuery{
		Q:            f.Q,
		Partner:      partner.ShortCode,
		Key:          f.Key,
		Keys:         f.Keys,
		ExcludeKeys:  f.ExcludeKeys,
		Published:    f.Published,
		Availability: f.Availability,
		Featured:     f.Featured,
		Title:        f.Title,
		Number:       f.Number,
		Limit:        pg.limit,
		Offset:       pg.offset,
	})
	if err != nil {
		rw.ExternalServiceError("search", err)
		return
	}
	docs := results.Results
	if docs == nil {
		docs = []search.CourseRunDocument{}
	}
	rw.OK(pg.page(r, results.Total, docs))
}
