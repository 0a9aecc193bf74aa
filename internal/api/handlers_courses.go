// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// ListCourses returns the partner's courses.
//
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param q query string false "Title search"
// @Param keys query string false "Comma-separated course keys"
// @Param include_course_runs query int false "Embed course runs"
// @Success 200 {object} models.Page
// @Router /courses/ [get]
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	pg := h.paginate(r)
	courses, total, err := h.catalog.ListCourses(r.Context(), partnerFrom(r), database.CourseFilter{
		Q:           r.URL.Query().Get("q"),
		Keys:        listParam(r, "keys"),
		Limit:       pg.limit,
		Offset:      pg.offset,
		IncludeRuns: getBoolParam(r, "include_course_runs"),
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}
	rw.OK(pg.page(r, total, courses))
}

// GetCourse returns one course by uuid, or by key when the path holds one.
//
// @Summary Get a course
// @Tags Courses
// @Produce json
// @Param uuid path string true "Course UUID or key"
// @Success 200 {object} models.Course
// @Failure 404 {object} models.APIResponse
// @Router /courses/{uuid}/ [get]
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	partner := partnerFrom(r)
	ref := chi.URLParam(r, "uuid")

	var (
		course *models.Course
		err    error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		course, err = h.catalog.GetCourse(r.Context(), partner, id)
	} else {
		course, err = h.catalog.GetCourseByKey(r.Context(), partner, ref)
	}
	if err != nil {
		writeServiceError(rw, err, "Course not found")
		return
	}
	rw.OK(course)
}

// CreateCourse creates a draft course and its first run.
//
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param course body models.CourseCreate true "Course"
// @Success 201 {object} models.Course
// @Failure 400 {object} models.APIResponse
// @Failure 502 {object} models.APIResponse
// @Router /courses/ [post]
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req models.CourseCreate
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr)
		return
	}
	course, err := h.catalog.CreateCourse(r.Context(), partnerFrom(r), &req)
	if err != nil {
		writeServiceError(rw, err, "Course not found")
		return
	}
	h.invalidatePartnerResponses(partnerFrom(r))
	logging.CtxInfo(r.Context()).Str("course", course.Key).Msg("Course created")
	rw.Created(course)
}

// UpdateCourse patches a course.
//
// @Summary Update a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param uuid path string true "Course UUID"
// @Param exclude_utm query int false "Exclude utm parameters"
// @Param course body models.CourseUpdate true "Course fields"
// @Success 200 {object} models.Course
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /courses/{uuid}/ [patch]
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		rw.NotFound("Course not found")
		return
	}
	var req models.CourseUpdate
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr)
		return
	}
	course, err := h.catalog.UpdateCourse(r.Context(), partnerFrom(r), id, &req)
	if err != nil {
		writeServiceError(rw, err, "Course not found")
		return
	}
	h.invalidatePartnerResponses(partnerFrom(r))
	rw.OK(course)
}

// courseRunFilter reads the run filters shared by the list and search
// endpoints.
func courseRunFilter(r *http.Request) database.CourseRunFilter {
	q := r.URL.Query()
	return database.CourseRunFilter{
		Q:            q.Get("q"),
		Key:          q.Get("key"),
		Keys:         listParam(r, "keys"),
		ExcludeKeys:  listParam(r, "exclude_key"),
		Published:    getOptionalBoolParam(r, "published"),
		Availability: listParam(r, "availability"),
		Featured:     getOptionalBoolParam(r, "featured"),
		Title:        q.Get("title"),
		Number:       q.Get("number"),
	}
}

// ListCourseRuns returns the partner's course runs.
//
// @Summary List course runs
// @Tags Course Runs
// @Produce json
// @Param keys query string false "Comma-separated run keys"
// @Success 200 {object} models.Page
// @Router /course_runs/ [get]
func (h *Handler) ListCourseRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	pg := h.paginate(r)
	filter := courseRunFilter(r)
	filter.Limit, filter.Offset = pg.limit, pg.offset
	runs, total, err := h.catalog.ListCourseRuns(r.Context(), partnerFrom(r), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if runs == nil {
		runs = []models.CourseRun{}
	}
	rw.OK(pg.page(r, total, runs))
}

// runKey reads the run key from the wildcard so legacy ORG/NUMBER/RUN keys
// route as well.
func runKey(r *http.Request) string {
	return strings.Trim(chi.URLParam(r, "*"), "/")
}

// GetCourseRun returns one course run by key.
//
// @Summary Get a course run
// @Tags Course Runs
// @Produce json
// @Param key path string true "Course run key"
// @Success 200 {object} models.CourseRun
// @Failure 404 {object} models.APIResponse
// @Router /course_runs/{key}/ [get]
func (h *Handler) GetCourseRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	run, err := h.catalog.GetCourseRun(r.Context(), partnerFrom(r), runKey(r))
	if err != nil {
		writeServiceError(rw, err, "Course run not found")
		return
	}
	rw.OK(run)
}

// UpdateCourseRun patches a course run. draft=false publishes it.
//
// @Summary Update a course run
// @Tags Course Runs
// @Accept json
// @Produce json
// @Param key path string true "Course run key"
// @Param run body models.CourseRunUpdate true "Course run fields"
// @Success 200 {object} models.CourseRun
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Failure 502 {object} models.APIResponse
// @Router /course_runs/{key}/ [patch]
func (h *Handler) UpdateCourseRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req models.CourseRunUpdate
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr)
		return
	}
	run, err := h.catalog.UpdateCourseRun(r.Context(), partnerFrom(r), runKey(r), &req)
	if err != nil {
		writeServiceError(rw, err, "Course run not found")
		return
	}
	h.invalidatePartnerResponses(partnerFrom(r))
	rw.OK(run)
}
