// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/models"
)

func languageCode(r *http.Request) string {
	if lang := r.URL.Query().Get("language_code"); lang != "" {
		return lang
	}
	return models.DefaultLanguageCode
}

// ListSubjects returns the partner's subjects in the requested language.
//
// @Summary List subjects
// @Tags Subjects
// @Produce json
// @Param language_code query string false "Translation language, default en"
// @Success 200 {object} models.Page
// @Router /subjects/ [get]
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	pg := h.paginate(r)
	subjects, total, err := h.catalog.Store().ListSubjects(r.Context(), partnerFrom(r).ID, languageCode(r), pg.limit, pg.offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	rw.OK(pg.page(r, total, subjects))
}

// GetSubject returns one subject.
//
// @Summary Get a subject
// @Tags Subjects
// @Produce json
// @Param uuid path string true "Subject UUID"
// @Success 200 {object} models.Subject
// @Failure 404 {object} models.APIResponse
// @Router /subjects/{uuid}/ [get]
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		rw.NotFound("Subject not found")
		return
	}
	subject, err := h.catalog.Store().GetSubject(r.Context(), partnerFrom(r).ID, id, languageCode(r))
	if err != nil {
		writeServiceError(rw, err, "Subject not found")
		return
	}
	rw.OK(subject)
}
