// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/dataloader"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/validation"
)

// DataLoader queues a refresh of one course run from lms, ecommerce or
// wordpress. Responses keep the plain {"error"} / {"message"} bodies that
// marketing panels parse.
//
// @Summary Refresh a course from an upstream service
// @Tags Dataloader
// @Accept json
// @Produce json
// @Param request body models.DataLoaderRequest true "partner, course_id, service"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /dataloader/ [post]
func (h *Handler) DataLoader(w http.ResponseWriter, r *http.Request) {
	var req models.DataLoaderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "error", "Missing information")
		return
	}
	if req.Partner == "" && req.CourseID == "" && req.Service == "" {
		writeMessage(w, r, http.StatusBadRequest, "error", "Missing information")
		return
	}

	if _, err := h.catalog.PartnerByShortCode(r.Context(), req.Partner); err != nil {
		if errors.Is(err, catalog.ErrPartnerNotFound) {
			writeMessage(w, r, http.StatusBadRequest, "error", "Partner does not exist")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	if !validation.IsCourseKey(req.CourseID) {
		writeMessage(w, r, http.StatusBadRequest, "error", "Course id is not valid.")
		return
	}
	if !dataloader.IsSupportedService(req.Service) {
		writeMessage(w, r, http.StatusBadRequest, "error",
			fmt.Sprintf("Data Loader for service: %s is not handled by API", req.Service))
		return
	}

	if h.jobs == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Data loader queue is not running")
		return
	}
	if err := h.jobs.Enqueue(r.Context(), req); err != nil {
		NewResponseWriter(w, r).InternalError(err)
		return
	}
	logging.CtxInfo(r.Context()).
		Str("partner", sanitizeLogValue(req.Partner)).
		Str("course_id", sanitizeLogValue(req.CourseID)).
		Str("service", req.Service).
		Msg("Data loader job accepted")
	writeMessage(w, r, http.StatusOK, "message", fmt.Sprintf("Course Sync'd with %s", req.Service))
}
