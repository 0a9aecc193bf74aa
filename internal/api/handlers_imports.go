// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/csvloader"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// maxCSVBytes caps an uploaded course CSV.
const maxCSVBytes = 32 << 20

// CSVImporter ingests uploaded course CSV files.
type CSVImporter interface {
	Import(ctx context.Context, req csvloader.ImportRequest) (*csvloader.Stats, error)
}

var _ CSVImporter = (*csvloader.Importer)(nil)

// ImportCourses loads an uploaded course CSV for the partner named by
// partner_code. The import runs in the request and the response carries
// the row counters.
//
// @Summary Import courses from CSV
// @Tags Operations
// @Accept text/csv
// @Produce json
// @Param partner_code query string true "Partner short code"
// @Param name query string false "File name, keys resume progress"
// @Param resume query bool false "Skip rows done by an earlier run over the same file"
// @Param dry_run query bool false "Validate rows without writing"
// @Success 200 {object} csvloader.Stats
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Failure 422 {object} models.APIResponse
// @Router /csv_imports/ [post]
func (h *Handler) ImportCourses(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.importer == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "CSV importer is not running")
		return
	}

	code := r.URL.Query().Get("partner_code")
	if code == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidationError, "partner_code is required")
		return
	}
	partner, err := h.catalog.PartnerByShortCode(r.Context(), code)
	if errors.Is(err, catalog.ErrPartnerNotFound) {
		rw.NotFound(fmt.Sprintf("Partner not found with short code [%s]", code))
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCSVBytes))
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, fmt.Sprintf("CSV file exceeds %d bytes", tooLarge.Limit))
		return
	case err != nil:
		rw.BadRequest("Failed to read CSV upload")
		return
	case len(data) == 0:
		rw.BadRequest("CSV file is empty")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "courses.csv"
	}

	// Large files outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Write deadline not extended for CSV import")
	}

	stats, err := h.importer.Import(r.Context(), csvloader.ImportRequest{
		Partner: partner,
		Name:    name,
		Data:    data,
		Resume:  getBoolParam(r, "resume"),
		DryRun:  getBoolParam(r, "dry_run"),
	})
	switch {
	case errors.Is(err, csvloader.ErrImportRunning):
		rw.Conflict(err.Error())
		return
	case err != nil:
		logging.CtxErr(r.Context(), err).Str("partner", partner.ShortCode).Msg("CSV import failed")
		rw.Error(http.StatusUnprocessableEntity, ErrCodeValidationError, err.Error())
		return
	}
	h.invalidatePartnerResponses(partner)
	rw.OK(stats)
}

// SetupService creates the default site and partner and seeds the
// reference types. Repeating it is harmless.
//
// @Summary Set up the devstack site and partner
// @Tags Operations
// @Accept json
// @Produce json
// @Param request body models.SetupServiceRequest false "Site and partner overrides"
// @Success 200 {object} models.Partner
// @Router /setup_service/ [post]
func (h *Handler) SetupService(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req models.SetupServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	partner, err := h.catalog.SetupDefaultService(r.Context(), catalog.SetupOptions{
		SiteDomain:  req.SiteDomain,
		PartnerCode: req.PartnerCode,
		PartnerName: req.PartnerName,
	})
	if err != nil {
		writeServiceError(rw, err, "")
		return
	}
	rw.OK(partner)
}
