// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// badImageMessage is the body of a rejected card image upload.
const badImageMessage = "Bad image data in request"

func programFilter(r *http.Request) database.ProgramFilter {
	q := r.URL.Query()
	f := database.ProgramFilter{
		Q:             q.Get("q"),
		Org:           q.Get("org"),
		Type:          q.Get("type"),
		Types:         listParam(r, "types"),
		Status:        listParam(r, "status"),
		Hidden:        getOptionalBoolParam(r, "hidden"),
		Marketable:    getBoolParam(r, "marketable"),
		MarketingSlug: q.Get("marketing_slug"),
	}
	for _, raw := range listParam(r, "uuids") {
		if id, err := uuid.Parse(raw); err == nil {
			f.UUIDs = append(f.UUIDs, id)
		}
	}
	return f
}

// ListPrograms returns the partner's programs ordered by id.
//
// @Summary List programs
// @Description Minimal program bodies, or minimal plus extended fields with extended=1. uuids_only=1 returns a bare array of uuids.
// @Tags Programs
// @Produce json
// @Param uuids_only query int false "Return only uuids"
// @Param extended query int false "Include extended fields"
// @Param types query string false "Comma-separated program type slugs"
// @Success 200 {object} models.Page
// @Failure 401 {object} map[string]string
// @Router /programs/ [get]
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	partner := partnerFrom(r)
	filter := programFilter(r)

	if getBoolParam(r, "uuids_only") {
		ids, err := h.catalog.ListProgramUUIDs(r.Context(), partner, filter)
		if err != nil {
			rw.DatabaseError(err)
			return
		}
		if ids == nil {
			ids = []uuid.UUID{}
		}
		rw.OK(ids)
		return
	}

	pg := h.paginate(r)
	filter.Limit, filter.Offset = pg.limit, pg.offset
	programs, total, err := h.catalog.ListPrograms(r.Context(), partner, filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	sc := h.serializerContext(r)
	extended := getBoolParam(r, "extended")
	results := make([]interface{}, 0, len(programs))
	for i := range programs {
		if extended {
			results = append(results, serializeExtendedProgram(sc, &programs[i]))
		} else {
			results = append(results, serializeMinimalProgram(sc, &programs[i]))
		}
	}
	rw.OK(pg.page(r, total, results))
}

// programCacheKey scopes cached details to partner, program, query and
// caller so the context flags and utm parameters never share an entry.
func programCacheKey(partner *models.Partner, id uuid.UUID, rawQuery, username string) string {
	return fmt.Sprintf("programs:%s:%s?%s#%s", partner.ShortCode, id, rawQuery, username)
}

func (h *Handler) forgetProgram(partner *models.Partner, id uuid.UUID) {
	h.responses.DeletePrefix(fmt.Sprintf("programs:%s:%s?", partner.ShortCode, id))
}

// invalidatePartnerResponses drops every cached program of partner. Program
// details embed course and run data, so course and run writes call it.
func (h *Handler) invalidatePartnerResponses(partner *models.Partner) {
	h.responses.DeletePrefix(fmt.Sprintf("programs:%s:", partner.ShortCode))
}

// GetProgram returns one program with the full serializer.
//
// @Summary Get a program
// @Tags Programs
// @Produce json
// @Param uuid path string true "Program UUID"
// @Success 200 {object} object
// @Failure 404 {object} models.APIResponse
// @Router /programs/{uuid}/ [get]
func (h *Handler) GetProgram(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	partner := partnerFrom(r)
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		rw.NotFound("Program not found")
		return
	}

	sc := h.serializerContext(r)
	key := programCacheKey(partner, id, r.URL.RawQuery, sc.username)
	if cached, ok := h.responses.Get(key); ok {
		writeCachedBody(w, r, cached.([]byte), true)
		return
	}

	program, err := h.catalog.GetProgram(r.Context(), partner, id)
	if err != nil {
		writeServiceError(rw, err, "Program not found")
		return
	}
	body, err := json.Marshal(serializeFullProgram(sc, program))
	if err != nil {
		rw.InternalError(err)
		return
	}
	h.responses.Set(key, body)
	writeCachedBody(w, r, body, false)
}

func writeCachedBody(w http.ResponseWriter, r *http.Request, body []byte, hit bool) {
	etag := generateETag(body)
	w.Header().Set("ETag", etag)
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("Failed to write cached response")
	}
}

func decodeProgramWrite(rw *ResponseWriter, r *http.Request) (*models.ProgramWrite, bool) {
	var req models.ProgramWrite
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return nil, false
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr)
		return nil, false
	}
	return &req, true
}

// CreateProgram creates a program from course run keys and organization keys.
//
// @Summary Create a program
// @Tags Programs
// @Accept json
// @Produce json
// @Param program body models.ProgramWrite true "Program"
// @Success 201 {object} object
// @Failure 400 {object} models.APIResponse
// @Router /programs/ [post]
func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, ok := decodeProgramWrite(rw, r)
	if !ok {
		return
	}
	program, err := h.catalog.CreateProgram(r.Context(), partnerFrom(r), req)
	if err != nil {
		writeServiceError(rw, err, "Program not found")
		return
	}
	logging.CtxInfo(r.Context()).Str("program", program.UUID.String()).Msg("Program created")
	rw.Created(serializeFullProgram(h.serializerContext(r), program))
}

// UpdateProgram replaces (PUT) or patches (PATCH) a program.
//
// @Summary Update a program
// @Tags Programs
// @Accept json
// @Produce json
// @Param uuid path string true "Program UUID"
// @Param program body models.ProgramWrite true "Program"
// @Success 200 {object} object
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /programs/{uuid}/ [patch]
func (h *Handler) UpdateProgram(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	partner := partnerFrom(r)
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		rw.NotFound("Program not found")
		return
	}
	req, ok := decodeProgramWrite(rw, r)
	if !ok {
		return
	}
	program, err := h.catalog.UpdateProgram(r.Context(), partner, id, req, r.Method == http.MethodPatch)
	if err != nil {
		writeServiceError(rw, err, "Program not found")
		return
	}
	h.forgetProgram(partner, id)
	rw.OK(serializeFullProgram(h.serializerContext(r), program))
}

// UpdateCardImage stores a base64 data URI as the program card image.
// Staff only.
//
// @Summary Update a program card image
// @Tags Programs
// @Accept json
// @Produce json
// @Param uuid path string true "Program UUID"
// @Param image body models.CardImageUpdate true "data:image/png;base64,..."
// @Success 200 {string} string
// @Failure 400 {string} string
// @Failure 403 {object} map[string]string
// @Router /programs/{uuid}/update_card_image/ [post]
func (h *Handler) UpdateCardImage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	partner := partnerFrom(r)
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		rw.NotFound("Program not found")
		return
	}
	var req models.CardImageUpdate
	if err := decodeJSON(r, &req); err != nil || !catalog.IsDataURI(req.Image) {
		rw.Body(http.StatusBadRequest, badImageMessage)
		return
	}

	program, err := h.catalog.UpdateCardImage(r.Context(), partner, id, req.Image)
	if errors.Is(err, catalog.ErrBadImageData) {
		rw.Body(http.StatusBadRequest, badImageMessage)
		return
	}
	if err != nil {
		writeServiceError(rw, err, "Program not found")
		return
	}
	h.forgetProgram(partner, id)
	rw.OK(fmt.Sprintf("Successfully updated program card image for program %s: %s", program.UUID, program.Title))
}
