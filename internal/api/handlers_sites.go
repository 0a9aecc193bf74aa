// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"net/http"

	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

const (
	clientSitesSuccess = "Client sites setup successful."
	clientSitesFailure = "Client sites setup failed."
)

// EdlySites points the discovery site at the client's domain and sets the
// partner's service URLs. Staff or the panel worker only.
//
// @Summary Configure client sites
// @Tags Sites
// @Accept json
// @Produce json
// @Param request body models.EdlySitesRequest true "Client domains"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /edly_sites/ [post]
func (h *Handler) EdlySites(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req models.EdlySitesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "error", clientSitesFailure)
		return
	}
	if missing := catalog.ValidateClientSites(&req); len(missing) > 0 {
		rw.Body(http.StatusBadRequest, missing)
		return
	}

	partner, err := h.catalog.SetupClientSites(r.Context(), &req)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("partner", sanitizeLogValue(req.PartnerShortCode)).Msg("Client sites setup failed")
		writeMessage(w, r, http.StatusBadRequest, "error", clientSitesFailure)
		return
	}
	logging.CtxInfo(r.Context()).Str("partner", partner.ShortCode).Str("site", req.DiscoverySite).Msg("Client sites configured")
	writeMessage(w, r, http.StatusOK, "success", clientSitesSuccess)
}
