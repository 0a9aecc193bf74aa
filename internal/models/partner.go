// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"github.com/google/uuid"
)

// Partner is a tenant with its own upstream service URLs. Empty URLs
// disable the corresponding integration.
type Partner struct {
	ID                   int64     `json:"id"`
	UUID                 uuid.UUID `json:"uuid"`
	Name                 string    `json:"name"`
	ShortCode            string    `json:"short_code"`
	LMSURL               string    `json:"lms_url"`
	StudioURL            string    `json:"studio_url"`
	CoursesAPIURL        string    `json:"courses_api_url"`
	EcommerceAPIURL      string    `json:"ecommerce_api_url"`
	OrganizationsAPIURL  string    `json:"organizations_api_url"`
	MarketingSiteURLRoot string    `json:"marketing_site_url_root"`
	MarketingSiteAPIURL  string    `json:"marketing_site_api_url"`
	SiteID               *int64    `json:"site_id,omitempty"`
}

// Site maps an HTTP Host to a partner.
type Site struct {
	ID     int64  `json:"id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

// Organization is a course-authoring institution keyed per partner.
type Organization struct {
	ID           int64     `json:"-"`
	UUID         uuid.UUID `json:"uuid"`
	PartnerID    int64     `json:"-"`
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	LogoImageURL string    `json:"logo_image_url"`
}
