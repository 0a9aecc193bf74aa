// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"github.com/google/uuid"
)

// DefaultLanguageCode is the subject translation used when none is requested.
const DefaultLanguageCode = "en"

// Subject is a course topic with per-language translations. Name, Subtitle
// and Description hold the translation selected for the request.
type Subject struct {
	ID           int64     `json:"-"`
	UUID         uuid.UUID `json:"uuid"`
	PartnerID    int64     `json:"-"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Subtitle     string    `json:"subtitle"`
	Description  string    `json:"description"`
	LanguageCode string    `json:"language_code,omitempty"`
	BannerURL    string    `json:"banner_image_url"`
	CardImageURL string    `json:"card_image_url"`
}

// SubjectTranslation is one language's text for a subject.
type SubjectTranslation struct {
	LanguageCode string `json:"language_code"`
	Name         string `json:"name"`
	Subtitle     string `json:"subtitle"`
	Description  string `json:"description"`
}

// LanguageTag is an IETF language tag, e.g. en-us "English - United States".
type LanguageTag struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
