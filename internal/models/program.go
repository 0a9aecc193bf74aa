// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"time"

	"github.com/google/uuid"
)

// Program groups courses under a program type.
type Program struct {
	ID                         int64          `json:"-"`
	UUID                       uuid.UUID      `json:"uuid"`
	PartnerID                  int64          `json:"-"`
	Title                      string         `json:"title"`
	Subtitle                   string         `json:"subtitle"`
	TypeID                     *int64         `json:"-"`
	Type                       *ProgramType   `json:"type,omitempty"`
	Status                     ProgramStatus  `json:"status"`
	MarketingSlug              string         `json:"marketing_slug"`
	Hidden                     bool           `json:"hidden"`
	OneClickPurchaseEnabled    bool           `json:"one_click_purchase_enabled"`
	MinHoursEffortPerWeek      *int           `json:"min_hours_effort_per_week"`
	MaxHoursEffortPerWeek      *int           `json:"max_hours_effort_per_week"`
	CardImageURL               string         `json:"card_image_url"`
	BannerImageURL             string         `json:"banner_image_url"`
	Overview                   string         `json:"overview"`
	Courses                    []Course       `json:"courses"`
	ExcludedCourseRuns         []CourseRun    `json:"excluded_course_runs"`
	AuthoringOrganizations     []Organization `json:"authoring_organizations"`
	CreditBackingOrganizations []Organization `json:"credit_backing_organizations"`
	Created                    time.Time      `json:"created"`
	Modified                   time.Time      `json:"modified"`
}

// Marketable holds for an active, visible program with a marketing slug.
func (p *Program) Marketable() bool {
	return p.MarketingSlug != "" && p.Status == ProgramActive && !p.Hidden
}

// IsExcluded reports whether the run key is excluded from the program.
func (p *Program) IsExcluded(runKey string) bool {
	for _, r := range p.ExcludedCourseRuns {
		if r.Key == runKey {
			return true
		}
	}
	return false
}
