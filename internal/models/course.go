// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Course is a catalog offering keyed "{org}+{number}" within a partner.
type Course struct {
	ID                     int64             `json:"-"`
	UUID                   uuid.UUID         `json:"uuid"`
	PartnerID              int64             `json:"-"`
	Key                    string            `json:"key"`
	KeyForReruns           string            `json:"key_for_reruns"`
	Title                  string            `json:"title"`
	Number                 string            `json:"number"`
	URLSlug                string            `json:"url_slug"`
	TypeID                 *int64            `json:"-"`
	Type                   *CourseType       `json:"type,omitempty"`
	ShortDescription       string            `json:"short_description"`
	FullDescription        string            `json:"full_description"`
	Outcome                string            `json:"outcome"`
	SyllabusRaw            string            `json:"syllabus_raw"`
	PrerequisitesRaw       string            `json:"prerequisites_raw"`
	LearnerTestimonials    string            `json:"learner_testimonials"`
	FAQ                    string            `json:"faq"`
	AdditionalInformation  string            `json:"additional_information"`
	LevelType              string            `json:"level_type"`
	VideoURL               string            `json:"video_url"`
	ImageURL               string            `json:"image_url"`
	CardImageURL           string            `json:"card_image_url"`
	Draft                  bool              `json:"draft"`
	AuthoringOrganizations []Organization    `json:"owners"`
	Subjects               []Subject         `json:"subjects"`
	Collaborators          []Collaborator    `json:"collaborators"`
	Prices                 map[string]string `json:"prices"`
	CourseRuns             []CourseRun       `json:"course_runs,omitempty"`
	Created                time.Time         `json:"created"`
	Modified               time.Time         `json:"modified"`
}

// CourseKey joins an organization key and course number.
func CourseKey(org, number string) string {
	return org + "+" + number
}

// Availability labels.
const (
	AvailabilityArchived     = "Archived"
	AvailabilityCurrent      = "Current"
	AvailabilityStartingSoon = "Starting Soon"
	AvailabilityUpcoming     = "Upcoming"
)

// startingSoonWindow is how far ahead a run counts as Starting Soon.
const startingSoonWindow = 60 * 24 * time.Hour

// CourseRun is a scheduled instance of a course.
type CourseRun struct {
	ID                      int64             `json:"-"`
	UUID                    uuid.UUID         `json:"uuid"`
	CourseID                int64             `json:"-"`
	CourseKey               string            `json:"course"`
	CourseUUID              uuid.UUID         `json:"course_uuid"`
	Key                     string            `json:"key"`
	Title                   string            `json:"title"`
	TitleOverride           string            `json:"title_override"`
	TypeID                  *int64            `json:"-"`
	Type                    *CourseRunType    `json:"run_type,omitempty"`
	Status                  CourseRunStatus   `json:"status"`
	Draft                   bool              `json:"draft"`
	Start                   *time.Time        `json:"start"`
	End                     *time.Time        `json:"end"`
	GoLiveDate              *time.Time        `json:"go_live_date"`
	UpgradeDeadlineOverride *time.Time        `json:"upgrade_deadline_override"`
	EnrollmentStart         *time.Time        `json:"enrollment_start"`
	EnrollmentEnd           *time.Time        `json:"enrollment_end"`
	PacingType              PacingType        `json:"pacing_type"`
	MinEffort               *int              `json:"min_effort"`
	MaxEffort               *int              `json:"max_effort"`
	WeeksToComplete         *int              `json:"weeks_to_complete"`
	CourseDurationOverride  *int              `json:"course_duration_override"`
	ContentLanguage         string            `json:"content_language"`
	CourseLanguage          string            `json:"course_language"`
	TranscriptLanguages     []string          `json:"transcript_languages"`
	Staff                   []Person          `json:"staff"`
	ExpectedProgramType     string            `json:"expected_program_type"`
	ExpectedProgramName     string            `json:"expected_program_name"`
	CourseOverridden        bool              `json:"course_overridden"`
	ShortDescription        string            `json:"short_description,omitempty"`
	FullDescription         string            `json:"full_description,omitempty"`
	Outcome                 string            `json:"outcome,omitempty"`
	CardImageURL            string            `json:"card_image_url,omitempty"`
	VideoURL                string            `json:"video_url,omitempty"`
	Prices                  map[string]string `json:"prices"`
	EnrollmentCodes         map[string]string `json:"enrollment_codes,omitempty"` // seat type to bulk SKU
	Created                 time.Time         `json:"created"`
	Modified                time.Time         `json:"modified"`
}

// DisplayTitle returns the title override when set.
func (r *CourseRun) DisplayTitle() string {
	if r.TitleOverride != "" {
		return r.TitleOverride
	}
	return r.Title
}

// Availability derives the availability label at now.
func (r *CourseRun) Availability(now time.Time) string {
	switch {
	case r.End != nil && r.End.Before(now):
		return AvailabilityArchived
	case r.Start != nil && !r.Start.After(now):
		return AvailabilityCurrent
	case r.Start != nil && r.Start.Sub(now) <= startingSoonWindow:
		return AvailabilityStartingSoon
	default:
		return AvailabilityUpcoming
	}
}

// Published reports a non-draft published run.
func (r *CourseRun) Published() bool {
	return r.Status == CourseRunPublished && !r.Draft
}

// Featured is the API name for CourseOverridden.
func (r *CourseRun) Featured() bool {
	return r.CourseOverridden
}

// Marketable reports a published run whose type is marketable (or untyped).
func (r *CourseRun) Marketable() bool {
	if !r.Published() {
		return false
	}
	return r.Type == nil || r.Type.IsMarketable
}

// Enrollable reports that enrollment is open at now.
func (r *CourseRun) Enrollable(now time.Time) bool {
	if r.EnrollmentStart != nil && r.EnrollmentStart.After(now) {
		return false
	}
	return r.EnrollmentEnd == nil || r.EnrollmentEnd.After(now)
}

// ParsedCourseKey is a course run key split into its parts.
type ParsedCourseKey struct {
	Org    string
	Number string
	Run    string
}

// ParseCourseRunKey splits course-v1:ORG+NUMBER+RUN or ORG/NUMBER/RUN.
func ParseCourseRunKey(key string) (ParsedCourseKey, bool) {
	var parts []string
	if rest, ok := strings.CutPrefix(key, "course-v1:"); ok {
		parts = strings.Split(rest, "+")
	} else {
		parts = strings.Split(key, "/")
	}
	if len(parts) != 3 {
		return ParsedCourseKey{}, false
	}
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t") {
			return ParsedCourseKey{}, false
		}
	}
	return ParsedCourseKey{Org: parts[0], Number: parts[1], Run: parts[2]}, true
}

// CourseKey returns "{org}+{number}".
func (k ParsedCourseKey) CourseKey() string {
	return CourseKey(k.Org, k.Number)
}
