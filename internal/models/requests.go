// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ProgramWrite is the create and update body for programs. Nil fields are
// left unchanged on partial updates.
type ProgramWrite struct {
	Title                      *string  `json:"title" validate:"omitempty,max=255"`
	Subtitle                   *string  `json:"subtitle" validate:"omitempty,max=255"`
	Type                       *string  `json:"type"`
	Status                     *string  `json:"status" validate:"omitempty,oneof=unpublished active retired deleted"`
	MarketingSlug              *string  `json:"marketing_slug" validate:"omitempty,max=255"`
	Hidden                     *bool    `json:"hidden"`
	Featured                   *bool    `json:"featured"`
	Overview                   *string  `json:"overview"`
	BannerImageURL             *string  `json:"banner_image_url" validate:"omitempty,url"`
	MinHoursEffortPerWeek      *int     `json:"min_hours_effort_per_week" validate:"omitempty,gte=0"`
	MaxHoursEffortPerWeek      *int     `json:"max_hours_effort_per_week" validate:"omitempty,gte=0"`
	AuthoringOrganizations     []string `json:"authoring_organizations"`
	CreditBackingOrganizations []string `json:"credit_backing_organizations"`
	CourseRuns                 []string `json:"course_runs" validate:"omitempty,dive,coursekey"`
}

// CardImageUpdate carries a base64 image data URI.
type CardImageUpdate struct {
	Image string `json:"image"`
}

// CourseRunCreate is the optional first run of a new course.
type CourseRunCreate struct {
	PacingType string            `json:"pacing_type" validate:"omitempty,oneof=instructor_paced self_paced"`
	Start      *time.Time        `json:"start"`
	End        *time.Time        `json:"end"`
	RunType    string            `json:"run_type" validate:"omitempty,uuid"`
	Prices     map[string]string `json:"prices"`
}

// CourseCreate is the create body for courses.
type CourseCreate struct {
	Org       string            `json:"org" validate:"required,orgnumber"`
	Title     string            `json:"title" validate:"required,max=255"`
	Number    string            `json:"number" validate:"required,orgnumber"`
	Type      string            `json:"type" validate:"required,uuid"`
	Prices    map[string]string `json:"prices"`
	CourseRun *CourseRunCreate  `json:"course_run"`
}

// Video references a hosted video.
type Video struct {
	Src string `json:"src"`
}

// CourseUpdate is the partial update body for courses.
type CourseUpdate struct {
	UUID                  string            `json:"uuid,omitempty"`
	Key                   string            `json:"key,omitempty"`
	URLSlug               *string           `json:"url_slug,omitempty"`
	Type                  *string           `json:"type,omitempty" validate:"omitempty,uuid"`
	Image                 *string           `json:"image,omitempty"`
	Prices                map[string]string `json:"prices,omitempty"`
	Subjects              []string          `json:"subjects,omitempty"`
	Collaborators         []string          `json:"collaborators,omitempty" validate:"omitempty,dive,uuid"`
	Title                 *string           `json:"title,omitempty" validate:"omitempty,max=255"`
	SyllabusRaw           *string           `json:"syllabus_raw,omitempty"`
	LevelType             *string           `json:"level_type,omitempty"`
	Outcome               *string           `json:"outcome,omitempty"`
	FAQ                   *string           `json:"faq,omitempty"`
	Video                 *Video            `json:"video,omitempty"`
	PrerequisitesRaw      *string           `json:"prerequisites_raw,omitempty"`
	FullDescription       *string           `json:"full_description,omitempty"`
	ShortDescription      *string           `json:"short_description,omitempty"`
	LearnerTestimonials   *string           `json:"learner_testimonials,omitempty"`
	AdditionalInformation *string           `json:"additional_information,omitempty"`
}

// CourseRunUpdate is the partial update body for course runs. Draft false
// publishes the run.
type CourseRunUpdate struct {
	Key                     string            `json:"key,omitempty"`
	TitleOverride           *string           `json:"title_override,omitempty"`
	Start                   *time.Time        `json:"start,omitempty"`
	End                     *time.Time        `json:"end,omitempty"`
	PacingType              *string           `json:"pacing_type,omitempty" validate:"omitempty,oneof=instructor_paced self_paced"`
	RunType                 *string           `json:"run_type,omitempty" validate:"omitempty,uuid"`
	ContentLanguage         *string           `json:"content_language,omitempty"`
	TranscriptLanguages     []string          `json:"transcript_languages,omitempty"`
	Staff                   []string          `json:"staff,omitempty" validate:"omitempty,dive,uuid"`
	MinEffort               *int              `json:"min_effort,omitempty" validate:"omitempty,gte=0"`
	MaxEffort               *int              `json:"max_effort,omitempty" validate:"omitempty,gte=0"`
	WeeksToComplete         *int              `json:"weeks_to_complete,omitempty" validate:"omitempty,gte=0"`
	ExpectedProgramType     *string           `json:"expected_program_type,omitempty"`
	ExpectedProgramName     *string           `json:"expected_program_name,omitempty"`
	GoLiveDate              *time.Time        `json:"go_live_date,omitempty"`
	UpgradeDeadlineOverride *time.Time        `json:"upgrade_deadline_override,omitempty"`
	Prices                  map[string]string `json:"prices,omitempty"`
	Draft                   *bool             `json:"draft,omitempty"`

	// ClearExpectedProgramType is an explicit "expected_program_type": null,
	// which empties the field. An absent key leaves it unchanged.
	ClearExpectedProgramType bool `json:"-"`
}

// MarshalJSON writes "expected_program_type": null when
// ClearExpectedProgramType is set.
func (u CourseRunUpdate) MarshalJSON() ([]byte, error) {
	type plain CourseRunUpdate
	if u.ClearExpectedProgramType {
		u.ExpectedProgramType = nil
	}
	data, err := json.Marshal(plain(u))
	if err != nil || !u.ClearExpectedProgramType {
		return data, err
	}
	out := []byte(`{"expected_program_type":null`)
	if rest := bytes.TrimPrefix(data, []byte("{")); !bytes.Equal(rest, []byte("}")) {
		out = append(out, ',')
		return append(out, rest...), nil
	}
	return append(out, '}'), nil
}

// UnmarshalJSON tells an explicit null expected_program_type from an
// absent one.
func (u *CourseRunUpdate) UnmarshalJSON(data []byte) error {
	type plain CourseRunUpdate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = CourseRunUpdate(p)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode course run update: %w", err)
	}
	if raw, ok := fields["expected_program_type"]; ok {
		raw = bytes.TrimSpace(raw)
		u.ClearExpectedProgramType = len(raw) == 0 || bytes.Equal(raw, []byte("null"))
	}
	return nil
}

// EdlySitesRequest configures a client's site and partner.
type EdlySitesRequest struct {
	LMSSite              string          `json:"lms_site"`
	WordpressSite        string          `json:"wordpress_site"`
	PaymentsSite         string          `json:"payments_site"`
	DiscoverySite        string          `json:"discovery_site"`
	PartnerName          string          `json:"partner_name"`
	PartnerShortCode     string          `json:"partner_short_code"`
	CMSSite              string          `json:"cms_site"`
	Protocol             string          `json:"protocol"`
	OldDomainValues      OldDomainValues `json:"old_domain_values"`
	OAuthClientsUsername string          `json:"oauth_clients_username,omitempty"`
}

// OldDomainValues holds the previous domains of a reconfigured client.
type OldDomainValues struct {
	DiscoverySite string `json:"discovery_site"`
}

// DataLoaderRequest asks for a refresh of one course from an upstream.
type DataLoaderRequest struct {
	Partner  string `json:"partner"`
	CourseID string `json:"course_id"`
	Service  string `json:"service"`
}

// SetupServiceRequest overrides the default site and partner created by a
// devstack setup. Empty fields keep the defaults.
type SetupServiceRequest struct {
	SiteDomain  string `json:"site_domain,omitempty"`
	PartnerCode string `json:"partner_code,omitempty"`
	PartnerName string `json:"partner_name,omitempty"`
}
