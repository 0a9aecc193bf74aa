// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/auth"
	"github.com/tomtom215/catalogus/internal/models"
)

// serializerContext carries the query flags that shape program bodies.
type serializerContext struct {
	partner  *models.Partner
	username string
	now      time.Time

	excludeUTM          bool
	fullCourses         bool
	publishedRunsOnly   bool
	marketableEnrolable bool
}

func (h *Handler) serializerContext(r *http.Request) serializerContext {
	sc := serializerContext{
		partner:             partnerFrom(r),
		now:                 h.now(),
		excludeUTM:          getBoolParam(r, "exclude_utm"),
		fullCourses:         getBoolParam(r, "use_full_course_serializer"),
		publishedRunsOnly:   getBoolParam(r, "published_course_runs_only"),
		marketableEnrolable: getBoolParam(r, "marketable_enrollable_course_runs_with_archived"),
	}
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		sc.username = p.Username
	}
	return sc
}

// marketingURL joins the partner's marketing root and path, adding the
// affiliate utm parameters unless excluded.
func (sc serializerContext) marketingURL(path string) string {
	if sc.partner == nil || sc.partner.MarketingSiteURLRoot == "" || path == "" {
		return ""
	}
	u := strings.TrimRight(sc.partner.MarketingSiteURLRoot, "/") + "/" + strings.TrimLeft(path, "/")
	if sc.excludeUTM || sc.username == "" {
		return u
	}
	q := url.Values{}
	q.Set("utm_source", sc.username)
	q.Set("utm_medium", "affiliate_partner")
	return u + "?" + q.Encode()
}

// keepRun applies the run filters of the context flags.
func (sc serializerContext) keepRun(run *models.CourseRun) bool {
	if sc.publishedRunsOnly && !run.Published() {
		return false
	}
	if sc.marketableEnrolable {
		if !run.Marketable() {
			return false
		}
		if !run.Enrollable(sc.now) && run.Availability(sc.now) != models.AvailabilityArchived {
			return false
		}
	}
	return true
}

type minimalOrganization struct {
	UUID         uuid.UUID `json:"uuid"`
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	LogoImageURL string    `json:"logo_image_url"`
}

func serializeOrganizations(orgs []models.Organization) []minimalOrganization {
	out := make([]minimalOrganization, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, minimalOrganization{UUID: o.UUID, Key: o.Key, Name: o.Name, LogoImageURL: o.LogoImageURL})
	}
	return out
}

type minimalCourseRun struct {
	UUID         uuid.UUID         `json:"uuid"`
	Key          string            `json:"key"`
	Title        string            `json:"title"`
	Start        *time.Time        `json:"start"`
	End          *time.Time        `json:"end"`
	PacingType   models.PacingType `json:"pacing_type"`
	Status       string            `json:"status"`
	Availability string            `json:"availability"`
	RunType      string            `json:"run_type,omitempty"`
	IsMarketable bool              `json:"is_marketable"`
	IsEnrollable bool              `json:"is_enrollable"`
	Featured     bool              `json:"featured"`
	Prices       map[string]string `json:"prices"`
}

func serializeRun(sc serializerContext, run *models.CourseRun) minimalCourseRun {
	out := minimalCourseRun{
		UUID:         run.UUID,
		Key:          run.Key,
		Title:        run.DisplayTitle(),
		Start:        run.Start,
		End:          run.End,
		PacingType:   run.PacingType,
		Status:       string(run.Status),
		Availability: run.Availability(sc.now),
		IsMarketable: run.Marketable(),
		IsEnrollable: run.Enrollable(sc.now),
		Featured:     run.Featured(),
		Prices:       run.Prices,
	}
	if run.Type != nil {
		out.RunType = run.Type.Name
	}
	return out
}

type minimalCourse struct {
	UUID             uuid.UUID             `json:"uuid"`
	Key              string                `json:"key"`
	Title            string                `json:"title"`
	ShortDescription string                `json:"short_description"`
	CardImageURL     string                `json:"card_image_url"`
	MarketingURL     string                `json:"marketing_url"`
	Owners           []minimalOrganization `json:"owners"`
	CourseRuns       []minimalCourseRun    `json:"course_runs"`
}

// fullCourse is the course body with its filtered runs.
type fullCourse struct {
	models.Course
	MarketingURL string             `json:"marketing_url"`
	CourseRuns   []models.CourseRun `json:"course_runs"`
}

// programCourses serializes the program's courses, dropping excluded runs
// and runs filtered out by the context flags.
func programCourses(sc serializerContext, p *models.Program) interface{} {
	minimal := make([]minimalCourse, 0, len(p.Courses))
	full := make([]fullCourse, 0, len(p.Courses))
	for i := range p.Courses {
		c := &p.Courses[i]
		runs := make([]models.CourseRun, 0, len(c.CourseRuns))
		for j := range c.CourseRuns {
			run := &c.CourseRuns[j]
			if p.IsExcluded(run.Key) || !sc.keepRun(run) {
				continue
			}
			runs = append(runs, *run)
		}
		marketing := ""
		if c.URLSlug != "" {
			marketing = sc.marketingURL("course/" + c.URLSlug)
		}
		if sc.fullCourses {
			full = append(full, fullCourse{Course: *c, MarketingURL: marketing, CourseRuns: runs})
			continue
		}
		mc := minimalCourse{
			UUID:             c.UUID,
			Key:              c.Key,
			Title:            c.Title,
			ShortDescription: c.ShortDescription,
			CardImageURL:     c.CardImageURL,
			MarketingURL:     marketing,
			Owners:           serializeOrganizations(c.AuthoringOrganizations),
			CourseRuns:       make([]minimalCourseRun, 0, len(runs)),
		}
		for j := range runs {
			mc.CourseRuns = append(mc.CourseRuns, serializeRun(sc, &runs[j]))
		}
		minimal = append(minimal, mc)
	}
	if sc.fullCourses {
		return full
	}
	return minimal
}

type programTypeAttrs struct {
	UUID uuid.UUID `json:"uuid"`
	Slug string    `json:"slug"`
}

type minimalProgram struct {
	UUID                   uuid.UUID             `json:"uuid"`
	Title                  string                `json:"title"`
	Subtitle               string                `json:"subtitle"`
	Type                   string                `json:"type"`
	TypeAttrs              *programTypeAttrs     `json:"type_attrs"`
	Status                 models.ProgramStatus  `json:"status"`
	MarketingSlug          string                `json:"marketing_slug"`
	MarketingURL           string                `json:"marketing_url"`
	Hidden                 bool                  `json:"hidden"`
	CardImageURL           string                `json:"card_image_url"`
	BannerImageURL         string                `json:"banner_image_url"`
	Courses                interface{}           `json:"courses"`
	AuthoringOrganizations []minimalOrganization `json:"authoring_organizations"`
	OneClickEligible       bool                  `json:"is_program_eligible_for_one_click_purchase"`
}

type extendedProgram struct {
	minimalProgram
	Overview                   string                `json:"overview"`
	MinHoursEffortPerWeek      *int                  `json:"min_hours_effort_per_week"`
	MaxHoursEffortPerWeek      *int                  `json:"max_hours_effort_per_week"`
	WeeksToComplete            *int                  `json:"weeks_to_complete"`
	CreditBackingOrganizations []minimalOrganization `json:"credit_backing_organizations"`
}

type fullProgram struct {
	extendedProgram
	OneClickPurchaseEnabled bool      `json:"one_click_purchase_enabled"`
	ExcludedCourseRuns      []string  `json:"excluded_course_runs"`
	Created                 time.Time `json:"created"`
	Modified                time.Time `json:"modified"`
}

func serializeMinimalProgram(sc serializerContext, p *models.Program) minimalProgram {
	out := minimalProgram{
		UUID:                   p.UUID,
		Title:                  p.Title,
		Subtitle:               p.Subtitle,
		Status:                 p.Status,
		MarketingSlug:          p.MarketingSlug,
		Hidden:                 p.Hidden,
		CardImageURL:           p.CardImageURL,
		BannerImageURL:         p.BannerImageURL,
		Courses:                programCourses(sc, p),
		AuthoringOrganizations: serializeOrganizations(p.AuthoringOrganizations),
		OneClickEligible:       oneClickEligible(p),
	}
	if p.Type != nil {
		out.Type = p.Type.Name
		out.TypeAttrs = &programTypeAttrs{UUID: p.Type.UUID, Slug: p.Type.Slug}
		if p.MarketingSlug != "" {
			out.MarketingURL = sc.marketingURL(p.Type.Slug + "/" + p.MarketingSlug)
		}
	}
	return out
}

func serializeExtendedProgram(sc serializerContext, p *models.Program) extendedProgram {
	return extendedProgram{
		minimalProgram:             serializeMinimalProgram(sc, p),
		Overview:                   p.Overview,
		MinHoursEffortPerWeek:      p.MinHoursEffortPerWeek,
		MaxHoursEffortPerWeek:      p.MaxHoursEffortPerWeek,
		WeeksToComplete:            programWeeks(p),
		CreditBackingOrganizations: serializeOrganizations(p.CreditBackingOrganizations),
	}
}

func serializeFullProgram(sc serializerContext, p *models.Program) fullProgram {
	excluded := make([]string, 0, len(p.ExcludedCourseRuns))
	for _, r := range p.ExcludedCourseRuns {
		excluded = append(excluded, r.Key)
	}
	return fullProgram{
		extendedProgram:         serializeExtendedProgram(sc, p),
		OneClickPurchaseEnabled: p.OneClickPurchaseEnabled,
		ExcludedCourseRuns:      excluded,
		Created:                 p.Created,
		Modified:                p.Modified,
	}
}

// oneClickEligible requires one-click purchase to be enabled and every
// course to offer exactly one published, non-excluded run.
func oneClickEligible(p *models.Program) bool {
	if !p.OneClickPurchaseEnabled || len(p.Courses) == 0 {
		return false
	}
	for _, c := range p.Courses {
		n := 0
		for i := range c.CourseRuns {
			if !p.IsExcluded(c.CourseRuns[i].Key) && c.CourseRuns[i].Published() {
				n++
			}
		}
		if n != 1 {
			return false
		}
	}
	return true
}

// programWeeks sums the longest run of each course.
func programWeeks(p *models.Program) *int {
	total := 0
	for _, c := range p.Courses {
		longest := 0
		for _, r := range c.CourseRuns {
			if r.WeeksToComplete != nil && *r.WeeksToComplete > longest && !p.IsExcluded(r.Key) {
				longest = *r.WeeksToComplete
			}
		}
		total += longest
	}
	if total == 0 {
		return nil
	}
	return &total
}
