// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package dataloader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// CoursesAPILoader loads course runs from the LMS Courses API.
type CoursesAPILoader struct {
	partner *models.Partner
	source  CoursesSource
	store   Store
	opts    Options
}

// NewCoursesAPILoader returns a loader reading from the partner's
// courses_api_url through source.
func NewCoursesAPILoader(partner *models.Partner, source CoursesSource, store Store, opts Options) *CoursesAPILoader {
	return &CoursesAPILoader{partner: partner, source: source, store: store, opts: opts}
}

// Ingest refreshes every run the LMS lists, or only opts.CourseID.
func (l *CoursesAPILoader) Ingest(ctx context.Context) error {
	log := logging.Ctx(ctx)
	log.Info().Str("url", l.partner.CoursesAPIURL).Msg("Refreshing Courses and CourseRuns")

	count := 0
	err := fetchPages(ctx, "lms", func(page int) (int, error) {
		log.Info().Int("page", page).Msg("Requesting course run page")
		var (
			resp *upstream.LMSCoursePage
			err  error
		)
		if l.opts.CourseID != "" {
			resp, err = l.source.GetCourse(ctx, l.opts.CourseID, l.opts.Username)
		} else {
			resp, err = l.source.ListCourses(ctx, page, l.opts.pageSize(), l.opts.Username)
		}
		if err != nil {
			return 0, fmt.Errorf("request course run page %d: %w", page, err)
		}
		count = resp.Pagination.Count
		l.processResponse(ctx, resp.Results)
		return resp.Pagination.NumPages, nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("count", count).Str("url", l.partner.CoursesAPIURL).Msg("Retrieved course runs")
	return nil
}

func (l *CoursesAPILoader) processResponse(ctx context.Context, results []upstream.LMSCourse) {
	logging.Ctx(ctx).Info().Int("results", len(results)).Msg("Retrieved course runs page")
	for i := range results {
		if err := l.processCourseRun(ctx, &results[i]); err != nil {
			logUpdateError(ctx, err, results[i].ID, l.partner.CoursesAPIURL)
		}
	}
}

func (l *CoursesAPILoader) processCourseRun(ctx context.Context, body *upstream.LMSCourse) error {
	run, err := l.store.GetCourseRunByKey(ctx, l.partner.ID, body.ID)
	switch {
	case err == nil:
		return l.updateCourseRun(ctx, run, body)
	case errors.Is(err, database.ErrNotFound):
		course, err := l.getOrCreateCourse(ctx, body)
		if err != nil {
			return err
		}
		return l.createCourseRun(ctx, course, body)
	default:
		return err
	}
}

func (l *CoursesAPILoader) updateCourseRun(ctx context.Context, run *models.CourseRun, body *upstream.LMSCourse) error {
	changed := applyLMSRun(run, body)
	if changed {
		if err := l.store.UpdateCourseRun(ctx, run); err != nil {
			return err
		}
		logging.Ctx(ctx).Info().Str("uuid", run.UUID.String()).Msg("Processed course run")
	}

	course, err := l.store.GetCourseByKey(ctx, l.partner.ID, run.CourseKey)
	if err != nil {
		return err
	}
	if applyLMSCourse(course, body) {
		if err := l.store.UpdateCourse(ctx, course); err != nil {
			return err
		}
		logging.Ctx(ctx).Info().Str("course", course.Key).Msg("Processed course")
	}
	return nil
}

// getOrCreateCourse finds the course of the run key, creating it and its
// organization when missing.
func (l *CoursesAPILoader) getOrCreateCourse(ctx context.Context, body *upstream.LMSCourse) (*models.Course, error) {
	parsed, ok := models.ParseCourseRunKey(body.ID)
	if !ok {
		return nil, fmt.Errorf("invalid course run key %q", body.ID)
	}
	key := parsed.CourseKey()
	course, err := l.store.GetCourseByKey(ctx, l.partner.ID, key)
	if err == nil {
		return course, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	org, err := l.store.GetOrganizationByKey(ctx, l.partner.ID, parsed.Org)
	if errors.Is(err, database.ErrNotFound) {
		org = &models.Organization{PartnerID: l.partner.ID, Key: parsed.Org, Name: parsed.Org}
		err = l.store.UpsertOrganization(ctx, org)
	}
	if err != nil {
		return nil, err
	}

	course = &models.Course{
		PartnerID:              l.partner.ID,
		Key:                    key,
		Title:                  body.Name,
		Number:                 parsed.Number,
		URLSlug:                models.Slugify(body.Name),
		CardImageURL:           body.Media.Image.Raw,
		AuthoringOrganizations: []models.Organization{*org},
	}
	if err := l.store.CreateCourse(ctx, course); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("course", key).Msg("Created course from LMS")
	return course, nil
}

// createCourseRun copies the run type of the course's latest run, falling
// back to the Empty type.
func (l *CoursesAPILoader) createCourseRun(ctx context.Context, course *models.Course, body *upstream.LMSCourse) error {
	run := &models.CourseRun{
		CourseID:   course.ID,
		CourseKey:  course.Key,
		CourseUUID: course.UUID,
		Key:        body.ID,
		Title:      course.Title,
		Status:     models.CourseRunUnpublished,
	}
	applyLMSRun(run, body)

	latest, err := l.store.LatestCourseRun(ctx, course.ID)
	switch {
	case err == nil && latest.TypeID != nil:
		run.TypeID, run.Type = latest.TypeID, latest.Type
	case err == nil || errors.Is(err, database.ErrNotFound):
		empty, err := l.store.GetCourseRunTypeByName(ctx, models.EmptyCourseRunType)
		if err != nil {
			return fmt.Errorf("load %s course run type: %w", models.EmptyCourseRunType, err)
		}
		run.TypeID, run.Type = &empty.ID, empty
	default:
		return err
	}

	if err := l.store.CreateCourseRun(ctx, run); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("course_run", run.Key).Msg("Created course run from LMS")
	return nil
}

// applyLMSRun copies the LMS fields onto run and reports whether any changed.
func applyLMSRun(run *models.CourseRun, body *upstream.LMSCourse) bool {
	changed := false
	if !timesEqual(run.Start, body.Start) {
		run.Start, changed = body.Start, true
	}
	if !timesEqual(run.End, body.End) {
		run.End, changed = body.End, true
	}
	if !timesEqual(run.EnrollmentStart, body.EnrollmentStart) {
		run.EnrollmentStart, changed = body.EnrollmentStart, true
	}
	if !timesEqual(run.EnrollmentEnd, body.EnrollmentEnd) {
		run.EnrollmentEnd, changed = body.EnrollmentEnd, true
	}
	if run.TitleOverride != body.Name {
		run.TitleOverride, changed = body.Name, true
	}
	if pacing := lmsPacing(body.Pacing); run.PacingType != pacing {
		run.PacingType, changed = pacing, true
	}
	if run.ShortDescription != body.ShortDescription {
		run.ShortDescription, changed = body.ShortDescription, true
	}
	if video := body.Media.CourseVideo.URI; video != "" && run.VideoURL != video {
		run.VideoURL, changed = video, true
	}
	return changed
}

func applyLMSCourse(course *models.Course, body *upstream.LMSCourse) bool {
	changed := false
	if body.Name != "" && course.Title != body.Name {
		course.Title, changed = body.Name, true
	}
	if image := body.Media.Image.Raw; image != "" && course.CardImageURL != image {
		course.CardImageURL, changed = image, true
	}
	return changed
}

func lmsPacing(pacing string) models.PacingType {
	switch strings.ToLower(pacing) {
	case "instructor":
		return models.PacingInstructor
	case "self":
		return models.PacingSelf
	default:
		return ""
	}
}
