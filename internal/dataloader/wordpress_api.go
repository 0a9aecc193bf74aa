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

// wordPressPublished is the WordPress post status of a live course page.
const wordPressPublished = "publish"

// WordPressAPILoader copies marketing content from the partner's WordPress
// site onto existing course runs. Runs WordPress knows but the catalog does
// not are skipped.
type WordPressAPILoader struct {
	partner *models.Partner
	source  WordPressSource
	store   Store
	opts    Options
}

// NewWordPressAPILoader returns a loader reading the partner's
// marketing_site_api_url through source.
func NewWordPressAPILoader(partner *models.Partner, source WordPressSource, store Store, opts Options) *WordPressAPILoader {
	return &WordPressAPILoader{partner: partner, source: source, store: store, opts: opts}
}

// Ingest walks every page of marketing course runs.
func (l *WordPressAPILoader) Ingest(ctx context.Context) error {
	log := logging.Ctx(ctx)
	log.Info().Str("url", l.partner.MarketingSiteAPIURL).Msg("Refreshing marketing data from WordPress")

	return fetchPages(ctx, "wordpress", func(page int) (int, error) {
		resp, err := l.source.ListCourseRuns(ctx, page, l.opts.pageSize(), l.opts.CourseID)
		if err != nil {
			return 0, fmt.Errorf("request marketing page %d: %w", page, err)
		}
		for i := range resp.Results {
			body := &resp.Results[i]
			if err := l.processCourseRun(ctx, body); err != nil {
				logUpdateError(ctx, err, body.CourseID, l.partner.MarketingSiteAPIURL)
			}
		}
		return resp.Pagination.NumPages, nil
	})
}

func (l *WordPressAPILoader) processCourseRun(ctx context.Context, body *upstream.WordPressCourseRun) error {
	run, err := l.store.GetCourseRunByKey(ctx, l.partner.ID, body.CourseID)
	if errors.Is(err, database.ErrNotFound) {
		logging.Ctx(ctx).Warn().Msgf("Could not find course run [%s]", body.CourseID)
		return nil
	}
	if err != nil {
		return err
	}

	staff, err := l.upsertInstructors(ctx, body.CourseInstructors)
	if err != nil {
		return err
	}
	applyWordPressRun(run, body)
	run.Staff = staff
	if err := l.store.UpdateCourseRun(ctx, run); err != nil {
		return err
	}

	course, err := l.store.GetCourseByKey(ctx, l.partner.ID, run.CourseKey)
	if err != nil {
		return err
	}
	subjects, err := l.upsertCategories(ctx, body.Categories)
	if err != nil {
		return err
	}
	course.Subjects = subjects
	if body.Slug != "" {
		course.URLSlug = body.Slug
	}
	if body.FeaturedImageURL != "" {
		course.CardImageURL = body.FeaturedImageURL
	}
	if err := l.store.UpdateCourse(ctx, course); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("course_run", run.Key).Int("staff", len(staff)).
		Int("subjects", len(subjects)).Msg("Updated marketing data")
	return nil
}

func applyWordPressRun(run *models.CourseRun, body *upstream.WordPressCourseRun) {
	run.ShortDescription = body.Excerpt
	run.FullDescription = body.Description
	run.Outcome = body.Outcome
	run.CourseOverridden = body.Featured
	run.CourseDurationOverride = body.CourseDurationOverride
	if body.FeaturedImageURL != "" {
		run.CardImageURL = body.FeaturedImageURL
	}
	if body.YTVideoURL != "" {
		run.VideoURL = body.YTVideoURL
	}
	if strings.EqualFold(body.Status, wordPressPublished) {
		run.Status = models.CourseRunPublished
		run.Draft = false
	} else {
		run.Status = models.CourseRunUnpublished
	}
}

func (l *WordPressAPILoader) upsertInstructors(ctx context.Context, instructors []upstream.WordPressInstructor) ([]models.Person, error) {
	staff := make([]models.Person, 0, len(instructors))
	for _, in := range instructors {
		marketingID := in.MarketingID
		person := models.Person{
			PartnerID:    l.partner.ID,
			GivenName:    in.GivenName,
			FamilyName:   in.FamilyName,
			Bio:          in.Bio,
			MarketingID:  &marketingID,
			MarketingURL: in.MarketingURL,
			PhoneNumber:  in.PhoneNumber,
			Website:      in.Website,
		}
		created, err := l.store.UpsertPersonByMarketingID(ctx, &person)
		if err != nil {
			return nil, err
		}
		if created {
			logging.Ctx(ctx).Info().Int64("marketing_id", marketingID).Msgf("Created instructor %s", person.FullName())
		}
		staff = append(staff, person)
	}
	return staff, nil
}

func (l *WordPressAPILoader) upsertCategories(ctx context.Context, categories []upstream.WordPressCategory) ([]models.Subject, error) {
	subjects := make([]models.Subject, 0, len(categories))
	for _, cat := range categories {
		slug := cat.Slug
		if slug == "" {
			slug = models.Slugify(cat.Title)
		}
		subject := models.Subject{
			PartnerID:    l.partner.ID,
			Slug:         slug,
			Name:         cat.Title,
			Description:  cat.Description,
			LanguageCode: models.DefaultLanguageCode,
		}
		translations := []models.SubjectTranslation{{
			LanguageCode: models.DefaultLanguageCode,
			Name:         cat.Title,
			Description:  cat.Description,
		}}
		for lang, title := range cat.TitleTranslations {
			if lang == models.DefaultLanguageCode || title == "" {
				continue
			}
			translations = append(translations, models.SubjectTranslation{LanguageCode: lang, Name: title})
		}
		if err := l.store.UpsertSubject(ctx, &subject, translations...); err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}
