// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package dataloader

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// Loader refreshes catalog data from one upstream.
type Loader interface {
	Ingest(ctx context.Context) error
}

// Store is the catalog storage the loaders write to.
type Store interface {
	GetOrganizationByKey(ctx context.Context, partnerID int64, key string) (*models.Organization, error)
	UpsertOrganization(ctx context.Context, o *models.Organization) error

	GetCourseByKey(ctx context.Context, partnerID int64, key string) (*models.Course, error)
	GetCourseByUUID(ctx context.Context, partnerID int64, id uuid.UUID) (*models.Course, error)
	ListCourses(ctx context.Context, partnerID int64, f database.CourseFilter) ([]models.Course, int, error)
	CreateCourse(ctx context.Context, c *models.Course) error
	UpdateCourse(ctx context.Context, c *models.Course) error

	GetCourseRunByKey(ctx context.Context, partnerID int64, key string) (*models.CourseRun, error)
	LatestCourseRun(ctx context.Context, courseID int64) (*models.CourseRun, error)
	SearchCourseRuns(ctx context.Context, partnerID int64, f database.CourseRunFilter) ([]models.CourseRun, int, error)
	CreateCourseRun(ctx context.Context, r *models.CourseRun) error
	UpdateCourseRun(ctx context.Context, r *models.CourseRun) error
	GetCourseRunTypeByName(ctx context.Context, name string) (*models.CourseRunType, error)
	ListCourseTypes(ctx context.Context) ([]models.CourseType, error)
	ListCourseRunTypes(ctx context.Context) ([]models.CourseRunType, error)

	UpsertPersonByMarketingID(ctx context.Context, p *models.Person) (bool, error)
	UpsertSubject(ctx context.Context, s *models.Subject, translations ...models.SubjectTranslation) error
}

var _ Store = (*database.DB)(nil)

// CoursesSource is the LMS course listing.
type CoursesSource interface {
	ListCourses(ctx context.Context, page, pageSize int, username string) (*upstream.LMSCoursePage, error)
	GetCourse(ctx context.Context, courseID, username string) (*upstream.LMSCoursePage, error)
}

// EcommerceSource is the payments course catalog.
type EcommerceSource interface {
	GetCourse(ctx context.Context, courseID string) (*upstream.EcommerceCourse, error)
	ListProducts(ctx context.Context, productClass string, page, pageSize int, courseID string) (*upstream.EcommerceProductPage, error)
}

// WordPressSource is the marketing site course listing.
type WordPressSource interface {
	ListCourseRuns(ctx context.Context, page, pageSize int, courseID string) (*upstream.WordPressPage, error)
}

var (
	_ CoursesSource   = (*upstream.CoursesAPI)(nil)
	_ EcommerceSource = (*upstream.Ecommerce)(nil)
	_ WordPressSource = (*upstream.WordPress)(nil)
)

// Options are shared by all loaders.
type Options struct {
	// CourseID limits the refresh to one course run key.
	CourseID string
	PageSize int
	// Username is sent to the LMS so it returns courses visible to that user.
	Username string
}

const defaultPageSize = 50

func (o Options) pageSize() int {
	if o.PageSize <= 0 {
		return defaultPageSize
	}
	return o.PageSize
}

// fetchPages requests page 1, then every remaining page it reports, handing
// each page to process. A failed page request stops the loop.
func fetchPages(ctx context.Context, name string, fetch func(page int) (int, error)) error {
	pages, err := fetch(1)
	if err != nil {
		return err
	}
	if pages > 1 {
		logging.Ctx(ctx).Info().Str("loader", name).Int("pages", pages).Msg("Looping to request all pages")
	}
	for page := 2; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := fetch(page); err != nil {
			return err
		}
	}
	return nil
}

func logUpdateError(ctx context.Context, err error, key, apiURL string) {
	logging.Ctx(ctx).Error().Err(err).Str("course_run", key).
		Msgf("An error occurred while updating %s from %s", key, apiURL)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
