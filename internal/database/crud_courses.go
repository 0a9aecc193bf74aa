// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database/query"
	"github.com/tomtom215/catalogus/internal/models"
)

const courseColumns = `c.id, c.uuid, c.partner_id, c.key, c.key_for_reruns, c.title, c.number, c.url_slug,
	c.type_id, c.short_description, c.full_description, c.outcome, c.syllabus_raw, c.prerequisites_raw,
	c.learner_testimonials, c.faq, c.additional_information, c.level_type, c.video_url, c.image_url,
	c.card_image_url, c.draft, c.prices, c.created, c.modified`

// CourseFilter narrows ListCourses.
type CourseFilter struct {
	Q      string
	Keys   []string
	Limit  int
	Offset int
	// IncludeRuns loads each course's runs.
	IncludeRuns bool
}

func scanCourse(row interface{ Scan(...any) error }) (*models.Course, error) {
	var c models.Course
	var keyForReruns sql.NullString
	var typeID sql.NullInt64
	var prices string
	if err := row.Scan(&c.ID, &c.UUID, &c.PartnerID, &c.Key, &keyForReruns, &c.Title, &c.Number, &c.URLSlug,
		&typeID, &c.ShortDescription, &c.FullDescription, &c.Outcome, &c.SyllabusRaw, &c.PrerequisitesRaw,
		&c.LearnerTestimonials, &c.FAQ, &c.AdditionalInformation, &c.LevelType, &c.VideoURL, &c.ImageURL,
		&c.CardImageURL, &c.Draft, &prices, &c.Created, &c.Modified); err != nil {
		return nil, notFound(err)
	}
	c.KeyForReruns = keyForReruns.String
	c.TypeID = int64Ptr(typeID)
	c.Prices = decodePrices(prices)
	return &c, nil
}

// loadCourseRelations fills the type, owners, subjects and collaborators.
func (db *DB) loadCourseRelations(ctx context.Context, q queryer, c *models.Course, includeRuns bool) error {
	var err error
	if c.TypeID != nil {
		if c.Type, err = db.getCourseTypeByID(ctx, q, *c.TypeID); err != nil {
			return fmt.Errorf("failed to load course type: %w", err)
		}
	}
	if c.AuthoringOrganizations, err = db.organizationsFor(ctx, q, "course_authoring_organizations", "course_id", c.ID); err != nil {
		return err
	}
	if c.Subjects, err = db.subjectsFor(ctx, q, c.ID); err != nil {
		return err
	}
	if c.Collaborators, err = db.collaboratorsFor(ctx, q, c.ID); err != nil {
		return err
	}
	if includeRuns {
		if c.CourseRuns, err = db.runsForCourse(ctx, q, c); err != nil {
			return err
		}
	}
	return nil
}

// GetCourseByKey returns the partner's course with key, drafts included.
func (db *DB) GetCourseByKey(ctx context.Context, partnerID int64, key string) (*models.Course, error) {
	start := time.Now()
	c, err := scanCourse(db.conn.QueryRowContext(ctx, `SELECT `+courseColumns+`
		FROM courses c WHERE c.partner_id = ? AND c.key = ?`, partnerID, key))
	observe("select", "courses", start, err)
	if err != nil {
		return nil, err
	}
	if err := db.loadCourseRelations(ctx, db.conn, c, true); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCourseByUUID returns the partner's course with id.
func (db *DB) GetCourseByUUID(ctx context.Context, partnerID int64, id uuid.UUID) (*models.Course, error) {
	start := time.Now()
	c, err := scanCourse(db.conn.QueryRowContext(ctx, `SELECT `+courseColumns+`
		FROM courses c WHERE c.partner_id = ? AND c.uuid = ?`, partnerID, id.String()))
	observe("select", "courses", start, err)
	if err != nil {
		return nil, err
	}
	if err := db.loadCourseRelations(ctx, db.conn, c, true); err != nil {
		return nil, err
	}
	return c, nil
}

func (db *DB) getCourseByID(ctx context.Context, q queryer, id int64, includeRuns bool) (*models.Course, error) {
	c, err := scanCourse(q.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := db.loadCourseRelations(ctx, q, c, includeRuns); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCourses returns one page of the partner's courses ordered by id, and the
// total count.
func (db *DB) ListCourses(ctx context.Context, partnerID int64, f CourseFilter) ([]models.Course, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder().AddClause("c.partner_id = ?", partnerID)
	wb.AddIn("c.key", f.Keys)
	wb.AddILikeAny([]string{"c.title", "c.short_description", "c.full_description"}, f.Q)
	where, args := wb.BuildWithPrefix()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses c `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses c `+where+
		` ORDER BY c.id LIMIT ? OFFSET ?`, append(args, limitOrAll(f.Limit), f.Offset)...)
	observe("select", "courses", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	courses := make([]models.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			closeQuietly(rows)
			return nil, 0, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	err = rows.Err()
	closeWithLog(rows, nil, "course rows")
	if err != nil {
		return nil, 0, err
	}

	for i := range courses {
		if err := db.loadCourseRelations(ctx, db.conn, &courses[i], f.IncludeRuns); err != nil {
			return nil, 0, err
		}
	}
	return courses, total, nil
}

// CreateCourse inserts the course and its relations. ID and UUID are set on c.
func (db *DB) CreateCourse(ctx context.Context, c *models.Course) error {
	prices, err := db.prepareCourse(c)
	if err != nil {
		return err
	}

	start := time.Now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		return db.insertCourse(ctx, tx, c, prices)
	})
	observe("insert", "courses", start, err)
	return err
}

// CreateCourseWithRun inserts c and its first run r in one transaction, so a
// failed run insert leaves no course behind. r.CourseID is set from c.
func (db *DB) CreateCourseWithRun(ctx context.Context, c *models.Course, r *models.CourseRun) error {
	coursePrices, err := db.prepareCourse(c)
	if err != nil {
		return err
	}
	runPrices, err := db.prepareCourseRun(r)
	if err != nil {
		return err
	}

	start := time.Now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.insertCourse(ctx, tx, c, coursePrices); err != nil {
			return err
		}
		r.CourseID = c.ID
		return insertCourseRun(ctx, tx, r, runPrices)
	})
	observe("insert", "courses", start, err)
	return err
}

func (db *DB) prepareCourse(c *models.Course) (string, error) {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	now := db.now()
	c.Created, c.Modified = now, now
	return encodeJSON(nonNilPrices(c.Prices))
}

func (db *DB) insertCourse(ctx context.Context, tx *sql.Tx, c *models.Course, prices string) error {
	err := tx.QueryRowContext(ctx, `INSERT INTO courses (
		uuid, partner_id, key, key_for_reruns, title, number, url_slug, type_id,
		short_description, full_description, outcome, syllabus_raw, prerequisites_raw,
		learner_testimonials, faq, additional_information, level_type, video_url, image_url,
		card_image_url, draft, prices, created, modified
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		c.UUID.String(), c.PartnerID, c.Key, c.KeyForReruns, c.Title, c.Number, c.URLSlug, nullInt64(c.TypeID),
		c.ShortDescription, c.FullDescription, c.Outcome, c.SyllabusRaw, c.PrerequisitesRaw,
		c.LearnerTestimonials, c.FAQ, c.AdditionalInformation, c.LevelType, c.VideoURL, c.ImageURL,
		c.CardImageURL, c.Draft, prices, c.Created, c.Modified,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create course %s: %w", c.Key, err)
	}
	return db.writeCourseLinks(ctx, tx, c)
}

// UpdateCourse writes every mutable course field and replaces its owners,
// subjects and collaborators.
func (db *DB) UpdateCourse(ctx context.Context, c *models.Course) error {
	c.Modified = db.now()
	prices, err := encodeJSON(nonNilPrices(c.Prices))
	if err != nil {
		return err
	}

	start := time.Now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE courses SET
			key_for_reruns = ?, title = ?, number = ?, url_slug = ?, type_id = ?,
			short_description = ?, full_description = ?, outcome = ?, syllabus_raw = ?, prerequisites_raw = ?,
			learner_testimonials = ?, faq = ?, additional_information = ?, level_type = ?, video_url = ?,
			image_url = ?, card_image_url = ?, draft = ?, prices = ?, modified = ?
			WHERE id = ?`,
			c.KeyForReruns, c.Title, c.Number, c.URLSlug, nullInt64(c.TypeID),
			c.ShortDescription, c.FullDescription, c.Outcome, c.SyllabusRaw, c.PrerequisitesRaw,
			c.LearnerTestimonials, c.FAQ, c.AdditionalInformation, c.LevelType, c.VideoURL,
			c.ImageURL, c.CardImageURL, c.Draft, prices, c.Modified,
			c.ID)
		if err != nil {
			return fmt.Errorf("failed to update course %s: %w", c.Key, err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		for _, table := range []string{"course_authoring_organizations", "course_subjects", "course_collaborators"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE course_id = ?`, c.ID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return db.writeCourseLinks(ctx, tx, c)
	})
	observe("update", "courses", start, err)
	return err
}

func (db *DB) writeCourseLinks(ctx context.Context, tx *sql.Tx, c *models.Course) error {
	for i, o := range c.AuthoringOrganizations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO course_authoring_organizations (course_id, organization_id, sort_order)
			VALUES (?, ?, ?)`, c.ID, o.ID, i); err != nil {
			return fmt.Errorf("failed to link course organization: %w", err)
		}
	}
	for i, s := range c.Subjects {
		if _, err := tx.ExecContext(ctx, `INSERT INTO course_subjects (course_id, subject_id, sort_order)
			VALUES (?, ?, ?)`, c.ID, s.ID, i); err != nil {
			return fmt.Errorf("failed to link course subject: %w", err)
		}
	}
	for i, col := range c.Collaborators {
		if _, err := tx.ExecContext(ctx, `INSERT INTO course_collaborators (course_id, collaborator_id, sort_order)
			VALUES (?, ?, ?)`, c.ID, col.ID, i); err != nil {
			return fmt.Errorf("failed to link course collaborator: %w", err)
		}
	}
	return nil
}

func nonNilPrices(p map[string]string) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p
}

// limitOrAll maps a non-positive limit to an effectively unbounded one.
func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}
