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

const courseRunColumns = `r.id, r.uuid, r.course_id, c.key, c.uuid, r.key, r.title, r.title_override, r.type_id,
	r.status, r.draft, r.start_date, r.end_date, r.go_live_date, r.upgrade_deadline_override,
	r.enrollment_start, r.enrollment_end, r.pacing_type, r.min_effort, r.max_effort, r.weeks_to_complete,
	r.course_duration_override, r.content_language, r.course_language, r.expected_program_type,
	r.expected_program_name, r.course_overridden, r.short_description, r.full_description, r.outcome,
	r.card_image_url, r.video_url, r.prices, r.enrollment_codes, r.created, r.modified`

const courseRunFrom = ` FROM course_runs r JOIN courses c ON c.id = r.course_id `

// availabilityExpr mirrors models.CourseRun.Availability. It takes two
// arguments: now and now plus the starting-soon window.
const availabilityExpr = `CASE
	WHEN r.end_date IS NOT NULL AND r.end_date < ? THEN 'Archived'
	WHEN r.start_date IS NOT NULL AND r.start_date <= ? THEN 'Current'
	WHEN r.start_date IS NOT NULL AND r.start_date <= ? THEN 'Starting Soon'
	ELSE 'Upcoming' END`

// CourseRunFilter narrows SearchCourseRuns. Zero values do not filter.
type CourseRunFilter struct {
	Q            string
	Key          string
	Keys         []string
	ExcludeKeys  []string
	Published    *bool
	Availability []string
	Featured     *bool
	Title        string
	Number       string
	CourseID     int64
	Limit        int
	Offset       int
	// Now is the reference time for availability; zero means the current time.
	Now time.Time
}

func scanCourseRun(row interface{ Scan(...any) error }) (*models.CourseRun, error) {
	var r models.CourseRun
	var typeID sql.NullInt64
	var start, end, goLive, upgrade, enrollStart, enrollEnd sql.NullTime
	var minEffort, maxEffort, weeks, durationOverride sql.NullInt32
	var courseLanguage, enrollmentCodes sql.NullString
	var status, pacing, prices string
	if err := row.Scan(&r.ID, &r.UUID, &r.CourseID, &r.CourseKey, &r.CourseUUID, &r.Key, &r.Title, &r.TitleOverride, &typeID,
		&status, &r.Draft, &start, &end, &goLive, &upgrade,
		&enrollStart, &enrollEnd, &pacing, &minEffort, &maxEffort, &weeks,
		&durationOverride, &r.ContentLanguage, &courseLanguage, &r.ExpectedProgramType,
		&r.ExpectedProgramName, &r.CourseOverridden, &r.ShortDescription, &r.FullDescription, &r.Outcome,
		&r.CardImageURL, &r.VideoURL, &prices, &enrollmentCodes, &r.Created, &r.Modified); err != nil {
		return nil, notFound(err)
	}
	r.TypeID = int64Ptr(typeID)
	r.Status = models.CourseRunStatus(status)
	r.PacingType = models.PacingType(pacing)
	r.Start, r.End, r.GoLiveDate = timePtr(start), timePtr(end), timePtr(goLive)
	r.UpgradeDeadlineOverride = timePtr(upgrade)
	r.EnrollmentStart, r.EnrollmentEnd = timePtr(enrollStart), timePtr(enrollEnd)
	r.MinEffort, r.MaxEffort, r.WeeksToComplete = intPtr(minEffort), intPtr(maxEffort), intPtr(weeks)
	r.CourseDurationOverride = intPtr(durationOverride)
	r.CourseLanguage = courseLanguage.String
	r.Prices = decodePrices(prices)
	if codes := decodePrices(enrollmentCodes.String); len(codes) > 0 {
		r.EnrollmentCodes = codes
	}
	return &r, nil
}

func (db *DB) loadCourseRunRelations(ctx context.Context, q queryer, r *models.CourseRun) error {
	var err error
	if r.TypeID != nil {
		if r.Type, err = db.getCourseRunTypeByID(ctx, q, *r.TypeID); err != nil {
			return fmt.Errorf("failed to load course run type: %w", err)
		}
	}
	if r.Staff, err = db.staffFor(ctx, q, r.ID); err != nil {
		return err
	}
	rows, err := q.QueryContext(ctx, `SELECT language_code FROM course_run_transcript_languages
		WHERE course_run_id = ? ORDER BY sort_order`, r.ID)
	if err != nil {
		return fmt.Errorf("failed to load transcript languages: %w", err)
	}
	defer closeQuietly(rows)
	r.TranscriptLanguages = []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return err
		}
		r.TranscriptLanguages = append(r.TranscriptLanguages, code)
	}
	return rows.Err()
}

// collectRuns scans every row then loads relations once rows is closed.
func (db *DB) collectRuns(ctx context.Context, q queryer, rows *sql.Rows) ([]models.CourseRun, error) {
	runs := make([]models.CourseRun, 0)
	for rows.Next() {
		r, err := scanCourseRun(rows)
		if err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan course run: %w", err)
		}
		runs = append(runs, *r)
	}
	err := rows.Err()
	closeWithLog(rows, nil, "course run rows")
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if err := db.loadCourseRunRelations(ctx, q, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (db *DB) runsForCourse(ctx context.Context, q queryer, c *models.Course) ([]models.CourseRun, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+courseRunColumns+courseRunFrom+
		`WHERE r.course_id = ? ORDER BY r.start_date NULLS LAST, r.id`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course runs: %w", err)
	}
	return db.collectRuns(ctx, q, rows)
}

// GetCourseRunByKey returns the partner's course run with key.
func (db *DB) GetCourseRunByKey(ctx context.Context, partnerID int64, key string) (*models.CourseRun, error) {
	start := time.Now()
	r, err := scanCourseRun(db.conn.QueryRowContext(ctx, `SELECT `+courseRunColumns+courseRunFrom+
		`WHERE c.partner_id = ? AND r.key = ?`, partnerID, key))
	observe("select", "course_runs", start, err)
	if err != nil {
		return nil, err
	}
	if err := db.loadCourseRunRelations(ctx, db.conn, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListCourseRunsByKeys returns the partner's runs whose keys are in keys.
func (db *DB) ListCourseRunsByKeys(ctx context.Context, partnerID int64, keys []string) ([]models.CourseRun, error) {
	if len(keys) == 0 {
		return []models.CourseRun{}, nil
	}
	wb := query.NewWhereBuilder().AddClause("c.partner_id = ?", partnerID).AddIn("r.key", keys)
	where, args := wb.BuildWithPrefix()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+courseRunColumns+courseRunFrom+where+` ORDER BY r.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list course runs: %w", err)
	}
	return db.collectRuns(ctx, db.conn, rows)
}

// ListCourseRunsForCourse returns the course's runs ordered by start.
func (db *DB) ListCourseRunsForCourse(ctx context.Context, courseID int64) ([]models.CourseRun, error) {
	return db.runsForCourse(ctx, db.conn, &models.Course{ID: courseID})
}

// LatestCourseRun returns the course's run with the latest start.
func (db *DB) LatestCourseRun(ctx context.Context, courseID int64) (*models.CourseRun, error) {
	r, err := scanCourseRun(db.conn.QueryRowContext(ctx, `SELECT `+courseRunColumns+courseRunFrom+
		`WHERE r.course_id = ? ORDER BY r.start_date DESC NULLS LAST, r.id DESC LIMIT 1`, courseID))
	if err != nil {
		return nil, err
	}
	if err := db.loadCourseRunRelations(ctx, db.conn, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CountCourseRuns returns how many runs the course has.
func (db *DB) CountCourseRuns(ctx context.Context, courseID int64) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_runs WHERE course_id = ?`, courseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count course runs: %w", err)
	}
	return n, nil
}

// SearchCourseRuns is the database search over the partner's runs, ordered by
// start then id. It returns one page and the total count.
func (db *DB) SearchCourseRuns(ctx context.Context, partnerID int64, f CourseRunFilter) ([]models.CourseRun, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := f.Now
	if now.IsZero() {
		now = db.now()
	}
	soon := now.Add(60 * 24 * time.Hour)

	wb := query.NewWhereBuilder().AddClause("c.partner_id = ?", partnerID)
	if f.CourseID != 0 {
		wb.AddClause("r.course_id = ?", f.CourseID)
	}
	if f.Key != "" {
		wb.AddClause("r.key = ?", f.Key)
	}
	wb.AddIn("r.key", f.Keys)
	wb.AddNotIn("r.key", f.ExcludeKeys)
	wb.AddILikeAny([]string{"r.title", "r.title_override", "r.short_description", "r.full_description",
		"c.title", "c.short_description", "c.full_description"}, f.Q)
	wb.AddILikeAny([]string{"r.title", "r.title_override", "c.title"}, f.Title)
	if f.Number != "" {
		wb.AddClause("c.number = ?", f.Number)
	}
	if f.Published != nil {
		if *f.Published {
			wb.AddClause("(r.status = 'published' AND NOT r.draft)")
		} else {
			wb.AddClause("(r.status <> 'published' OR r.draft)")
		}
	}
	if f.Featured != nil {
		wb.AddClause("r.course_overridden = ?", *f.Featured)
	}
	if len(f.Availability) > 0 {
		values := make([]any, 0, len(f.Availability)+3)
		values = append(values, now, now, soon)
		for _, a := range f.Availability {
			values = append(values, a)
		}
		wb.AddClause(fmt.Sprintf("(%s) IN (%s)", availabilityExpr, query.Placeholders(len(f.Availability))), values...)
	}
	where, args := wb.BuildWithPrefix()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*)`+courseRunFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count course runs: %w", err)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+courseRunColumns+courseRunFrom+where+
		` ORDER BY r.start_date NULLS LAST, r.id LIMIT ? OFFSET ?`, append(args, limitOrAll(f.Limit), f.Offset)...)
	observe("search", "course_runs", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search course runs: %w", err)
	}
	runs, err := db.collectRuns(ctx, db.conn, rows)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// CreateCourseRun inserts the run with its staff and transcript languages.
func (db *DB) CreateCourseRun(ctx context.Context, r *models.CourseRun) error {
	prices, err := db.prepareCourseRun(r)
	if err != nil {
		return err
	}

	start := time.Now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		return insertCourseRun(ctx, tx, r, prices)
	})
	observe("insert", "course_runs", start, err)
	return err
}

func (db *DB) prepareCourseRun(r *models.CourseRun) (string, error) {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.Status == "" {
		r.Status = models.CourseRunUnpublished
	}
	now := db.now()
	r.Created, r.Modified = now, now
	return encodeJSON(nonNilPrices(r.Prices))
}

func insertCourseRun(ctx context.Context, tx *sql.Tx, r *models.CourseRun, prices string) error {
	err := tx.QueryRowContext(ctx, `INSERT INTO course_runs (
		uuid, course_id, key, title, title_override, type_id, status, draft,
		start_date, end_date, go_live_date, upgrade_deadline_override, enrollment_start, enrollment_end,
		pacing_type, min_effort, max_effort, weeks_to_complete, course_duration_override,
		content_language, course_language, expected_program_type, expected_program_name, course_overridden,
		short_description, full_description, outcome, card_image_url, video_url, prices, created, modified
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`,
		r.UUID.String(), r.CourseID, r.Key, r.Title, r.TitleOverride, nullInt64(r.TypeID), string(r.Status), r.Draft,
		nullTime(r.Start), nullTime(r.End), nullTime(r.GoLiveDate), nullTime(r.UpgradeDeadlineOverride),
		nullTime(r.EnrollmentStart), nullTime(r.EnrollmentEnd),
		string(r.PacingType), nullInt(r.MinEffort), nullInt(r.MaxEffort), nullInt(r.WeeksToComplete), nullInt(r.CourseDurationOverride),
		r.ContentLanguage, r.CourseLanguage, r.ExpectedProgramType, r.ExpectedProgramName, r.CourseOverridden,
		r.ShortDescription, r.FullDescription, r.Outcome, r.CardImageURL, r.VideoURL, prices, r.Created, r.Modified,
	).Scan(&r.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create course run %s: %w", r.Key, err)
	}
	return writeCourseRunLinks(ctx, tx, r)
}

// UpdateCourseRun writes every mutable field and replaces staff and
// transcript languages.
func (db *DB) UpdateCourseRun(ctx context.Context, r *models.CourseRun) error {
	r.Modified = db.now()
	prices, err := encodeJSON(nonNilPrices(r.Prices))
	if err != nil {
		return err
	}
	codes, err := encodeJSON(nonNilPrices(r.EnrollmentCodes))
	if err != nil {
		return err
	}

	start := time.Now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE course_runs SET
			title = ?, title_override = ?, type_id = ?, status = ?, draft = ?,
			start_date = ?, end_date = ?, go_live_date = ?, upgrade_deadline_override = ?,
			enrollment_start = ?, enrollment_end = ?, pacing_type = ?, min_effort = ?, max_effort = ?,
			weeks_to_complete = ?, course_duration_override = ?, content_language = ?, course_language = ?,
			expected_program_type = ?, expected_program_name = ?, course_overridden = ?,
			short_description = ?, full_description = ?, outcome = ?, card_image_url = ?, video_url = ?,
			prices = ?, enrollment_codes = ?, modified = ?
			WHERE id = ?`,
			r.Title, r.TitleOverride, nullInt64(r.TypeID), string(r.Status), r.Draft,
			nullTime(r.Start), nullTime(r.End), nullTime(r.GoLiveDate), nullTime(r.UpgradeDeadlineOverride),
			nullTime(r.EnrollmentStart), nullTime(r.EnrollmentEnd), string(r.PacingType), nullInt(r.MinEffort), nullInt(r.MaxEffort),
			nullInt(r.WeeksToComplete), nullInt(r.CourseDurationOverride), r.ContentLanguage, r.CourseLanguage,
			r.ExpectedProgramType, r.ExpectedProgramName, r.CourseOverridden,
			r.ShortDescription, r.FullDescription, r.Outcome, r.CardImageURL, r.VideoURL,
			prices, codes, r.Modified,
			r.ID)
		if err != nil {
			return fmt.Errorf("failed to update course run %s: %w", r.Key, err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		for _, table := range []string{"course_run_staff", "course_run_transcript_languages"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE course_run_id = ?`, r.ID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return writeCourseRunLinks(ctx, tx, r)
	})
	observe("update", "course_runs", start, err)
	return err
}

func writeCourseRunLinks(ctx context.Context, tx *sql.Tx, r *models.CourseRun) error {
	for i, p := range r.Staff {
		if _, err := tx.ExecContext(ctx, `INSERT INTO course_run_staff (course_run_id, person_id, sort_order)
			VALUES (?, ?, ?)`, r.ID, p.ID, i); err != nil {
			return fmt.Errorf("failed to link course run staff: %w", err)
		}
	}
	for i, code := range r.TranscriptLanguages {
		if _, err := tx.ExecContext(ctx, `INSERT INTO course_run_transcript_languages (course_run_id, language_code, sort_order)
			VALUES (?, ?, ?)`, r.ID, code, i); err != nil {
			return fmt.Errorf("failed to link transcript language: %w", err)
		}
	}
	return nil
}
