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

	"github.com/tomtom215/catalogus/internal/models"
)

// subjectSelect picks the translation in the requested language, falling back
// to the lowest language code the subject has.
const subjectSelect = `SELECT s.id, s.uuid, s.partner_id, s.slug, s.banner_url, s.card_image_url,
	t.language_code, t.name, t.subtitle, t.description
	FROM subjects s
	JOIN subject_translations t ON t.subject_id = s.id
	AND t.language_code = COALESCE(
		(SELECT language_code FROM subject_translations WHERE subject_id = s.id AND language_code = ?),
		(SELECT MIN(language_code) FROM subject_translations WHERE subject_id = s.id))`

func scanSubject(row interface{ Scan(...any) error }) (*models.Subject, error) {
	var s models.Subject
	if err := row.Scan(&s.ID, &s.UUID, &s.PartnerID, &s.Slug, &s.BannerURL, &s.CardImageURL,
		&s.LanguageCode, &s.Name, &s.Subtitle, &s.Description); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return models.DefaultLanguageCode
	}
	return lang
}

// GetSubjectByName returns the partner's subject whose translation in lang is
// called name.
func (db *DB) GetSubjectByName(ctx context.Context, partnerID int64, name, lang string) (*models.Subject, error) {
	lang = languageOrDefault(lang)
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT s.id, s.uuid, s.partner_id, s.slug, s.banner_url, s.card_image_url,
		t.language_code, t.name, t.subtitle, t.description
		FROM subjects s JOIN subject_translations t ON t.subject_id = s.id
		WHERE s.partner_id = ? AND t.language_code = ? AND t.name = ?
		ORDER BY s.id LIMIT 1`, partnerID, lang, name)
	s, err := scanSubject(row)
	observe("select", "subjects", start, err)
	return s, err
}

// GetSubject returns the partner's subject with id, translated into lang when
// a translation exists.
func (db *DB) GetSubject(ctx context.Context, partnerID int64, id uuid.UUID, lang string) (*models.Subject, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, subjectSelect+` WHERE s.partner_id = ? AND s.uuid = ?`,
		languageOrDefault(lang), partnerID, id.String())
	s, err := scanSubject(row)
	observe("select", "subjects", start, err)
	return s, err
}

// ListSubjects returns one page of the partner's subjects ordered by id, and
// the total count.
func (db *DB) ListSubjects(ctx context.Context, partnerID int64, lang string, limit, offset int) ([]models.Subject, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects WHERE partner_id = ?`, partnerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subjects: %w", err)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, subjectSelect+` WHERE s.partner_id = ? ORDER BY s.id LIMIT ? OFFSET ?`,
		languageOrDefault(lang), partnerID, limit, offset)
	observe("select", "subjects", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer closeQuietly(rows)

	subjects := make([]models.Subject, 0, limit)
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, *s)
	}
	return subjects, total, rows.Err()
}

// UpsertSubject writes the subject keyed by partner and slug along with the
// given translations.
func (db *DB) UpsertSubject(ctx context.Context, s *models.Subject, translations ...models.SubjectTranslation) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.Slug == "" {
		s.Slug = models.Slugify(s.Name)
	}
	if len(translations) == 0 {
		translations = []models.SubjectTranslation{{
			LanguageCode: languageOrDefault(s.LanguageCode),
			Name:         s.Name,
			Subtitle:     s.Subtitle,
			Description:  s.Description,
		}}
	}

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `INSERT INTO subjects (uuid, partner_id, slug, banner_url, card_image_url)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (partner_id, slug) DO UPDATE SET
				banner_url = excluded.banner_url, card_image_url = excluded.card_image_url
			RETURNING id, uuid`,
			s.UUID.String(), s.PartnerID, s.Slug, s.BannerURL, s.CardImageURL).Scan(&s.ID, &s.UUID)
		if err != nil {
			return fmt.Errorf("failed to upsert subject %s: %w", s.Slug, err)
		}
		for _, t := range translations {
			if _, err := tx.ExecContext(ctx, `INSERT INTO subject_translations
				(subject_id, language_code, name, subtitle, description) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (subject_id, language_code) DO UPDATE SET
					name = excluded.name, subtitle = excluded.subtitle, description = excluded.description`,
				s.ID, languageOrDefault(t.LanguageCode), t.Name, t.Subtitle, t.Description); err != nil {
				return fmt.Errorf("failed to upsert subject translation: %w", err)
			}
		}
		return nil
	})
	observe("upsert", "subjects", start, err)
	return err
}

func (db *DB) subjectsFor(ctx context.Context, q queryer, courseID int64) ([]models.Subject, error) {
	rows, err := q.QueryContext(ctx, subjectSelect+`
		JOIN course_subjects l ON l.subject_id = s.id
		WHERE l.course_id = ? ORDER BY l.sort_order`, models.DefaultLanguageCode, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course subjects: %w", err)
	}
	defer closeQuietly(rows)

	out := make([]models.Subject, 0)
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
