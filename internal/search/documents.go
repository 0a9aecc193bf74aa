// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package search

import (
	"time"

	"github.com/tomtom215/catalogus/internal/models"
)

// CourseRunDocument is the indexed form of a course run.
type CourseRunDocument struct {
	ContentType         string            `json:"content_type"`
	Partner             string            `json:"partner"`
	UUID                string            `json:"uuid"`
	Key                 string            `json:"key"`
	CourseKey           string            `json:"course_key"`
	Org                 string            `json:"org"`
	Number              string            `json:"number"`
	Title               string            `json:"title"`
	ShortDescription    string            `json:"short_description"`
	FullDescription     string            `json:"full_description"`
	Outcome             string            `json:"outcome"`
	CardImageURL        string            `json:"card_image_url"`
	ImageURL            string            `json:"image_url"`
	Start               *time.Time        `json:"start"`
	End                 *time.Time        `json:"end"`
	EnrollmentStart     *time.Time        `json:"enrollment_start"`
	EnrollmentEnd       *time.Time        `json:"enrollment_end"`
	PacingType          string            `json:"pacing_type"`
	Availability        string            `json:"availability"`
	Published           bool              `json:"published"`
	Featured            bool              `json:"featured"`
	Marketable          bool              `json:"is_marketable"`
	ContentLanguage     string            `json:"content_language"`
	TranscriptLanguages []string          `json:"transcript_languages"`
	Staff               []string          `json:"staff_uuids"`
	Subjects            []string          `json:"subject_uuids"`
	Prices              map[string]string `json:"prices"`
	MinEffort           *int              `json:"min_effort"`
	MaxEffort           *int              `json:"max_effort"`
	WeeksToComplete     *int              `json:"weeks_to_complete"`
}

// NewCourseRunDocument builds the document for run. Marketing text on the
// run takes precedence over the course's.
func NewCourseRunDocument(partner string, course *models.Course, run *models.CourseRun, now time.Time) CourseRunDocument {
	doc := CourseRunDocument{
		ContentType:         "courserun",
		Partner:             partner,
		UUID:                run.UUID.String(),
		Key:                 run.Key,
		CourseKey:           run.CourseKey,
		Title:               run.DisplayTitle(),
		ShortDescription:    run.ShortDescription,
		FullDescription:     run.FullDescription,
		Outcome:             run.Outcome,
		CardImageURL:        run.CardImageURL,
		Start:               run.Start,
		End:                 run.End,
		EnrollmentStart:     run.EnrollmentStart,
		EnrollmentEnd:       run.EnrollmentEnd,
		PacingType:          string(run.PacingType),
		Availability:        run.Availability(now),
		Published:           run.Published(),
		Featured:            run.Featured(),
		Marketable:          run.Marketable(),
		ContentLanguage:     run.ContentLanguage,
		TranscriptLanguages: run.TranscriptLanguages,
		Prices:              run.Prices,
		MinEffort:           run.MinEffort,
		MaxEffort:           run.MaxEffort,
		WeeksToComplete:     run.WeeksToComplete,
	}
	if parsed, ok := models.ParseCourseRunKey(run.Key); ok {
		doc.Org = parsed.Org
		doc.Number = parsed.Number
	}
	for _, p := range run.Staff {
		doc.Staff = append(doc.Staff, p.UUID.String())
	}

	if course != nil {
		if doc.CourseKey == "" {
			doc.CourseKey = course.Key
		}
		if doc.Title == "" {
			doc.Title = course.Title
		}
		if doc.Number == "" {
			doc.Number = course.Number
		}
		if doc.ShortDescription == "" {
			doc.ShortDescription = course.ShortDescription
		}
		if doc.FullDescription == "" {
			doc.FullDescription = course.FullDescription
		}
		if doc.Outcome == "" {
			doc.Outcome = course.Outcome
		}
		if doc.CardImageURL == "" {
			doc.CardImageURL = course.CardImageURL
		}
		doc.ImageURL = course.ImageURL
		for _, s := range course.Subjects {
			doc.Subjects = append(doc.Subjects, s.UUID.String())
		}
	}
	return doc
}
