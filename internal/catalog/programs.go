// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// ListPrograms returns one page of the partner's programs.
func (s *Service) ListPrograms(ctx context.Context, partner *models.Partner, f database.ProgramFilter) ([]models.Program, int, error) {
	return s.store.ListPrograms(ctx, partner.ID, f)
}

// ListProgramUUIDs returns the uuids of every program matching f.
func (s *Service) ListProgramUUIDs(ctx context.Context, partner *models.Partner, f database.ProgramFilter) ([]uuid.UUID, error) {
	return s.store.ListProgramUUIDs(ctx, partner.ID, f)
}

// GetProgram returns the partner's program with id.
func (s *Service) GetProgram(ctx context.Context, partner *models.Partner, id uuid.UUID) (*models.Program, error) {
	return s.store.GetProgram(ctx, partner.ID, id)
}

// CreateProgram resolves the related keys in w and stores a new program.
func (s *Service) CreateProgram(ctx context.Context, partner *models.Partner, w *models.ProgramWrite) (*models.Program, error) {
	if w.Title == nil || *w.Title == "" {
		return nil, invalid("title", "This field is required.")
	}
	p := &models.Program{PartnerID: partner.ID, Status: models.ProgramUnpublished}
	if err := s.applyProgramWrite(ctx, partner, p, w, false); err != nil {
		return nil, err
	}
	if err := s.store.CreateProgram(ctx, p); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("program", p.UUID.String()).Str("partner", partner.ShortCode).Msg("Program created")
	return s.store.GetProgram(ctx, partner.ID, p.UUID)
}

// UpdateProgram applies w to the program. A partial update leaves nil
// fields and omitted sets untouched; a full update replaces every set.
func (s *Service) UpdateProgram(ctx context.Context, partner *models.Partner, id uuid.UUID, w *models.ProgramWrite, partial bool) (*models.Program, error) {
	p, err := s.store.GetProgram(ctx, partner.ID, id)
	if err != nil {
		return nil, err
	}
	if !partial && (w.Title == nil || *w.Title == "") {
		return nil, invalid("title", "This field is required.")
	}
	if err := s.applyProgramWrite(ctx, partner, p, w, partial); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProgram(ctx, p); err != nil {
		return nil, err
	}
	return s.store.GetProgram(ctx, partner.ID, id)
}

func (s *Service) applyProgramWrite(ctx context.Context, partner *models.Partner, p *models.Program, w *models.ProgramWrite, partial bool) error {
	setString(&p.Title, w.Title)
	setString(&p.Subtitle, w.Subtitle)
	setString(&p.MarketingSlug, w.MarketingSlug)
	setString(&p.Overview, w.Overview)
	setString(&p.BannerImageURL, w.BannerImageURL)
	if w.Status != nil {
		p.Status = models.ProgramStatus(*w.Status)
	}
	if w.Hidden != nil {
		p.Hidden = *w.Hidden
	}
	if w.Featured != nil {
		p.OneClickPurchaseEnabled = *w.Featured
	}
	if w.MinHoursEffortPerWeek != nil {
		p.MinHoursEffortPerWeek = w.MinHoursEffortPerWeek
	}
	if w.MaxHoursEffortPerWeek != nil {
		p.MaxHoursEffortPerWeek = w.MaxHoursEffortPerWeek
	}

	if w.Type != nil {
		if *w.Type == "" {
			p.TypeID, p.Type = nil, nil
		} else {
			t, err := s.store.GetProgramTypeBySlug(ctx, *w.Type)
			if errors.Is(err, database.ErrNotFound) {
				return invalid("type", "Program type %q does not exist.", *w.Type)
			}
			if err != nil {
				return err
			}
			p.TypeID, p.Type = &t.ID, t
		}
	}

	var err error
	if w.AuthoringOrganizations != nil || !partial {
		if p.AuthoringOrganizations, err = s.organizations(ctx, partner, "authoring_organizations", w.AuthoringOrganizations); err != nil {
			return err
		}
	}
	if w.CreditBackingOrganizations != nil || !partial {
		if p.CreditBackingOrganizations, err = s.organizations(ctx, partner, "credit_backing_organizations", w.CreditBackingOrganizations); err != nil {
			return err
		}
	}
	if w.CourseRuns != nil || !partial {
		if p.Courses, p.ExcludedCourseRuns, err = s.programCourses(ctx, partner, w.CourseRuns); err != nil {
			return err
		}
	}
	return nil
}

// organizations resolves keys in order and rejects unknown ones.
func (s *Service) organizations(ctx context.Context, partner *models.Partner, field string, keys []string) ([]models.Organization, error) {
	if len(keys) == 0 {
		return []models.Organization{}, nil
	}
	found, err := s.store.ListOrganizationsByKeys(ctx, partner.ID, keys)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]models.Organization, len(found))
	for _, o := range found {
		byKey[o.Key] = o
	}
	out := make([]models.Organization, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		o, ok := byKey[k]
		if !ok {
			return nil, invalid(field, "Organization %q does not exist.", k)
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, o)
		}
	}
	return out, nil
}

// programCourses turns the selected run keys into the distinct courses of
// those runs, in first-seen order, and every other run of those courses.
func (s *Service) programCourses(ctx context.Context, partner *models.Partner, runKeys []string) ([]models.Course, []models.CourseRun, error) {
	courses := []models.Course{}
	excluded := []models.CourseRun{}
	if len(runKeys) == 0 {
		return courses, excluded, nil
	}
	runs, err := s.store.ListCourseRunsByKeys(ctx, partner.ID, runKeys)
	if err != nil {
		return nil, nil, err
	}
	selected := make(map[string]models.CourseRun, len(runs))
	for _, r := range runs {
		selected[r.Key] = r
	}

	seenCourse := map[string]bool{}
	for _, key := range runKeys {
		r, ok := selected[key]
		if !ok {
			return nil, nil, invalid("course_runs", "Course run %q does not exist.", key)
		}
		if seenCourse[r.CourseKey] {
			continue
		}
		seenCourse[r.CourseKey] = true
		c, err := s.store.GetCourseByKey(ctx, partner.ID, r.CourseKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load course %s: %w", r.CourseKey, err)
		}
		for _, other := range c.CourseRuns {
			if _, keep := selected[other.Key]; !keep {
				excluded = append(excluded, other)
			}
		}
		c.CourseRuns = nil
		courses = append(courses, *c)
	}
	return courses, excluded, nil
}

// UpdateCardImage stores a data URI image as the program card image and
// returns the updated program.
func (s *Service) UpdateCardImage(ctx context.Context, partner *models.Partner, id uuid.UUID, dataURI string) (*models.Program, error) {
	p, err := s.store.GetProgram(ctx, partner.ID, id)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImageDataURI(dataURI)
	if err != nil {
		return nil, err
	}
	url, err := s.saveImage(programCardImageDir, p.UUID.String(), img)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetProgramCardImage(ctx, p.ID, url); err != nil {
		return nil, err
	}
	p.CardImageURL = url
	logging.Ctx(ctx).Info().Msgf("Successfully updated program card image for program %s: %s", p.UUID, p.Title)
	return p, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
