// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// ListCourses returns one page of the partner's courses.
func (s *Service) ListCourses(ctx context.Context, partner *models.Partner, f database.CourseFilter) ([]models.Course, int, error) {
	return s.store.ListCourses(ctx, partner.ID, f)
}

// GetCourse returns the partner's course with id, runs included.
func (s *Service) GetCourse(ctx context.Context, partner *models.Partner, id uuid.UUID) (*models.Course, error) {
	return s.store.GetCourseByUUID(ctx, partner.ID, id)
}

// GetCourseByKey returns the partner's course with key.
func (s *Service) GetCourseByKey(ctx context.Context, partner *models.Partner, key string) (*models.Course, error) {
	return s.store.GetCourseByKey(ctx, partner.ID, key)
}

// ListCourseRuns returns one page of the partner's runs matching f.
func (s *Service) ListCourseRuns(ctx context.Context, partner *models.Partner, f database.CourseRunFilter) ([]models.CourseRun, int, error) {
	if f.Now.IsZero() {
		f.Now = s.now()
	}
	return s.store.SearchCourseRuns(ctx, partner.ID, f)
}

// GetCourseRun returns the partner's run with key.
func (s *Service) GetCourseRun(ctx context.Context, partner *models.Partner, key string) (*models.CourseRun, error) {
	return s.store.GetCourseRunByKey(ctx, partner.ID, key)
}

// CreateCourse stores a draft course and its optional first run.
func (s *Service) CreateCourse(ctx context.Context, partner *models.Partner, req *models.CourseCreate) (*models.Course, error) {
	org, err := s.store.GetOrganizationByKey(ctx, partner.ID, req.Org)
	if errors.Is(err, database.ErrNotFound) {
		return nil, invalid("org", "Organization %q does not exist.", req.Org)
	}
	if err != nil {
		return nil, err
	}
	ct, err := s.courseType(ctx, req.Type)
	if err != nil {
		return nil, err
	}

	key := models.CourseKey(req.Org, req.Number)
	if _, err := s.store.GetCourseByKey(ctx, partner.ID, key); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	course := &models.Course{
		UUID:                   uuid.New(),
		PartnerID:              partner.ID,
		Key:                    key,
		Title:                  req.Title,
		Number:                 req.Number,
		URLSlug:                models.Slugify(req.Title),
		TypeID:                 &ct.ID,
		Type:                   ct,
		Draft:                  true,
		Prices:                 req.Prices,
		AuthoringOrganizations: []models.Organization{*org},
	}
	if req.CourseRun == nil {
		if err := s.store.CreateCourse(ctx, course); err != nil {
			return nil, err
		}
		logging.Ctx(ctx).Info().Str("course", key).Str("partner", partner.ShortCode).Msg("Course created")
		return s.store.GetCourseByUUID(ctx, partner.ID, course.UUID)
	}

	// The run type and Studio key are settled before anything is stored;
	// the course and its run are then written together.
	run, err := s.firstRun(ctx, partner, course, req.CourseRun)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateCourseWithRun(ctx, course, run); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("course", key).Str("course_run", run.Key).Str("partner", partner.ShortCode).
		Msg("Course created")
	return s.store.GetCourseByUUID(ctx, partner.ID, course.UUID)
}

func (s *Service) courseType(ctx context.Context, raw string) (*models.CourseType, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("type", "%q is not a valid UUID.", raw)
	}
	ct, err := s.store.GetCourseTypeByUUID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, invalid("type", "Course type %s does not exist.", raw)
	}
	return ct, err
}

func (s *Service) courseRunType(ctx context.Context, raw string) (*models.CourseRunType, error) {
	if raw == "" {
		return s.store.GetCourseRunTypeByName(ctx, models.EmptyCourseRunType)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("run_type", "%q is not a valid UUID.", raw)
	}
	rt, err := s.store.GetCourseRunTypeByUUID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, invalid("run_type", "Course run type %s does not exist.", raw)
	}
	return rt, err
}

// firstRun builds the first run of a course that is not stored yet. Its key
// comes from Studio when the partner has one.
func (s *Service) firstRun(ctx context.Context, partner *models.Partner, course *models.Course, req *models.CourseRunCreate) (*models.CourseRun, error) {
	rt, err := s.courseRunType(ctx, req.RunType)
	if err != nil {
		return nil, err
	}
	pacing := models.PacingInstructor
	if req.PacingType != "" {
		pacing = models.PacingType(req.PacingType)
	}
	year := s.now().Year()
	if req.Start != nil {
		year = req.Start.Year()
	}
	runName := fmt.Sprintf("%d_T1", year)
	org := ""
	if len(course.AuthoringOrganizations) > 0 {
		org = course.AuthoringOrganizations[0].Key
	}

	key := fmt.Sprintf("course-v1:%s+%s+%s", org, course.Number, runName)
	if studio := s.studio(partner); studio != nil {
		key, err = studio.CreateCourseRun(ctx, &upstream.StudioCourseRun{
			Title:      course.Title,
			Org:        org,
			Number:     course.Number,
			Run:        runName,
			Schedule:   upstream.StudioSchedule{Start: req.Start, End: req.End},
			Team:       []upstream.StudioTeamMember{},
			PacingType: string(pacing),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: studio: %v", ErrUpstream, err)
		}
	}

	return &models.CourseRun{
		CourseKey:  course.Key,
		CourseUUID: course.UUID,
		Key:        key,
		Title:      course.Title,
		TypeID:     &rt.ID,
		Type:       rt,
		Status:     models.CourseRunUnpublished,
		Draft:      true,
		Start:      req.Start,
		End:        req.End,
		PacingType: pacing,
		Prices:     req.Prices,
	}, nil
}

// UpdateCourse applies the non-nil fields of req to the course.
func (s *Service) UpdateCourse(ctx context.Context, partner *models.Partner, id uuid.UUID, req *models.CourseUpdate) (*models.Course, error) {
	c, err := s.store.GetCourseByUUID(ctx, partner.ID, id)
	if err != nil {
		return nil, err
	}

	setString(&c.URLSlug, req.URLSlug)
	setString(&c.Title, req.Title)
	setString(&c.SyllabusRaw, req.SyllabusRaw)
	setString(&c.LevelType, req.LevelType)
	setString(&c.Outcome, req.Outcome)
	setString(&c.FAQ, req.FAQ)
	setString(&c.PrerequisitesRaw, req.PrerequisitesRaw)
	setString(&c.FullDescription, req.FullDescription)
	setString(&c.ShortDescription, req.ShortDescription)
	setString(&c.LearnerTestimonials, req.LearnerTestimonials)
	setString(&c.AdditionalInformation, req.AdditionalInformation)
	if req.Video != nil {
		c.VideoURL = req.Video.Src
	}
	if req.Prices != nil {
		c.Prices = req.Prices
	}
	if req.Type != nil {
		ct, err := s.courseType(ctx, *req.Type)
		if err != nil {
			return nil, err
		}
		c.TypeID, c.Type = &ct.ID, ct
	}
	if req.Image != nil {
		if err := s.applyCourseImage(c, *req.Image); err != nil {
			return nil, err
		}
	}
	if req.Subjects != nil {
		if c.Subjects, err = s.subjectsByName(ctx, partner, req.Subjects); err != nil {
			return nil, err
		}
	}
	if req.Collaborators != nil {
		if c.Collaborators, err = s.collaborators(ctx, req.Collaborators); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return nil, err
	}
	updated, err := s.store.GetCourseByUUID(ctx, partner.ID, id)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, partner, updated, updated.CourseRuns)
	return updated, nil
}

func (s *Service) applyCourseImage(c *models.Course, image string) error {
	switch {
	case image == "":
		c.ImageURL, c.CardImageURL = "", ""
	case IsDataURI(image):
		img, err := DecodeImageDataURI(image)
		if err != nil {
			return err
		}
		url, err := s.saveImage(courseImageDir, c.UUID.String(), img)
		if err != nil {
			return err
		}
		c.ImageURL, c.CardImageURL = url, url
	case strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://"):
		c.ImageURL, c.CardImageURL = image, image
	default:
		return ErrBadImageData
	}
	return nil
}

func (s *Service) subjectsByName(ctx context.Context, partner *models.Partner, names []string) ([]models.Subject, error) {
	out := make([]models.Subject, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		subject, err := s.store.GetSubjectByName(ctx, partner.ID, name, models.DefaultLanguageCode)
		if errors.Is(err, database.ErrNotFound) {
			return nil, invalid("subjects", "Subject %q does not exist.", name)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *subject)
	}
	return out, nil
}

func (s *Service) collaborators(ctx context.Context, raw []string) ([]models.Collaborator, error) {
	ids, err := parseUUIDs("collaborators", raw)
	if err != nil {
		return nil, err
	}
	found, err := s.store.ListCollaboratorsByUUIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Collaborator, len(found))
	for _, c := range found {
		byID[c.UUID] = c
	}
	out := make([]models.Collaborator, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, invalid("collaborators", "Collaborator %s does not exist.", id)
		}
		out = append(out, c)
	}
	return out, nil
}

// UpdateCourseRun applies the non-nil fields of req to the run. Draft false
// publishes the run and pushes it to Studio and Ecommerce.
func (s *Service) UpdateCourseRun(ctx context.Context, partner *models.Partner, key string, req *models.CourseRunUpdate) (*models.CourseRun, error) {
	run, err := s.store.GetCourseRunByKey(ctx, partner.ID, key)
	if err != nil {
		return nil, err
	}

	setString(&run.TitleOverride, req.TitleOverride)
	setString(&run.ExpectedProgramName, req.ExpectedProgramName)
	if req.Start != nil {
		run.Start = req.Start
	}
	if req.End != nil {
		run.End = req.End
	}
	if req.GoLiveDate != nil {
		run.GoLiveDate = req.GoLiveDate
	}
	if req.UpgradeDeadlineOverride != nil {
		run.UpgradeDeadlineOverride = req.UpgradeDeadlineOverride
	}
	if req.MinEffort != nil {
		run.MinEffort = req.MinEffort
	}
	if req.MaxEffort != nil {
		run.MaxEffort = req.MaxEffort
	}
	if req.WeeksToComplete != nil {
		run.WeeksToComplete = req.WeeksToComplete
	}
	if req.PacingType != nil {
		run.PacingType = models.PacingType(*req.PacingType)
	}
	if req.Prices != nil {
		run.Prices = req.Prices
	}
	if run.Start != nil && run.End != nil && run.End.Before(*run.Start) {
		return nil, invalid("end", "End date cannot be before the start date.")
	}
	if req.RunType != nil {
		rt, err := s.courseRunType(ctx, *req.RunType)
		if err != nil {
			return nil, err
		}
		run.TypeID, run.Type = &rt.ID, rt
	}
	if req.ClearExpectedProgramType {
		run.ExpectedProgramType = ""
	} else if req.ExpectedProgramType != nil {
		if *req.ExpectedProgramType == "" {
			run.ExpectedProgramType = ""
		} else {
			kind, ok := models.ParseProgramTypeKind(*req.ExpectedProgramType)
			if !ok {
				return nil, invalid("expected_program_type", "%q is not a valid choice.", *req.ExpectedProgramType)
			}
			run.ExpectedProgramType = string(kind)
		}
	}
	if req.ContentLanguage != nil {
		if *req.ContentLanguage != "" {
			if err := s.requireLanguages(ctx, "content_language", *req.ContentLanguage); err != nil {
				return nil, err
			}
		}
		run.ContentLanguage = *req.ContentLanguage
	}
	if req.TranscriptLanguages != nil {
		if err := s.requireLanguages(ctx, "transcript_languages", req.TranscriptLanguages...); err != nil {
			return nil, err
		}
		run.TranscriptLanguages = req.TranscriptLanguages
	}
	if req.Staff != nil {
		if run.Staff, err = s.staff(ctx, partner, req.Staff); err != nil {
			return nil, err
		}
	}

	publish := req.Draft != nil && !*req.Draft
	if req.Draft != nil {
		run.Draft = *req.Draft
	}
	if publish {
		run.Status = models.CourseRunPublished
	}
	if err := s.store.UpdateCourseRun(ctx, run); err != nil {
		return nil, err
	}

	course, err := s.store.GetCourseByKey(ctx, partner.ID, run.CourseKey)
	if err != nil {
		return nil, err
	}
	if publish {
		if err := s.publishCourseRun(ctx, partner, course, run); err != nil {
			return nil, err
		}
	}
	updated, err := s.store.GetCourseRunByKey(ctx, partner.ID, key)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, partner, course, []models.CourseRun{*updated})
	return updated, nil
}

func (s *Service) requireLanguages(ctx context.Context, field string, codes ...string) error {
	var bad []string
	for _, code := range codes {
		if _, err := s.store.GetLanguageTag(ctx, code); err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				return err
			}
			bad = append(bad, code)
		}
	}
	if len(bad) > 0 {
		return invalid(field, "Unknown language code(s): %s.", strings.Join(bad, ", "))
	}
	return nil
}

func (s *Service) staff(ctx context.Context, partner *models.Partner, raw []string) ([]models.Person, error) {
	ids, err := parseUUIDs("staff", raw)
	if err != nil {
		return nil, err
	}
	found, err := s.store.ListPeopleByUUIDs(ctx, partner.ID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Person, len(found))
	for _, p := range found {
		byID[p.UUID] = p
	}
	out := make([]models.Person, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, invalid("staff", "Person %s does not exist.", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseUUIDs(field string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, invalid(field, "%q is not a valid UUID.", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
