// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/models"
)

func createCourseWithRuns(t *testing.T, db *DB, fx fixture, number string, starts ...time.Time) (*models.Course, []models.CourseRun) {
	t.Helper()
	ctx := context.Background()

	course := &models.Course{
		PartnerID:              fx.partner.ID,
		Key:                    models.CourseKey(fx.org.Key, number),
		Title:                  "Course " + number,
		Number:                 number,
		TypeID:                 &fx.courseType.ID,
		ShortDescription:       "Learn " + number,
		Prices:                 map[string]string{models.SeatVerified: "49.00"},
		AuthoringOrganizations: []models.Organization{*fx.org},
	}
	if err := db.CreateCourse(ctx, course); err != nil {
		t.Fatalf("CreateCourse(%s) error = %v", number, err)
	}

	runs := make([]models.CourseRun, 0, len(starts))
	for i, start := range starts {
		end := start.AddDate(0, 2, 0)
		run := &models.CourseRun{
			CourseID:   course.ID,
			Key:        "course-v1:" + fx.org.Key + "+" + number + "+" + start.Format("2006") + "_T" + string(rune('1'+i)),
			Title:      course.Title,
			TypeID:     &fx.courseRunType.ID,
			Start:      ptrTime(start),
			End:        ptrTime(end),
			PacingType: models.PacingSelf,
		}
		if err := db.CreateCourseRun(ctx, run); err != nil {
			t.Fatalf("CreateCourseRun(%s) error = %v", run.Key, err)
		}
		runs = append(runs, *run)
	}
	return course, runs
}

func TestCourses_CreateGetUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedFixture(t, db)

	course, _ := createCourseWithRuns(t, db, fx, "CS101", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))

	dup := &models.Course{PartnerID: fx.partner.ID, Key: course.Key}
	if err := db.CreateCourse(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate CreateCourse() error = %v, want ErrConflict", err)
	}

	got, err := db.GetCourseByKey(ctx, fx.partner.ID, "edX+CS101")
	if err != nil {
		t.Fatalf("GetCourseByKey() error = %v", err)
	}
	if got.UUID != course.UUID || got.Type == nil || got.Type.Name != "Verified and Audit" {
		t.Errorf("GetCourseByKey() = %+v", got)
	}
	if got.Prices[models.SeatVerified] != "49.00" || len(got.AuthoringOrganizations) != 1 || len(got.CourseRuns) != 1 {
		t.Errorf("relations not loaded: %+v", got)
	}

	s1 := &models.Subject{PartnerID: fx.partner.ID, Name: "Math"}
	s2 := &models.Subject{PartnerID: fx.partner.ID, Name: "Art"}
	for _, s := range []*models.Subject{s1, s2} {
		if err := db.UpsertSubject(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	collab, _, err := db.GetOrCreateCollaborator(ctx, "Museum")
	if err != nil {
		t.Fatal(err)
	}

	got.Title = "Renamed"
	got.Subjects = []models.Subject{*s2, *s1}
	got.Collaborators = []models.Collaborator{*collab}
	got.AuthoringOrganizations = nil
	if err := db.UpdateCourse(ctx, got); err != nil {
		t.Fatalf("UpdateCourse() error = %v", err)
	}

	updated, err := db.GetCourseByUUID(ctx, fx.partner.ID, course.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Renamed" || len(updated.AuthoringOrganizations) != 0 {
		t.Errorf("UpdateCourse() did not persist: %+v", updated)
	}
	if len(updated.Subjects) != 2 || updated.Subjects[0].Name != "Art" || updated.Subjects[1].Name != "Math" {
		t.Errorf("subject order = %+v", updated.Subjects)
	}
	if len(updated.Collaborators) != 1 {
		t.Errorf("collaborators = %+v", updated.Collaborators)
	}

	missing := &models.Course{ID: 9999}
	if err := db.UpdateCourse(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCourse(missing) error = %v", err)
	}

	list, total, err := db.ListCourses(ctx, fx.partner.ID, CourseFilter{Q: "renamed"})
	if err != nil || total != 1 || len(list) != 1 {
		t.Errorf("ListCourses(q) = %d, %d, %v", len(list), total, err)
	}
}

func TestCreateCourseWithRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedFixture(t, db)
	_, runs := createCourseWithRuns(t, db, fx, "CS101", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))

	newCourse := func(number string) *models.Course {
		return &models.Course{
			PartnerID:              fx.partner.ID,
			Key:                    models.CourseKey(fx.org.Key, number),
			Title:                  "Course " + number,
			Number:                 number,
			TypeID:                 &fx.courseType.ID,
			AuthoringOrganizations: []models.Organization{*fx.org},
		}
	}

	// The run key is taken, so neither row may survive.
	clash := newCourse("CS200")
	err := db.CreateCourseWithRun(ctx, clash, &models.CourseRun{Key: runs[0].Key, TypeID: &fx.courseRunType.ID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("CreateCourseWithRun(clash) error = %v, want ErrConflict", err)
	}
	if _, err := db.GetCourseByKey(ctx, fx.partner.ID, clash.Key); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCourseByKey() error = %v, want ErrNotFound", err)
	}

	course := newCourse("CS201")
	run := &models.CourseRun{Key: "course-v1:edX+CS201+2026_T1", TypeID: &fx.courseRunType.ID, PacingType: models.PacingSelf}
	if err := db.CreateCourseWithRun(ctx, course, run); err != nil {
		t.Fatalf("CreateCourseWithRun() error = %v", err)
	}
	if run.CourseID != course.ID {
		t.Errorf("run.CourseID = %d, want %d", run.CourseID, course.ID)
	}
	latest, err := db.LatestCourseRun(ctx, course.ID)
	if err != nil || latest.Key != run.Key {
		t.Errorf("LatestCourseRun() = %+v, %v", latest, err)
	}
}

func TestCourseRuns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedFixture(t, db)

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	course, runs := createCourseWithRuns(t, db, fx, "DS1",
		now.AddDate(-1, 0, 0), // archived
		now.AddDate(0, 0, -7), // current
		now.AddDate(0, 0, 20), // starting soon
		now.AddDate(0, 6, 0),  // upcoming
	)

	latest, err := db.LatestCourseRun(ctx, course.ID)
	if err != nil || latest.Key != runs[3].Key {
		t.Fatalf("LatestCourseRun() = %v, %v", latest, err)
	}
	if n, _ := db.CountCourseRuns(ctx, course.ID); n != 4 {
		t.Errorf("CountCourseRuns() = %d", n)
	}

	staff, _, err := db.GetOrCreatePerson(ctx, fx.partner.ID, "Grace")
	if err != nil {
		t.Fatal(err)
	}
	run, err := db.GetCourseRunByKey(ctx, fx.partner.ID, runs[1].Key)
	if err != nil {
		t.Fatalf("GetCourseRunByKey() error = %v", err)
	}
	if run.CourseKey != course.Key || run.Type == nil {
		t.Errorf("run = %+v", run)
	}
	run.Status = models.CourseRunPublished
	run.CourseOverridden = true
	run.Staff = []models.Person{*staff}
	run.TranscriptLanguages = []string{"en-us", "fr"}
	duration := 12
	run.CourseDurationOverride = &duration
	run.CourseLanguage = "en-us"
	if err := db.UpdateCourseRun(ctx, run); err != nil {
		t.Fatalf("UpdateCourseRun() error = %v", err)
	}

	reloaded, err := db.GetCourseRunByKey(ctx, fx.partner.ID, run.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Staff) != 1 || len(reloaded.TranscriptLanguages) != 2 || !reloaded.Published() {
		t.Errorf("reloaded run = %+v", reloaded)
	}
	if reloaded.CourseDurationOverride == nil || *reloaded.CourseDurationOverride != 12 || reloaded.CourseLanguage != "en-us" {
		t.Errorf("migrated columns not persisted: %+v", reloaded)
	}

	byKeys, err := db.ListCourseRunsByKeys(ctx, fx.partner.ID, []string{runs[0].Key, runs[2].Key, "course-v1:x+y+z"})
	if err != nil || len(byKeys) != 2 {
		t.Errorf("ListCourseRunsByKeys() = %d, %v", len(byKeys), err)
	}

	yes := true
	tests := []struct {
		name   string
		filter CourseRunFilter
		want   int
	}{
		{"all", CourseRunFilter{}, 4},
		{"archived", CourseRunFilter{Availability: []string{models.AvailabilityArchived}}, 1},
		{"current or soon", CourseRunFilter{Availability: []string{models.AvailabilityCurrent, models.AvailabilityStartingSoon}}, 2},
		{"published", CourseRunFilter{Published: &yes}, 1},
		{"featured", CourseRunFilter{Featured: &yes}, 1},
		{"key", CourseRunFilter{Key: runs[3].Key}, 1},
		{"exclude", CourseRunFilter{ExcludeKeys: []string{runs[0].Key, runs[1].Key}}, 2},
		{"q", CourseRunFilter{Q: "learn ds1"}, 4},
		{"number", CourseRunFilter{Number: "nope"}, 0},
		{"limit", CourseRunFilter{Limit: 3}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Now = now
			got, total, err := db.SearchCourseRuns(ctx, fx.partner.ID, tt.filter)
			if err != nil {
				t.Fatalf("SearchCourseRuns() error = %v", err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
			if tt.filter.Limit > 0 && len(got) != tt.filter.Limit {
				t.Errorf("page size = %d, want %d", len(got), tt.filter.Limit)
			}
		})
	}
}

func TestPrograms(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedFixture(t, db)

	pt := &models.ProgramType{Name: "XSeries", Slug: "xseries"}
	if err := db.UpsertProgramType(ctx, pt); err != nil {
		t.Fatal(err)
	}
	course, runs := createCourseWithRuns(t, db, fx, "P1",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))

	program := &models.Program{
		PartnerID:              fx.partner.ID,
		Title:                  "Data Science",
		TypeID:                 &pt.ID,
		Status:                 models.ProgramActive,
		MarketingSlug:          "data-science",
		Courses:                []models.Course{*course},
		ExcludedCourseRuns:     []models.CourseRun{runs[1]},
		AuthoringOrganizations: []models.Organization{*fx.org},
	}
	if err := db.CreateProgram(ctx, program); err != nil {
		t.Fatalf("CreateProgram() error = %v", err)
	}
	hidden := &models.Program{PartnerID: fx.partner.ID, Title: "Hidden", Status: models.ProgramActive, MarketingSlug: "h", Hidden: true}
	if err := db.CreateProgram(ctx, hidden); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetProgram(ctx, fx.partner.ID, program.UUID)
	if err != nil {
		t.Fatalf("GetProgram() error = %v", err)
	}
	if got.Type == nil || got.Type.Slug != "xseries" || len(got.Courses) != 1 || len(got.ExcludedCourseRuns) != 1 {
		t.Errorf("GetProgram() = %+v", got)
	}
	if !got.IsExcluded(runs[1].Key) || got.IsExcluded(runs[0].Key) {
		t.Error("IsExcluded() mismatch")
	}
	if _, err := db.GetProgram(ctx, fx.partner.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProgram(unknown) error = %v", err)
	}

	no := false
	tests := []struct {
		name   string
		filter ProgramFilter
		want   int
	}{
		{"all", ProgramFilter{}, 2},
		{"marketable", ProgramFilter{Marketable: true}, 1},
		{"q", ProgramFilter{Q: "data"}, 1},
		{"org", ProgramFilter{Org: "edX"}, 1},
		{"type", ProgramFilter{Type: "xseries"}, 1},
		{"types", ProgramFilter{Types: []string{"masters", "xseries"}}, 1},
		{"uuids", ProgramFilter{UUIDs: []uuid.UUID{hidden.UUID}}, 1},
		{"status", ProgramFilter{Status: []string{"retired"}}, 0},
		{"hidden false", ProgramFilter{Hidden: &no}, 1},
		{"slug", ProgramFilter{MarketingSlug: "h"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := db.ListPrograms(ctx, fx.partner.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListPrograms() error = %v", err)
			}
			if total != tt.want || len(list) != tt.want {
				t.Errorf("ListPrograms() = %d (total %d), want %d", len(list), total, tt.want)
			}
			ids, err := db.ListProgramUUIDs(ctx, fx.partner.ID, tt.filter)
			if err != nil || len(ids) != tt.want {
				t.Errorf("ListProgramUUIDs() = %d, %v", len(ids), err)
			}
		})
	}

	list, _, err := db.ListPrograms(ctx, fx.partner.ID, ProgramFilter{})
	if err != nil || list[0].ID >= list[1].ID {
		t.Errorf("programs not ordered by id")
	}

	got.Title = "Data Science II"
	got.ExcludedCourseRuns = nil
	got.Courses = nil
	if err := db.UpdateProgram(ctx, got); err != nil {
		t.Fatalf("UpdateProgram() error = %v", err)
	}
	if err := db.SetProgramCardImage(ctx, got.ID, "http://media/card.png"); err != nil {
		t.Fatal(err)
	}
	after, err := db.GetProgram(ctx, fx.partner.ID, program.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Title != "Data Science II" || len(after.Courses) != 0 || len(after.ExcludedCourseRuns) != 0 ||
		after.CardImageURL != "http://media/card.png" || len(after.AuthoringOrganizations) != 1 {
		t.Errorf("after update = %+v", after)
	}
}
