// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"testing"
	"time"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestCourseRunAvailability(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  string
	}{
		{"ended", ptrTime(now.AddDate(0, -2, 0)), ptrTime(now.AddDate(0, 0, -1)), AvailabilityArchived},
		{"running", ptrTime(now.AddDate(0, 0, -1)), ptrTime(now.AddDate(0, 1, 0)), AvailabilityCurrent},
		{"starts now", ptrTime(now), nil, AvailabilityCurrent},
		{"in 30 days", ptrTime(now.AddDate(0, 0, 30)), nil, AvailabilityStartingSoon},
		{"in 60 days", ptrTime(now.Add(60 * 24 * time.Hour)), nil, AvailabilityStartingSoon},
		{"in 90 days", ptrTime(now.AddDate(0, 0, 90)), nil, AvailabilityUpcoming},
		{"no dates", nil, nil, AvailabilityUpcoming},
	}
	for _, tt := range tests {
		run := CourseRun{Start: tt.start, End: tt.end}
		if got := run.Availability(now); got != tt.want {
			t.Errorf("%s: Availability() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestProgramMarketable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		program Program
		want    bool
	}{
		{Program{MarketingSlug: "ds", Status: ProgramActive}, true},
		{Program{MarketingSlug: "", Status: ProgramActive}, false},
		{Program{MarketingSlug: "ds", Status: ProgramUnpublished}, false},
		{Program{MarketingSlug: "ds", Status: ProgramActive, Hidden: true}, false},
	}
	for i, tt := range tests {
		if got := tt.program.Marketable(); got != tt.want {
			t.Errorf("case %d: Marketable() = %v, want %v", i, got, tt.want)
		}
	}
}

func TestParseCourseRunKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key    string
		want   ParsedCourseKey
		wantOK bool
	}{
		{"course-v1:edX+DemoX+Demo_Course", ParsedCourseKey{"edX", "DemoX", "Demo_Course"}, true},
		{"edX/DemoX/2014", ParsedCourseKey{"edX", "DemoX", "2014"}, true},
		{"course-v1:edX+DemoX", ParsedCourseKey{}, false},
		{"course-v1:+DemoX+1", ParsedCourseKey{}, false},
		{"garbage", ParsedCourseKey{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseCourseRunKey(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseCourseRunKey(%q) = %+v, %v", tt.key, got, ok)
		}
	}
	parsed, _ := ParseCourseRunKey("course-v1:edX+DemoX+1")
	if parsed.CourseKey() != "edX+DemoX" {
		t.Errorf("CourseKey() = %q", parsed.CourseKey())
	}
}

func TestParseProgramTypeKind(t *testing.T) {
	t.Parallel()

	if k, ok := ParseProgramTypeKind("Professional Certificate"); !ok || k != ProgramTypeProfessionalCertificate {
		t.Errorf("ParseProgramTypeKind() = %q, %v", k, ok)
	}
	if _, ok := ParseProgramTypeKind("bootcamp"); ok {
		t.Error("bootcamp is not a program type kind")
	}
	if ProgramTypeProfessionalProgramWL.Slug() != "professional-program-wl" {
		t.Errorf("Slug() = %q", ProgramTypeProfessionalProgramWL.Slug())
	}
}

func TestCourseRunMarketable(t *testing.T) {
	t.Parallel()

	run := CourseRun{Status: CourseRunPublished, Type: &CourseRunType{IsMarketable: false}}
	if run.Marketable() {
		t.Error("non-marketable type should not be marketable")
	}
	run.Type.IsMarketable = true
	if !run.Marketable() {
		t.Error("published marketable run should be marketable")
	}
	run.Draft = true
	if run.Marketable() {
		t.Error("draft run should not be marketable")
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Ada Lovelace":      "ada-lovelace",
		"  Data & Science ": "data-science",
		"C++ 101!":          "c-101",
		"":                  "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCourseRunUpdateNullProgramType(t *testing.T) {
	t.Parallel()
	name := "Data Science"

	data, err := CourseRunUpdate{ExpectedProgramName: &name, ClearExpectedProgramType: true}.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if got := string(data); got != `{"expected_program_type":null,"expected_program_name":"Data Science"}` {
		t.Errorf("MarshalJSON() = %s", got)
	}
	if data, _ := (CourseRunUpdate{ClearExpectedProgramType: true}).MarshalJSON(); string(data) != `{"expected_program_type":null}` {
		t.Errorf("MarshalJSON(empty) = %s", data)
	}

	tests := []struct {
		body      string
		wantClear bool
		wantType  string
	}{
		{`{"expected_program_type": null}`, true, ""},
		{`{"expected_program_type": "xseries"}`, false, "xseries"},
		{`{"title_override": "Run"}`, false, ""},
	}
	for _, tt := range tests {
		var u CourseRunUpdate
		if err := u.UnmarshalJSON([]byte(tt.body)); err != nil {
			t.Fatalf("UnmarshalJSON(%s) error = %v", tt.body, err)
		}
		got := ""
		if u.ExpectedProgramType != nil {
			got = *u.ExpectedProgramType
		}
		if u.ClearExpectedProgramType != tt.wantClear || got != tt.wantType {
			t.Errorf("UnmarshalJSON(%s) clear = %v type = %q", tt.body, u.ClearExpectedProgramType, got)
		}
	}
}
