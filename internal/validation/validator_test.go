// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

type programRequest struct {
	Title     string   `json:"title" validate:"required,max=255"`
	Status    string   `json:"status" validate:"omitempty,oneof=unpublished active retired deleted"`
	RunKeys   []string `json:"course_runs" validate:"dive,coursekey"`
	Image     string   `json:"image" validate:"omitempty,imagedatauri"`
	Org       string   `json:"org" validate:"omitempty,orgnumber"`
	MinEffort int      `json:"min_hours_effort_per_week" validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     programRequest
		wantField string
		wantMsg   string
	}{
		{
			name:  "valid",
			input: programRequest{Title: "Data Science", RunKeys: []string{"course-v1:edX+DS101+2024_T1"}},
		},
		{
			name:      "missing title uses json name",
			input:     programRequest{},
			wantField: "title",
			wantMsg:   "title is required",
		},
		{
			name:      "bad status",
			input:     programRequest{Title: "x", Status: "draft"},
			wantField: "status",
			wantMsg:   "status must be one of: unpublished active retired deleted",
		},
		{
			name:      "bad course key",
			input:     programRequest{Title: "x", RunKeys: []string{"not a key"}},
			wantField: "course_runs[0]",
			wantMsg:   "course_runs[0] is not a valid course run key",
		},
		{
			name:      "bad image",
			input:     programRequest{Title: "x", Image: "http://example.com/a.png"},
			wantField: "image",
		},
		{
			name:      "bad org",
			input:     programRequest{Title: "x", Org: "ed+X"},
			wantField: "org",
		},
		{
			name:      "negative effort",
			input:     programRequest{Title: "x", MinEffort: -1},
			wantField: "min_hours_effort_per_week",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if got := err.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("Field() = %q, want %q", got, tt.wantField)
			}
			if tt.wantMsg != "" && err.Errors()[0].Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Errors()[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&programRequest{Status: "bogus"})
	if err == nil {
		t.Fatal("expected errors")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "title is required") || !strings.Contains(apiErr.Message, "status must be one of") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-error details should list fields")
	}
}

func TestIsCourseKey(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"course-v1:edX+DemoX+Demo_Course": true,
		"edX/DemoX/Demo_Course":           true,
		"course-v1:edX+DemoX":             false,
		"edX+DemoX":                       false,
		"":                                false,
		"course-v1:ed X+DemoX+1":          false,
	}
	for key, want := range tests {
		if got := IsCourseKey(key); got != want {
			t.Errorf("IsCourseKey(%q) = %v, want %v", key, got, want)
		}
	}
}
