// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package csvloader

import (
	"context"
	"testing"
	"time"
)

func TestProgressTrackers(t *testing.T) {
	badgerProgress, db, err := OpenBadgerProgress(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadgerProgress() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	trackers := map[string]ProgressTracker{
		"badger":    badgerProgress,
		"in-memory": NewInMemoryProgress(),
	}
	for name, tracker := range trackers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := tracker.Load(ctx, "courses.csv")
			if err != nil || got != nil {
				t.Fatalf("Load() on empty store = %+v, %v", got, err)
			}

			saved := &Stats{Path: "courses.csv", Checksum: "abc", Processed: 3, LastRow: 3, StartTime: time.Now().UTC()}
			if err := tracker.Save(ctx, saved); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err = tracker.Load(ctx, "courses.csv")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got == nil || got.Checksum != "abc" || got.LastRow != 3 {
				t.Errorf("Load() = %+v", got)
			}

			if err := tracker.Clear(ctx, "courses.csv"); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			if got, _ := tracker.Load(ctx, "courses.csv"); got != nil {
				t.Errorf("Load() after Clear = %+v", got)
			}
		})
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		date, clock string
		want        string
		wantErr     bool
	}{
		{"01/25/2020", "13:30", "2020-01-25T13:30:00Z", false},
		{"01/25/2020", "", "2020-01-25T00:00:00Z", false},
		{"", "13:30", "", false},
		{"2020-01-25", "", "", true},
	}
	for _, tt := range tests {
		got, err := parseDateTime(tt.date, tt.clock)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDateTime(%q, %q) error = %v", tt.date, tt.clock, err)
			continue
		}
		if got == nil {
			if tt.want != "" {
				t.Errorf("parseDateTime(%q, %q) = nil, want %s", tt.date, tt.clock, tt.want)
			}
			continue
		}
		if FormatDateTime(*got) != tt.want {
			t.Errorf("parseDateTime(%q, %q) = %s, want %s", tt.date, tt.clock, FormatDateTime(*got), tt.want)
		}
	}
}

func TestPacingType(t *testing.T) {
	for label, want := range map[string]string{
		"Instructor-Paced": "instructor_paced",
		"self-paced":       "self_paced",
		"":                 "",
		"weekly":           "",
	} {
		if got := pacingType(label); got != want {
			t.Errorf("pacingType(%q) = %q, want %q", label, got, want)
		}
	}
}
