// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/catalogus/internal/api"
	"github.com/tomtom215/catalogus/internal/app"
	"github.com/tomtom215/catalogus/internal/authz"
	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/csvloader"
	"github.com/tomtom215/catalogus/internal/models"
)

type fakeAliases struct {
	index string
	err   error
}

func (f *fakeAliases) SetAlias(_ context.Context, index string) error {
	f.index = index
	return f.err
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []models.DataLoaderRequest
}

func (q *fakeQueue) Enqueue(_ context.Context, req models.DataLoaderRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, req)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Path:        filepath.Join(t.TempDir(), "catalogus.duckdb"),
			MaxMemory:   "512MB",
			SkipIndexes: true,
		},
		Security: config.SecurityConfig{
			AuthMode:          "none",
			ServiceUsername:   "discovery_worker",
			RateLimitDisabled: true,
		},
		Catalog:   config.CatalogConfig{DefaultPartner: "edly", CacheTTL: time.Minute},
		Loader:    config.LoaderConfig{RetryAttempts: 1, Timeout: time.Second, PageSize: 10},
		Search:    config.SearchConfig{Enabled: false, Aliases: []string{"catalog"}},
		Messaging: config.MessagingConfig{Topic: "dataloader.requests"},
	}
}

// startServer opens cfg's database file the way the server does and serves
// the API on a test listener that commands then call.
func startServer(t *testing.T, cfg *config.Config) *fakeQueue {
	t.Helper()
	comps, err := app.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("app.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = comps.Close() })

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	queue := &fakeQueue{}
	handler := api.NewHandler(comps.Catalog, queue, cfg, api.WithImporter(comps.Importer(csvloader.NewInMemoryProgress())))
	t.Cleanup(handler.Close)
	router := api.NewRouter(handler, comps.Authn, authz.NewMiddleware(enforcer), nil,
		api.NewChiMiddlewareFromConfig(&cfg.Security))

	ts := httptest.NewServer(router.SetupChi())
	t.Cleanup(ts.Close)
	cfg.Loader.APIBaseURL = ts.URL
	return queue
}

// execute runs one command line against cfg and returns its output.
func execute(t *testing.T, cfg *config.Config, aliases *fakeAliases, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := newCLI(&out)
	c.loadConfig = func() (*config.Config, error) { return cfg, nil }
	c.newAliases = func(*config.SearchConfig) (aliasSetter, error) {
		if aliases == nil {
			return nil, errors.New("no cluster")
		}
		return aliases, nil
	}
	root := c.rootCmd()
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCatalogFile(t *testing.T, name string, mappings []byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(`{"` + name + `": {"mappings": `)
	buf.Write(mappings)
	buf.WriteString(`}}`)
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSetAlias(t *testing.T) {
	required, err := os.ReadFile("../../internal/search/required_mappings.json")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		file      string
		mappings  []byte
		aliasErr  error
		wantErr   string
		wantOut   string
		wantIndex string
	}{
		{
			name:      "updates alias",
			mappings:  required,
			wantOut:   "Alias are updated to given index: True",
			wantIndex: "catalog_20261015",
		},
		{
			name:      "file name kept verbatim",
			file:      "catalog_20261015.json",
			mappings:  required,
			wantOut:   "Alias are updated to given index: True",
			wantIndex: "catalog_20261015.json",
		},
		{
			name:     "missing mappings",
			mappings: []byte(`{"modelresult": {"properties": {}}}`),
			wantErr:  errMappingsMissing.Error(),
			wantOut:  "All required mappings present: False",
		},
		{
			name:      "alias failure",
			mappings:  required,
			aliasErr:  errors.New("index_not_found_exception"),
			wantErr:   "ERROR exception : index_not_found_exception",
			wantOut:   "Alias are updated to given index: False",
			wantIndex: "catalog_20261015",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := tt.file
			if file == "" {
				file = "catalog_20261015"
			}
			path := writeCatalogFile(t, file, tt.mappings)
			aliases := &fakeAliases{err: tt.aliasErr}
			out, err := execute(t, testConfig(t), aliases, "set-alias", path)

			if tt.wantErr == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output %q missing %q", out, tt.wantOut)
			}
			if aliases.index != tt.wantIndex {
				t.Errorf("alias index = %q, want %q", aliases.index, tt.wantIndex)
			}
		})
	}
}

func TestSetAliasRequiresPath(t *testing.T) {
	if _, err := execute(t, testConfig(t), &fakeAliases{}, "set-alias"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestLoadCoursesUnknownPartner(t *testing.T) {
	cfg := testConfig(t)
	startServer(t, cfg)
	path := filepath.Join(t.TempDir(), "courses.csv")
	if err := os.WriteFile(path, []byte(csvloader.ColOrganization+"\nedx\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, cfg, nil, "load-courses-from-csv", "--partner_code", "nope", "--csv_path", path)
	if err == nil || err.Error() != "Partner not found with short code [nope]" {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadCoursesRequiresFlags(t *testing.T) {
	_, err := execute(t, testConfig(t), nil, "load-courses-from-csv", "--partner_code", "edly")
	if err == nil || !strings.Contains(err.Error(), "csv_path") {
		t.Fatalf("error = %v, want missing csv_path", err)
	}
}

// The server holds the database file open for the whole test; commands
// only ever reach it through the API.
func TestSetupServiceThenDryRunImport(t *testing.T) {
	cfg := testConfig(t)
	startServer(t, cfg)

	out, err := execute(t, cfg, nil, "setup-service")
	if err != nil {
		t.Fatalf("setup-service: %v", err)
	}
	if !strings.Contains(out, "Partner edly (edx.devstack.lms:18381) ready, LMS at http://edx.devstack.lms:18000") {
		t.Errorf("setup-service output = %q", out)
	}

	// Running it again is a no-op rather than a duplicate partner.
	if _, err := execute(t, cfg, nil, "setup-service"); err != nil {
		t.Fatalf("second setup-service: %v", err)
	}

	path := filepath.Join(t.TempDir(), "courses.csv")
	csv := csvloader.ColOrganization + "," + csvloader.ColTitle + "," + csvloader.ColNumber + "\n" +
		"unknown_org,CSV Course,csv_123\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, cfg, nil, "import-course-metadata", "--partner_code", "edly", "--csv_path", path, "--dry-run")
	if err != nil {
		t.Fatalf("import-course-metadata: %v", err)
	}
	for _, want := range []string{"SKIPPED", "0 of 1 rows loaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLoadCoursesMissingFile(t *testing.T) {
	cfg := testConfig(t)
	_, err := execute(t, cfg, nil, "load-courses-from-csv", "--partner_code", "edly",
		"--csv_path", filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil || !strings.HasPrefix(err.Error(), "Command failed due to exception in loader. ") {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadCoursesEmptyFileReportsServerMessage(t *testing.T) {
	cfg := testConfig(t)
	startServer(t, cfg)
	if _, err := execute(t, cfg, nil, "setup-service"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, cfg, nil, "load-courses-from-csv", "--partner_code", "edly", "--csv_path", path)
	if err == nil || err.Error() != "Command failed due to exception in loader. CSV file is empty" {
		t.Fatalf("error = %v", err)
	}
}

func TestRunDataLoaderRejectsInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "unsupported service",
			args:    []string{"--partner_code", "edly", "--service", "moodle", "--course_id", "course-v1:edX+DemoX+2026"},
			wantErr: "Data Loader for service: moodle is not handled by API",
		},
		{
			name:    "bad course id",
			args:    []string{"--partner_code", "edly", "--service", "lms", "--course_id", "not a key"},
			wantErr: "Course id is not valid.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, testConfig(t), nil, append([]string{"run-dataloader"}, tt.args...)...)
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunDataLoaderQueuesOnServer(t *testing.T) {
	cfg := testConfig(t)
	queue := startServer(t, cfg)

	_, err := execute(t, cfg, nil, "run-dataloader", "--partner_code", "nope", "--service", "lms",
		"--course_id", "course-v1:edX+DemoX+2026")
	if err == nil || err.Error() != "Partner does not exist" {
		t.Fatalf("unknown partner error = %v", err)
	}

	if _, err := execute(t, cfg, nil, "setup-service"); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, cfg, nil, "run-dataloader", "--partner_code", "edly", "--service", "lms",
		"--course_id", "course-v1:edX+DemoX+2026")
	if err != nil {
		t.Fatalf("run-dataloader: %v", err)
	}
	if !strings.Contains(out, "Course Sync'd with lms") {
		t.Errorf("output = %q", out)
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.jobs) != 1 || queue.jobs[0].Partner != "edly" || queue.jobs[0].CourseID != "course-v1:edX+DemoX+2026" {
		t.Errorf("queued jobs = %+v", queue.jobs)
	}
}
