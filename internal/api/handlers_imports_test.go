// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/catalogus/internal/auth"
	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/csvloader"
	"github.com/tomtom215/catalogus/internal/models"
)

type fakeImporter struct {
	mu   sync.Mutex
	reqs []csvloader.ImportRequest
	err  error
}

func (f *fakeImporter) Import(_ context.Context, req csvloader.ImportRequest) (*csvloader.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &csvloader.Stats{Path: req.Partner.ShortCode + ":" + req.Name, TotalRows: 1, Processed: 1, Succeeded: 1, DryRun: req.DryRun}, nil
}

func TestImportCourses(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		token      bool
		noImporter bool
		importErr  error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "imports for named partner",
			path:       "/api/v1/csv_imports/?partner_code=edly&name=spring.csv&dry_run=true",
			body:       "Organization\nedX\n",
			token:      true,
			wantStatus: http.StatusOK,
			wantBody:   `"path":"edly:spring.csv"`,
		},
		{
			name:       "requires staff",
			path:       "/api/v1/csv_imports/?partner_code=edly",
			body:       "Organization\nedX\n",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing partner code",
			path:       "/api/v1/csv_imports/",
			body:       "Organization\nedX\n",
			token:      true,
			wantStatus: http.StatusBadRequest,
			wantBody:   "partner_code is required",
		},
		{
			name:       "unknown partner",
			path:       "/api/v1/csv_imports/?partner_code=nope",
			body:       "Organization\nedX\n",
			token:      true,
			wantStatus: http.StatusNotFound,
			wantBody:   "Partner not found with short code [nope]",
		},
		{
			name:       "empty upload",
			path:       "/api/v1/csv_imports/?partner_code=edly",
			token:      true,
			wantStatus: http.StatusBadRequest,
			wantBody:   "CSV file is empty",
		},
		{
			name:       "import already running",
			path:       "/api/v1/csv_imports/?partner_code=edly",
			body:       "Organization\nedX\n",
			token:      true,
			importErr:  csvloader.ErrImportRunning,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "loader failure",
			path:       "/api/v1/csv_imports/?partner_code=edly",
			body:       "Organization\nedX\n",
			token:      true,
			importErr:  errors.New("read csv header: bad quote"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "bad quote",
		},
		{
			name:       "importer not running",
			path:       "/api/v1/csv_imports/?partner_code=edly",
			body:       "Organization\nedX\n",
			token:      true,
			noImporter: true,
			wantStatus: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			imp := &fakeImporter{err: tt.importErr}
			if !tt.noImporter {
				env.handler.importer = imp
			}
			token := env.token(t, "user")
			if tt.token {
				token = env.token(t, "staff", auth.RoleStaff)
			}

			rec := env.do(t, http.MethodPost, tt.path, token, tt.body, "Content-Type", "text/csv")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %s missing %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusOK {
				if len(imp.reqs) != 1 || !imp.reqs[0].DryRun || string(imp.reqs[0].Data) != tt.body {
					t.Errorf("import requests = %+v", imp.reqs)
				}
			}
		})
	}
}

func TestImportCoursesEvictsPartnerPrograms(t *testing.T) {
	env := setupTestEnv(t)
	env.handler.importer = &fakeImporter{}
	course := env.createCourse(t, "IMPORT1")
	program := env.createProgram(t, "Imported", course.CourseRuns[0].Key)
	token := env.token(t, "staff", auth.RoleStaff)

	path := "/api/v1/programs/" + program.UUID.String() + "/"
	env.do(t, http.MethodGet, path, token, nil)
	if rec := env.do(t, http.MethodGet, path, token, nil); rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second read X-Cache = %q, want HIT", rec.Header().Get("X-Cache"))
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/csv_imports/?partner_code=edly", token, "Organization\nedX\n"); rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, path, token, nil); rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("read after import X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}
}

func TestSetupServiceEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	token := env.token(t, "staff", auth.RoleStaff)

	rec := env.do(t, http.MethodPost, "/api/v1/setup_service/", token, models.SetupServiceRequest{
		SiteDomain:  "discovery.acme.io",
		PartnerCode: "acme",
		PartnerName: "Acme",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	partner := decodeBody[models.Partner](t, rec)
	if partner.ShortCode != "acme" || partner.Name != "Acme" || partner.SiteID == nil {
		t.Errorf("partner = %+v", partner)
	}

	// The new partner's site now resolves to it.
	got, err := env.svc.ResolvePartner(context.Background(), "discovery.acme.io")
	if err != nil || got.ShortCode != "acme" {
		t.Errorf("ResolvePartner() = %v, %v", got, err)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/setup_service/", env.token(t, "user"), nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-staff status = %d, want 403", rec.Code)
	}
	if _, err := env.svc.PartnerByShortCode(context.Background(), "acme"); errors.Is(err, catalog.ErrPartnerNotFound) {
		t.Error("acme partner missing after setup")
	}
}

func TestAPIResponsesAreCompressed(t *testing.T) {
	env := setupTestEnv(t)
	token := env.token(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/v1/courses/", token, nil, "Accept-Encoding", "gzip")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}

	admin := env.token(t, "root", auth.RoleAdmin)
	rec = env.do(t, http.MethodGet, "/api/v1/performance", admin, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"route":"GET /api/v1/courses`) {
		t.Errorf("performance = %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/performance", token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin performance status = %d, want 403", rec.Code)
	}
}
