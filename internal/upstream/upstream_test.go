// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/models"
)

// noSleep records requested delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delays = append(n.delays, d)
	return nil
}

func newTestClient(t *testing.T, name, baseURL string, opts ...Option) (*Client, *noSleep) {
	t.Helper()
	c := NewClient(name, baseURL, append([]Option{WithRetry(3, 10*time.Millisecond)}, opts...)...)
	ns := &noSleep{}
	c.sleep = ns.sleep
	return c, ns
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id": "ok"}`))
	}))
	defer srv.Close()

	c, ns := newTestClient(t, "test-retry", srv.URL)
	var out struct {
		ID string `json:"id"`
	}
	if err := c.Get(context.Background(), "/x", nil, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.ID != "ok" || calls.Load() != 3 {
		t.Errorf("id=%q calls=%d", out.ID, calls.Load())
	}
	if len(ns.delays) != 2 || ns.delays[1] != 2*ns.delays[0] {
		t.Errorf("delays = %v, want exponential backoff", ns.delays)
	}
}

func TestClient_FatalClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail": "Not found."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, "test-fatal", srv.URL)
	err := c.Get(context.Background(), "/missing", nil, nil)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("error = %v, want 404 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_TooManyRequestsHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, ns := newTestClient(t, "test-429", srv.URL)
	if err := c.Get(context.Background(), "/", nil, nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(ns.delays) != 1 || ns.delays[0] != 7*time.Second {
		t.Errorf("delays = %v, want [7s]", ns.delays)
	}
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, ns := newTestClient(t, "test-giveup", srv.URL)
	err := c.Get(context.Background(), "/", nil, nil)
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("error = %v", err)
	}
	if len(ns.delays) != 3 {
		t.Errorf("retries = %d, want 3", len(ns.delays))
	}
}

func TestClient_Authorizers(t *testing.T) {
	var got []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	basic, _ := newTestClient(t, "test-basic", srv.URL, WithAuthorizer(BasicAuth{Username: "admin", Password: "secret"}))
	bearer, _ := newTestClient(t, "test-jwt", srv.URL, WithAuthorizer(TokenSource(func(context.Context) (string, error) {
		return "abc", nil
	})))
	failing, _ := newTestClient(t, "test-jwt-fail", srv.URL, WithAuthorizer(TokenSource(func(context.Context) (string, error) {
		return "", errors.New("no signing key")
	})))

	if err := basic.Get(context.Background(), "/", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := bearer.Get(context.Background(), "/", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := failing.Get(context.Background(), "/", nil, nil); err == nil {
		t.Error("expected token error")
	}

	if len(got) != 2 || !strings.HasPrefix(got[0], "Basic ") || got[1] != "JWT abc" {
		t.Errorf("authorization headers = %v", got)
	}
}

func TestClient_ResolvesPaths(t *testing.T) {
	c := NewClient("test-resolve", "http://lms.example.com/api/courses/v1/")
	tests := []struct {
		path string
		want string
	}{
		{"courses/", "http://lms.example.com/api/courses/v1/courses/"},
		{"/courses/", "http://lms.example.com/api/courses/v1/courses/"},
		{"https://other.example.com/x", "https://other.example.com/x"},
	}
	for _, tt := range tests {
		got, err := c.resolve(tt.path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	empty := NewClient("test-empty", "")
	if _, err := empty.resolve("courses/", nil); err == nil {
		t.Error("expected an error without a base URL")
	}
}

func TestCatalogAPI_UpdateCourseRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/api/v1/course_runs/course-v1:edX+DS101+2026_T1/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Host != "discovery.acme.io" {
			t.Errorf("host = %s, want the partner's site", r.Host)
		}
		if r.URL.Query().Get("exclude_utm") != "1" {
			t.Errorf("missing exclude_utm")
		}
		var body models.CourseRunUpdate
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Draft == nil || *body.Draft {
			t.Errorf("draft = %v, want false", body.Draft)
		}
		_, _ = w.Write([]byte(`{"key": "course-v1:edX+DS101+2026_T1", "status": "published"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, "test-catalog", srv.URL, WithHost("discovery.acme.io"))
	draft := false
	run, err := NewCatalogAPI(c).UpdateCourseRun(context.Background(), "course-v1:edX+DS101+2026_T1", &models.CourseRunUpdate{Draft: &draft})
	if err != nil {
		t.Fatalf("UpdateCourseRun: %v", err)
	}
	if run.Status != models.CourseRunPublished {
		t.Errorf("status = %s", run.Status)
	}
}

func TestStudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/course_runs/" && r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"id": "course-v1:edX+DS101+1T2026"}`))
		case strings.HasSuffix(r.URL.Path, "/images/"):
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
			}
			f, _, err := r.FormFile("card_image")
			if err != nil {
				t.Errorf("card_image missing: %v", err)
				return
			}
			data, _ := io.ReadAll(f)
			if string(data) != "PNGDATA" {
				t.Errorf("image = %q", data)
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(t, "test-studio", srv.URL)
	studio := NewStudio(c)
	key, err := studio.CreateCourseRun(context.Background(), &StudioCourseRun{Org: "edX", Number: "DS101", Run: "1T2026"})
	if err != nil || key != "course-v1:edX+DS101+1T2026" {
		t.Fatalf("CreateCourseRun = %q, %v", key, err)
	}
	if err := studio.UploadCourseRunImage(context.Background(), key, "card.png", []byte("PNGDATA")); err != nil {
		t.Fatalf("UploadCourseRunImage: %v", err)
	}
}

func TestCoursesAPI_GetCourseWrapsSinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") != "discovery_worker" {
			t.Errorf("username = %q", r.URL.Query().Get("username"))
		}
		_, _ = w.Write([]byte(`{"id": "course-v1:edX+DS101+2026_T1", "name": "Data Science", "pacing": "self", "start": "2026-01-05T00:00:00Z", "end": null}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, "test-lms", srv.URL)
	page, err := NewCoursesAPI(c).GetCourse(context.Background(), "course-v1:edX+DS101+2026_T1", "discovery_worker")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if page.Pagination.NumPages != 1 || len(page.Results) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if page.Results[0].Start == nil || page.Results[0].End != nil {
		t.Errorf("dates = %v %v", page.Results[0].Start, page.Results[0].End)
	}
}

func TestEcommerceProductAttribute(t *testing.T) {
	p := EcommerceProduct{AttributeValues: []EcommerceAttribute{
		{Name: "certificate_type", Value: "verified"},
		{Name: "id_verification_required", Value: true},
	}}
	if v, ok := p.Attribute("certificate_type"); !ok || v != "verified" {
		t.Errorf("certificate_type = %q, %v", v, ok)
	}
	if _, ok := p.Attribute("id_verification_required"); !ok {
		t.Error("expected non-string attribute to be present")
	}
	if _, ok := p.Attribute("credit_provider"); ok {
		t.Error("unexpected credit_provider")
	}

	code := EcommerceProduct{AttributeValues: []EcommerceAttribute{{Code: "seat_type", Value: "verified"}}}
	if v, ok := code.Attribute("seat_type"); !ok || v != "verified" {
		t.Errorf("coded seat_type = %q, %v", v, ok)
	}
}

func TestEcommerce_ListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/products/" || q.Get("product_class") != ProductClassEnrollmentCode ||
			q.Get("page") != "2" || q.Get("page_size") != "50" || q.Get("course_id") != "course-v1:edX+DS101+2026_T1" {
			t.Errorf("request = %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"count": 51, "next": null, "results": [{"title": "Bulk seats",
			"attribute_values": [{"code": "course_key", "value": "course-v1:edX+DS101+2026_T1"}],
			"stockrecords": [{"price_currency": "USD", "price_excl_tax": "10.00", "partner_sku": "ABC"}]}]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, "test-ecommerce", srv.URL)
	page, err := NewEcommerce(c).ListProducts(context.Background(), ProductClassEnrollmentCode, 2, 50, "course-v1:edX+DS101+2026_T1")
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if page.Count != 51 || len(page.Results) != 1 || page.Results[0].StockRecords[0].PartnerSKU != "ABC" {
		t.Errorf("page = %+v", page)
	}
	if key, _ := page.Results[0].Attribute("course_key"); key != "course-v1:edX+DS101+2026_T1" {
		t.Errorf("course_key = %q", key)
	}
}
