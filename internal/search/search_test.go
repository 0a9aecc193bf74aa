// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package search

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// mockIndexer records calls and serves canned responses.
type mockIndexer struct {
	mu          sync.Mutex
	aliasCalls  [][]AliasAction
	aliasErr    error
	created     map[string][]byte
	deleted     []string
	indices     []IndexInfo
	aliased     map[string][]string
	bulkIndex   string
	bulkDocs    map[string]interface{}
	searchIndex string
	searchQuery map[string]interface{}
	searchResp  *SearchResponse
	pingErr     error
}

func (m *mockIndexer) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockIndexer) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliasCalls = append(m.aliasCalls, actions)
	return m.aliasErr
}

func (m *mockIndexer) CreateIndex(ctx context.Context, index string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.created == nil {
		m.created = map[string][]byte{}
	}
	m.created[index] = body
	return nil
}

func (m *mockIndexer) DeleteIndex(ctx context.Context, index string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, index)
	return nil
}

func (m *mockIndexer) Indices(ctx context.Context, pattern string) ([]IndexInfo, error) {
	return m.indices, nil
}

func (m *mockIndexer) AliasedIndices(ctx context.Context) (map[string][]string, error) {
	return m.aliased, nil
}

func (m *mockIndexer) Bulk(ctx context.Context, index string, docs map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkIndex = index
	m.bulkDocs = docs
	return nil
}

func (m *mockIndexer) Search(ctx context.Context, index string, query map[string]interface{}, limit, offset int) (*SearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchIndex = index
	m.searchQuery = query
	if m.searchResp == nil {
		return &SearchResponse{}, nil
	}
	return m.searchResp, nil
}

func testSearchConfig() *config.SearchConfig {
	return &config.SearchConfig{
		Enabled:     true,
		Aliases:     []string{"catalog", "catalog_read"},
		IndexPrefix: "catalog",
		Timeout:     time.Second,
	}
}

// captureLogs swaps the global logger for one writing to the returned buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(previous) })
	return &buf
}

func lastMessage(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", lines[len(lines)-1], err)
	}
	return entry.Message
}

const catalogFixture = `{
  "catalog_20260101": {
    "mappings": {
      "modelresult": {
        "properties": {
          "title": {"type": "text", "analyzer": "snowball"},
          "weeks_to_complete": {"type": "long"},
          "start": {"type": "date"}
        }
      }
    }
  },
  "ignored": {}
}`

func requiredFixture(t *testing.T, raw string) *Mappings {
	t.Helper()
	m, err := parseMappings([]byte(raw))
	if err != nil {
		t.Fatalf("parseMappings: %v", err)
	}
	return m
}

func TestParseCatalogSchema_KeepsDocumentOrder(t *testing.T) {
	schema, err := ParseCatalogSchema(strings.NewReader(catalogFixture))
	if err != nil {
		t.Fatalf("ParseCatalogSchema: %v", err)
	}
	if schema.Index != "catalog_20260101" {
		t.Errorf("Index = %q, want catalog_20260101", schema.Index)
	}
	mt, ok := schema.Mappings.Type("modelresult")
	if !ok {
		t.Fatal("modelresult mapping missing")
	}
	var names []string
	for _, p := range mt.Properties {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "title,weeks_to_complete,start" {
		t.Errorf("property order = %s", got)
	}
}

func TestParseCatalogSchema_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty object", `{}`, ErrEmptySchema},
		{"no mappings", `{"idx": {"settings": {}}}`, ErrMissingMappings},
		{"not an object", `[1, 2]`, nil},
		{"invalid json", `{"idx": `, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogSchema(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadCatalogSchema_MissingFile(t *testing.T) {
	_, err := LoadCatalogSchema(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadCatalogSchema_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog_20260101")
	if err := os.WriteFile(path, []byte(catalogFixture), 0o600); err != nil {
		t.Fatal(err)
	}
	schema, err := LoadCatalogSchema(path)
	if err != nil {
		t.Fatalf("LoadCatalogSchema: %v", err)
	}
	if schema.Index != IndexNameFromPath(path) {
		t.Errorf("index %q does not match file name %q", schema.Index, IndexNameFromPath(path))
	}
}

func TestCheckMappings(t *testing.T) {
	schema, err := ParseCatalogSchema(strings.NewReader(catalogFixture))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		required string
		want     bool
		message  string
	}{
		{
			name:     "all present",
			required: `{"modelresult": {"properties": {"start": {"type": "date"}, "title": {"analyzer": "snowball", "type": "text"}}}}`,
			want:     true,
		},
		{
			name:     "numbers compare by value",
			required: `{"modelresult": {"properties": {"weeks_to_complete": {"type": "long"}}}}`,
			want:     true,
		},
		{
			name:     "missing mapping type",
			required: `{"person": {"properties": {}}}`,
			message:  `Mapping does not exist for key" person`,
		},
		{
			name:     "missing property",
			required: `{"modelresult": {"properties": {"org": {"type": "keyword"}}}}`,
			message:  `Property does not exist: "org"`,
		},
		{
			name:     "different value",
			required: `{"modelresult": {"properties": {"start": {"type": "keyword"}}}}`,
			message:  `Invalid value of property "start": "{"type":"date"}"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			got := CheckMappings(schema, requiredFixture(t, tt.required))
			if got != tt.want {
				t.Fatalf("CheckMappings = %v, want %v", got, tt.want)
			}
			if tt.message != "" {
				if msg := lastMessage(t, buf); msg != tt.message {
					t.Errorf("log message = %q, want %q", msg, tt.message)
				}
			}
		})
	}
}

func TestRequiredMappings(t *testing.T) {
	m := RequiredMappings()
	mt, ok := m.Type("modelresult")
	if !ok {
		t.Fatal("modelresult missing from required mappings")
	}
	if len(mt.Properties) != 83 {
		t.Errorf("required properties = %d, want 83", len(mt.Properties))
	}
}

func TestIndexNameFromPath(t *testing.T) {
	tests := map[string]string{
		"/tmp/catalog_20260101":      "catalog_20260101",
		"/tmp/catalog_20260101.json": "catalog_20260101.json",
		"catalog":                    "catalog",
		"dir/catalog.json.json":      "catalog.json.json",
	}
	for in, want := range tests {
		if got := IndexNameFromPath(in); got != want {
			t.Errorf("IndexNameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetAlias(t *testing.T) {
	mock := &mockIndexer{}
	svc := NewService(mock, testSearchConfig())

	if err := svc.SetAlias(context.Background(), "catalog_20260101"); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}
	if len(mock.aliasCalls) != 2 {
		t.Fatalf("alias calls = %d, want one per alias", len(mock.aliasCalls))
	}
	first := mock.aliasCalls[0]
	if first[0].Remove == nil || first[0].Remove.Index != "*" || first[0].Remove.Alias != "catalog" {
		t.Errorf("first action = %+v, want remove catalog from *", first[0])
	}
	if first[1].Add == nil || first[1].Add.Index != "catalog_20260101" {
		t.Errorf("second action = %+v, want add to catalog_20260101", first[1])
	}
	if mock.aliasCalls[1][1].Add.Alias != "catalog_read" {
		t.Errorf("second call alias = %s", mock.aliasCalls[1][1].Add.Alias)
	}
}

func TestSetAlias_Error(t *testing.T) {
	mock := &mockIndexer{aliasErr: errors.New("index_not_found_exception")}
	svc := NewService(mock, testSearchConfig())

	err := svc.SetAlias(context.Background(), "missing")
	if err == nil || !strings.Contains(err.Error(), "index_not_found_exception") {
		t.Fatalf("SetAlias error = %v", err)
	}
	if len(mock.aliasCalls) != 1 {
		t.Errorf("expected to stop after the first failure, got %d calls", len(mock.aliasCalls))
	}
}

func TestSetAlias_NoAliases(t *testing.T) {
	cfg := testSearchConfig()
	cfg.Aliases = nil
	svc := NewService(&mockIndexer{}, cfg)
	if err := svc.SetAlias(context.Background(), "x"); !errors.Is(err, ErrNoAliases) {
		t.Errorf("error = %v, want ErrNoAliases", err)
	}
}

func TestRemoveUnusedIndexes(t *testing.T) {
	mock := &mockIndexer{
		indices: []IndexInfo{
			{Name: "catalog_1", CreatedMS: 1},
			{Name: "catalog_2", CreatedMS: 2},
			{Name: "catalog_3", CreatedMS: 3},
			{Name: "catalog_4", CreatedMS: 4},
			{Name: "catalog_5", CreatedMS: 5},
		},
		aliased: map[string][]string{"catalog_5": {"catalog"}},
	}
	svc := NewService(mock, testSearchConfig())

	deleted, err := svc.RemoveUnusedIndexes(context.Background(), 2)
	if err != nil {
		t.Fatalf("RemoveUnusedIndexes: %v", err)
	}
	if got := strings.Join(deleted, ","); got != "catalog_2,catalog_1" {
		t.Errorf("deleted = %s, want catalog_2,catalog_1", got)
	}
}

func TestBuildCourseRunQuery(t *testing.T) {
	if q := BuildCourseRunQuery(CourseRunQuery{}); q["match_all"] == nil {
		t.Errorf("empty query = %v, want match_all", q)
	}

	published := true
	q := BuildCourseRunQuery(CourseRunQuery{
		Q:            "data",
		Key:          "course-v1:edX+DS101+2026_T1",
		ExcludeKeys:  []string{"course-v1:edX+DS101+2025_T1"},
		Published:    &published,
		Availability: []string{models.AvailabilityCurrent},
	})
	raw, err := json.Marshal(q)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"multi_match"`, `"must_not"`, `"published":true`, `"availability":["Current"]`, `"key":"course-v1:edX+DS101+2026_T1"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("query %s missing %s", raw, want)
		}
	}
}

func TestSearchCourseRuns(t *testing.T) {
	hit, _ := json.Marshal(CourseRunDocument{Key: "course-v1:edX+DS101+2026_T1", Title: "Data Science", Featured: true})
	mock := &mockIndexer{searchResp: &SearchResponse{Total: 7, Hits: []json.RawMessage{hit}}}
	svc := NewService(mock, testSearchConfig())

	res, err := svc.SearchCourseRuns(context.Background(), CourseRunQuery{Q: "data"})
	if err != nil {
		t.Fatalf("SearchCourseRuns: %v", err)
	}
	if mock.searchIndex != "catalog" {
		t.Errorf("searched %s, want primary alias", mock.searchIndex)
	}
	if res.Total != 7 || len(res.Results) != 1 || !res.Results[0].Featured {
		t.Errorf("unexpected results %+v", res)
	}
}

func TestIndexCourseRuns(t *testing.T) {
	mock := &mockIndexer{}
	svc := NewService(mock, testSearchConfig())

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	course := &models.Course{Key: "edX+DS101", Title: "Data Science", ShortDescription: "Learn data", Number: "DS101"}
	run := &models.CourseRun{
		UUID:      uuid.New(),
		Key:       "course-v1:edX+DS101+2026_T1",
		Start:     &start,
		Status:    models.CourseRunPublished,
		CourseKey: course.Key,
	}
	doc := NewCourseRunDocument("edx", course, run, start.Add(24*time.Hour))
	if doc.Title != "Data Science" || doc.ShortDescription != "Learn data" || doc.Org != "edX" {
		t.Errorf("document did not inherit course fields: %+v", doc)
	}
	if doc.Availability != models.AvailabilityCurrent || !doc.Published {
		t.Errorf("availability=%s published=%v", doc.Availability, doc.Published)
	}

	if err := svc.IndexCourseRuns(context.Background(), []CourseRunDocument{doc}); err != nil {
		t.Fatalf("IndexCourseRuns: %v", err)
	}
	if mock.bulkIndex != "catalog" || mock.bulkDocs[run.Key] == nil {
		t.Errorf("bulk index=%s docs=%v", mock.bulkIndex, mock.bulkDocs)
	}
}

func TestNewIndexName(t *testing.T) {
	svc := NewService(&mockIndexer{}, testSearchConfig())
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	if got := svc.NewIndexName(); got != "catalog_20260304_050607" {
		t.Errorf("NewIndexName = %s", got)
	}
}

func TestEnsureIndex(t *testing.T) {
	t.Run("creates and aliases a dated index", func(t *testing.T) {
		mock := &mockIndexer{aliased: map[string][]string{"catalog_old": {}}}
		svc := NewService(mock, testSearchConfig())
		svc.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

		index, err := svc.EnsureIndex(context.Background())
		if err != nil {
			t.Fatalf("EnsureIndex: %v", err)
		}
		if index != "catalog_20261015_080000" {
			t.Errorf("index = %s", index)
		}
		body, ok := mock.created[index]
		if !ok {
			t.Fatalf("created = %v, want %s", mock.created, index)
		}
		var parsed struct {
			Mappings struct {
				Properties map[string]json.RawMessage `json:"properties"`
			} `json:"mappings"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			t.Fatalf("create body %s: %v", body, err)
		}
		mt, _ := RequiredMappings().Type("modelresult")
		if len(parsed.Mappings.Properties) != len(mt.Properties) {
			t.Errorf("created %d properties, want %d", len(parsed.Mappings.Properties), len(mt.Properties))
		}
		// One alias update per configured alias, each adding the new index.
		if len(mock.aliasCalls) != 2 || mock.aliasCalls[0][1].Add.Index != index {
			t.Errorf("alias calls = %+v", mock.aliasCalls)
		}
	})

	t.Run("keeps the aliased index", func(t *testing.T) {
		mock := &mockIndexer{aliased: map[string][]string{"catalog_20260101_000000": {"catalog", "catalog_read"}}}
		svc := NewService(mock, testSearchConfig())

		index, err := svc.EnsureIndex(context.Background())
		if err != nil || index != "catalog_20260101_000000" {
			t.Fatalf("EnsureIndex = %s, %v", index, err)
		}
		if len(mock.created) != 0 || len(mock.aliasCalls) != 0 {
			t.Errorf("created=%v alias calls=%d, want none", mock.created, len(mock.aliasCalls))
		}
	})

	t.Run("no aliases", func(t *testing.T) {
		cfg := testSearchConfig()
		cfg.Aliases = nil
		if _, err := NewService(&mockIndexer{}, cfg).EnsureIndex(context.Background()); !errors.Is(err, ErrNoAliases) {
			t.Errorf("EnsureIndex error = %v, want ErrNoAliases", err)
		}
	})
}

func TestMappingTypeMarshalKeepsOrder(t *testing.T) {
	m, err := parseMappings([]byte(`{"modelresult": {"properties": {"title": {"type":"text"}, "start": {"type":"date"}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	mt, _ := m.Type("modelresult")
	got, err := json.Marshal(mt)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"properties":{"title":{"type":"text"},"start":{"type":"date"}}}`; string(got) != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
}
