// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/metrics"
)

// ErrNoAliases is returned when no alias is configured.
var ErrNoAliases = errors.New("no search alias configured")

// CourseRunQuery filters a course-run search.
type CourseRunQuery struct {
	Q            string
	Partner      string
	Key          string
	Keys         []string
	ExcludeKeys  []string
	Published    *bool
	Availability []string
	Featured     *bool
	Title        string
	Number       string
	Limit        int
	Offset       int
}

// CourseRunResults is one page of course-run documents.
type CourseRunResults struct {
	Total   int
	Results []CourseRunDocument
}

// Service administers the catalog aliases and course-run documents.
type Service struct {
	client Indexer
	cfg    config.SearchConfig
	now    func() time.Time
}

// NewService wraps client with the search settings.
func NewService(client Indexer, cfg *config.SearchConfig) *Service {
	return &Service{client: client, cfg: *cfg, now: time.Now}
}

// Alias returns the primary alias, used for reads and writes.
func (s *Service) Alias() (string, error) {
	if len(s.cfg.Aliases) == 0 {
		return "", ErrNoAliases
	}
	return s.cfg.Aliases[0], nil
}

// Ping checks the search cluster.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.client.Ping(ctx)
	metrics.RecordSearchOperation("ping", time.Since(start), err)
	return err
}

// SetAlias points every configured alias at index, removing it from any
// other index in the same call.
func (s *Service) SetAlias(ctx context.Context, index string) error {
	if len(s.cfg.Aliases) == 0 {
		return ErrNoAliases
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for _, alias := range s.cfg.Aliases {
		start := time.Now()
		err := s.client.UpdateAliases(ctx, []AliasAction{
			{Remove: &AliasTarget{Alias: alias, Index: "*"}},
			{Add: &AliasTarget{Alias: alias, Index: index}},
		})
		metrics.RecordSearchOperation("set_alias", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed to point alias %s at %s: %w", alias, index, err)
		}
		logging.Info().Str("alias", alias).Str("index", index).Msg("Alias updated")
	}
	return nil
}

// NewIndexName returns a timestamped index name under the configured prefix.
func (s *Service) NewIndexName() string {
	return fmt.Sprintf("%s_%s", s.cfg.IndexPrefix, s.now().UTC().Format("20060102_150405"))
}

// CreateIndex creates index from a catalog schema's mappings.
func (s *Service) CreateIndex(ctx context.Context, index string, mappings json.RawMessage) error {
	var body []byte
	if len(mappings) > 0 {
		var err error
		body, err = json.Marshal(map[string]json.RawMessage{"mappings": mappings})
		if err != nil {
			return err
		}
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.client.CreateIndex(ctx, index, body)
	metrics.RecordSearchOperation("create_index", time.Since(start), err)
	return err
}

// courseRunMappingType is the required mapping type course-run documents
// are indexed under.
const courseRunMappingType = "modelresult"

// EnsureIndex returns the index the primary alias points at. When it points
// nowhere, a new dated index is created with the course-run mappings and
// every alias is moved onto it.
func (s *Service) EnsureIndex(ctx context.Context) (string, error) {
	alias, err := s.Alias()
	if err != nil {
		return "", err
	}
	listCtx, cancel := s.withTimeout(ctx)
	aliased, err := s.client.AliasedIndices(listCtx)
	cancel()
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	for index, aliases := range aliased {
		if slices.Contains(aliases, alias) {
			return index, nil
		}
	}

	mt, ok := RequiredMappings().Type(courseRunMappingType)
	if !ok {
		return "", fmt.Errorf("required mappings have no %s type", courseRunMappingType)
	}
	mappings, err := json.Marshal(mt)
	if err != nil {
		return "", err
	}
	index := s.NewIndexName()
	if err := s.CreateIndex(ctx, index, mappings); err != nil {
		return "", fmt.Errorf("failed to create index %s: %w", index, err)
	}
	if err := s.SetAlias(ctx, index); err != nil {
		return "", err
	}
	logging.Info().Str("index", index).Str("alias", alias).Msg("Created search index")
	return index, nil
}

// IndexCourseRuns writes docs through the primary alias.
func (s *Service) IndexCourseRuns(ctx context.Context, docs []CourseRunDocument) error {
	alias, err := s.Alias()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	batch := make(map[string]interface{}, len(docs))
	for _, d := range docs {
		batch[d.Key] = d
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	err = s.client.Bulk(ctx, alias, batch)
	metrics.RecordSearchOperation("bulk_index", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to index %d course runs: %w", len(docs), err)
	}
	return nil
}

// SearchCourseRuns runs q against the primary alias.
func (s *Service) SearchCourseRuns(ctx context.Context, q CourseRunQuery) (*CourseRunResults, error) {
	alias, err := s.Alias()
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.client.Search(ctx, alias, BuildCourseRunQuery(q), limit, q.Offset)
	metrics.RecordSearchOperation("search", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	out := &CourseRunResults{Total: res.Total, Results: make([]CourseRunDocument, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		var doc CourseRunDocument
		if err := json.Unmarshal(hit, &doc); err != nil {
			return nil, fmt.Errorf("decode course run document: %w", err)
		}
		out.Results = append(out.Results, doc)
	}
	return out, nil
}

// BuildCourseRunQuery translates q into a bool query.
func BuildCourseRunQuery(q CourseRunQuery) map[string]interface{} {
	var must []interface{}
	var filter []interface{}
	var mustNot []interface{}

	if term := strings.TrimSpace(q.Q); term != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"title^2", "short_description", "full_description"},
			},
		})
	}
	if q.Partner != "" {
		filter = append(filter, termQuery("partner", q.Partner))
	}
	if q.Key != "" {
		filter = append(filter, termQuery("key", q.Key))
	}
	if len(q.Keys) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"key": q.Keys}})
	}
	if len(q.ExcludeKeys) > 0 {
		mustNot = append(mustNot, map[string]interface{}{"terms": map[string]interface{}{"key": q.ExcludeKeys}})
	}
	if q.Published != nil {
		filter = append(filter, termQuery("published", *q.Published))
	}
	if len(q.Availability) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"availability": q.Availability}})
	}
	if q.Featured != nil {
		filter = append(filter, termQuery("featured", *q.Featured))
	}
	if q.Title != "" {
		must = append(must, map[string]interface{}{"match_phrase": map[string]interface{}{"title": q.Title}})
	}
	if q.Number != "" {
		filter = append(filter, termQuery("number", q.Number))
	}

	if len(must) == 0 && len(filter) == 0 && len(mustNot) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}
	return map[string]interface{}{"bool": boolQuery}
}

func termQuery(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

// RemoveUnusedIndexes deletes "<prefix>_*" indexes that no alias points at,
// sparing the newest keep of them. It returns the deleted names.
func (s *Service) RemoveUnusedIndexes(ctx context.Context, keep int) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	indices, err := s.client.Indices(ctx, s.cfg.IndexPrefix+"_*")
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	aliased, err := s.client.AliasedIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}

	var unused []IndexInfo
	for _, idx := range indices {
		if len(aliased[idx.Name]) == 0 {
			unused = append(unused, idx)
		}
	}
	sort.Slice(unused, func(i, j int) bool {
		if unused[i].CreatedMS != unused[j].CreatedMS {
			return unused[i].CreatedMS > unused[j].CreatedMS
		}
		return unused[i].Name > unused[j].Name
	})
	if keep < 0 {
		keep = 0
	}
	if keep >= len(unused) {
		return nil, nil
	}

	var deleted []string
	for _, idx := range unused[keep:] {
		start := time.Now()
		err := s.client.DeleteIndex(ctx, idx.Name)
		metrics.RecordSearchOperation("delete_index", time.Since(start), err)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete index %s: %w", idx.Name, err)
		}
		logging.Info().Str("index", idx.Name).Msg("Removed unused index")
		deleted = append(deleted, idx.Name)
	}
	return deleted, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}
