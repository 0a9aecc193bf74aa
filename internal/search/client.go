// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/config"
)

// AliasAction is one entry of an _aliases request.
type AliasAction struct {
	Remove *AliasTarget `json:"remove,omitempty"`
	Add    *AliasTarget `json:"add,omitempty"`
}

// AliasTarget names an alias and the index it applies to.
type AliasTarget struct {
	Alias string `json:"alias"`
	Index string `json:"index"`
}

// IndexInfo describes a concrete index.
type IndexInfo struct {
	Name      string
	CreatedMS int64
}

// SearchResponse is the subset of a search response the service reads.
type SearchResponse struct {
	Total int
	Hits  []json.RawMessage
}

// Indexer abstracts the index operations so tests can use a mock.
type Indexer interface {
	Ping(ctx context.Context) error
	UpdateAliases(ctx context.Context, actions []AliasAction) error
	CreateIndex(ctx context.Context, index string, body []byte) error
	DeleteIndex(ctx context.Context, index string) error
	Indices(ctx context.Context, pattern string) ([]IndexInfo, error)
	AliasedIndices(ctx context.Context) (map[string][]string, error)
	Bulk(ctx context.Context, index string, docs map[string]interface{}) error
	Search(ctx context.Context, index string, query map[string]interface{}, limit, offset int) (*SearchResponse, error)
}

var _ Indexer = (*Client)(nil)

// Client is the Elasticsearch implementation of Indexer.
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to the configured cluster. No request is made until the
// first call.
func NewClient(cfg *config.SearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.URLs,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	return &Client{es: es}, nil
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	return drain(res, err, "ping")
}

// UpdateAliases applies the actions in one atomic _aliases call.
func (c *Client) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	body, err := json.Marshal(map[string]interface{}{"actions": actions})
	if err != nil {
		return err
	}
	res, err := c.es.Indices.UpdateAliases(bytes.NewReader(body), c.es.Indices.UpdateAliases.WithContext(ctx))
	return drain(res, err, "update aliases")
}

// CreateIndex creates index with the given settings and mappings body.
func (c *Client) CreateIndex(ctx context.Context, index string, body []byte) error {
	opts := []func(*esapi.IndicesCreateRequest){c.es.Indices.Create.WithContext(ctx)}
	if len(body) > 0 {
		opts = append(opts, c.es.Indices.Create.WithBody(bytes.NewReader(body)))
	}
	res, err := c.es.Indices.Create(index, opts...)
	return drain(res, err, "create index "+index)
}

// DeleteIndex removes one index.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.es.Indices.Delete([]string{index}, c.es.Indices.Delete.WithContext(ctx))
	return drain(res, err, "delete index "+index)
}

// Indices lists the indices matching pattern.
func (c *Client) Indices(ctx context.Context, pattern string) ([]IndexInfo, error) {
	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithIndex(pattern),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithH("index", "creation.date"),
	)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError(res, "list indices")
	}

	var rows []struct {
		Index        string `json:"index"`
		CreationDate string `json:"creation.date"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode indices: %w", err)
	}
	out := make([]IndexInfo, 0, len(rows))
	for _, r := range rows {
		created, _ := strconv.ParseInt(r.CreationDate, 10, 64)
		out = append(out, IndexInfo{Name: r.Index, CreatedMS: created})
	}
	return out, nil
}

// AliasedIndices maps each index to the aliases pointing at it.
func (c *Client) AliasedIndices(ctx context.Context) (map[string][]string, error) {
	res, err := c.es.Cat.Aliases(
		c.es.Cat.Aliases.WithContext(ctx),
		c.es.Cat.Aliases.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError(res, "list aliases")
	}

	var rows []struct {
		Alias string `json:"alias"`
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode aliases: %w", err)
	}
	out := make(map[string][]string, len(rows))
	for _, r := range rows {
		out[r.Index] = append(out[r.Index], r.Alias)
	}
	return out, nil
}

// Bulk indexes docs keyed by document id.
func (c *Client) Bulk(ctx context.Context, index string, docs map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for id, doc := range docs {
		if err := enc.Encode(map[string]interface{}{"index": map[string]string{"_id": id}}); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	res, err := c.es.Bulk(&buf,
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, "bulk index")
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID    string `json:"_id"`
			Error *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("bulk index: document %s: %s", op.ID, op.Error.Reason)
				}
			}
		}
	}
	return nil
}

// Search runs query against index.
func (c *Client) Search(ctx context.Context, index string, query map[string]interface{}, limit, offset int) (*SearchResponse, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": query,
		"from":  offset,
		"size":  limit,
	})
	if err != nil {
		return nil, err
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError(res, "search")
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := &SearchResponse{Total: result.Hits.Total.Value}
	for _, h := range result.Hits.Hits {
		out.Hits = append(out.Hits, h.Source)
	}
	return out, nil
}

func drain(res *esapi.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, op)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

func responseError(res *esapi.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), bytes.TrimSpace(body))
}
