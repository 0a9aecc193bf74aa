// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/metrics"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Fatal reports a 4xx other than 429, which is never retried.
func (e *StatusError) Fatal() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Authorizer adds credentials to an outbound request.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// BasicAuth sends HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Authorize implements Authorizer.
func (b BasicAuth) Authorize(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// TokenSource returns a bearer token for each request.
type TokenSource func(ctx context.Context) (string, error)

// Authorize implements Authorizer with the JWT scheme used by Open edX
// services.
func (ts TokenSource) Authorize(ctx context.Context, req *http.Request) error {
	token, err := ts(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}
	req.Header.Set("Authorization", "JWT "+token)
	return nil
}

// Request describes one call. JSON is marshalled when Body is nil.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	JSON        interface{}
	Body        []byte
	ContentType string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// Client is a JSON HTTP client for one upstream.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*response]
	auth       Authorizer
	host       string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithAuthorizer sets the credentials added to each request.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Client) { c.auth = a }
}

// WithHost sends host as the Host header instead of the base URL's host.
// This service picks the partner of a request by its Host, so calls to the
// own API name the partner's site this way.
func WithHost(host string) Option {
	return func(c *Client) { c.host = host }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetry sets the retry count and the first backoff delay.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = attempts
		c.baseDelay = baseDelay
	}
}

// WithRateLimit caps requests per second. Zero disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient returns a client for baseURL named for metrics and logs.
func NewClient(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		maxRetries: 3,
		baseDelay:  time.Second,
		maxDelay:   2 * time.Minute,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(name)
	return c
}

// NewConfiguredClient applies the loader retry, rate and timeout settings,
// then extra.
func NewConfiguredClient(name, baseURL string, cfg *config.LoaderConfig, auth Authorizer, extra ...Option) *Client {
	opts := []Option{
		WithRetry(cfg.RetryAttempts, cfg.RetryDelay),
		WithRateLimit(cfg.RequestRate),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if auth != nil {
		opts = append(opts, WithAuthorizer(auth))
	}
	return NewClient(name, baseURL, append(opts, extra...)...)
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get decodes the JSON response of a GET into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, JSON: body}, out)
}

// Patch sends body as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Query: query, JSON: body}, out)
}

// Do executes r with rate limiting, the circuit breaker and retries, then
// decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, r Request, out interface{}) error {
	resp, err := c.execute(ctx, r)
	if err != nil {
		return err
	}
	if out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", c.name, err)
		}
	}
	return nil
}

// Fetch GETs path and returns the raw body and its content type.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := c.execute(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, "", err
	}
	return resp.body, resp.header.Get("Content-Type"), nil
}

func (c *Client) execute(ctx context.Context, r Request) (*response, error) {
	target, err := c.resolve(r.Path, r.Query)
	if err != nil {
		return nil, err
	}
	body := r.Body
	contentType := r.ContentType
	if body == nil && r.JSON != nil {
		body, err = json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		contentType = "application/json"
	}

	var resp *response
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err = c.breaker.Execute(func() (*response, error) {
			return c.once(ctx, r.Method, target, body, contentType)
		})
		status := 0
		if resp != nil {
			status = resp.status
		}
		metrics.RecordUpstreamRequest(c.name, status, err)
		if err == nil {
			break
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s unavailable: %w", c.name, err)
		}
		var se *StatusError
		if errors.As(err, &se) && se.Fatal() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%s request failed after %d attempts: %w", c.name, attempt+1, err)
		}

		delay := c.backoff(attempt, resp)
		logging.Warn().Err(err).Str("upstream", c.name).Dur("retry_delay", delay).
			Int("attempt", attempt+1).Int("max_retries", c.maxRetries).Msg("Upstream request failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, method, target string, body []byte, contentType string) (*response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.host != "" {
		req.Host = c.host
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	if c.auth != nil {
		if err := c.auth.Authorize(ctx, req); err != nil {
			return nil, err
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp := &response{status: res.StatusCode, header: res.Header, body: data}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet := string(bytes.TrimSpace(data))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return resp, &StatusError{Method: method, URL: target, StatusCode: res.StatusCode, Body: snippet}
	}
	return resp, nil
}

// backoff doubles baseDelay per attempt, or follows Retry-After on 429.
func (c *Client) backoff(attempt int, resp *response) time.Duration {
	delay := c.baseDelay * time.Duration(1<<attempt)
	if resp != nil && resp.status == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.header.Get("Retry-After"))); err == nil && secs >= 0 {
			delay = time.Duration(secs) * time.Second
		}
	}
	if delay > c.maxDelay {
		delay = c.maxDelay
	}
	return delay
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if c.baseURL == "" {
			return "", fmt.Errorf("%s: base URL is not configured", c.name)
		}
		target = strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", target, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
