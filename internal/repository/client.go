// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"github.com/olegiv/ocms-blog/internal/content"
)

// maxResponseSize bounds how much of a repository response is read.
const maxResponseSize = 8 << 20

// ClientOptions configures the remote repository client.
type ClientOptions struct {
	// Endpoint is the API root, e.g. https://my-blog.cdn.prismic.io/api/v2
	Endpoint string

	// AccessToken is sent as access_token on every request (optional).
	AccessToken string

	// DocumentType is the custom type holding blog posts.
	DocumentType string

	// PageSize is the listing page size.
	PageSize int

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries uint64

	// RetryBase is the initial exponential backoff delay.
	RetryBase time.Duration

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// DefaultClientOptions returns sensible defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		DocumentType: "posts",
		PageSize:     1,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryBase:    200 * time.Millisecond,
	}
}

// Client talks to a Prismic-style headless repository over HTTP.
// It implements Repository.
type Client struct {
	opts   ClientOptions
	http   *http.Client
	logger *slog.Logger

	mu        sync.RWMutex
	masterRef string
}

// statusError is a non-2xx repository response.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("repository returned HTTP %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a remote repository client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("repository endpoint is required")
	}
	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("parsing repository endpoint: %w", err)
	}

	defaults := DefaultClientOptions()
	if opts.DocumentType == "" {
		opts.DocumentType = defaults.DocumentType
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaults.RetryBase
	}
	opts.Endpoint = strings.TrimRight(opts.Endpoint, "/")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		opts:   opts,
		http:   httpClient,
		logger: logger,
	}, nil
}

// RefreshRef fetches the current master ref and caches it.
func (c *Client) RefreshRef(ctx context.Context) (string, error) {
	body, err := c.get(ctx, c.opts.Endpoint, url.Values{})
	if err != nil {
		return "", fmt.Errorf("fetching master ref: %w", err)
	}

	var ref string
	gjson.GetBytes(body, "refs").ForEach(func(_, r gjson.Result) bool {
		if r.Get("isMasterRef").Bool() {
			ref = r.Get("ref").String()
			return false
		}
		return true
	})
	if ref == "" {
		return "", fmt.Errorf("%w: api root has no master ref", content.ErrRepositoryUnavailable)
	}

	c.mu.Lock()
	changed := c.masterRef != ref
	c.masterRef = ref
	c.mu.Unlock()

	if changed {
		c.logger.Info("repository master ref updated", "ref", ref)
	}
	return ref, nil
}

// MasterRef returns the cached master ref, fetching it on first use.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	c.mu.RLock()
	ref := c.masterRef
	c.mu.RUnlock()
	if ref != "" {
		return ref, nil
	}
	return c.RefreshRef(ctx)
}

// FetchListingPage implements Repository.
func (c *Client) FetchListingPage(ctx context.Context, cursor string) (RawPage, error) {
	page := 1
	if cursor != "" {
		var err error
		if page, err = decodePageCursor(cursor); err != nil {
			return RawPage{}, err
		}
	}

	params := url.Values{}
	params.Set("q", c.typePredicate())
	params.Set("orderings", "[document.first_publication_date desc,"+c.uidField()+"]")
	params.Set("fetch", c.fetchFields("title", "subtitle", "author"))
	params.Set("pageSize", strconv.Itoa(c.opts.PageSize))
	params.Set("page", strconv.Itoa(page))

	result, err := c.search(ctx, "", params)
	if err != nil {
		return RawPage{}, fmt.Errorf("fetching listing page %d: %w", page, err)
	}

	out := RawPage{Items: rawResults(result)}
	if next := result.Get("next_page"); next.Type == gjson.String && next.String() != "" {
		out.NextCursor = encodePageCursor(page + 1)
	}
	return out, nil
}

// FetchByUID implements Repository.
func (c *Client) FetchByUID(ctx context.Context, uid, ref string) (Raw, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("[[at(%s,%s)]]", c.uidField(), strconv.Quote(uid)))
	params.Set("pageSize", "1")

	result, err := c.search(ctx, ref, params)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", uid, err)
	}

	items := rawResults(result)
	if len(items) == 0 {
		return nil, fmt.Errorf("%q: %w", uid, content.ErrNotFound)
	}
	return items[0], nil
}

// QueryAdjacent implements Repository.
func (c *Client) QueryAdjacent(ctx context.Context, q AdjacentQuery) ([]Raw, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 1
	}

	predicate, ordering := "date.after", "document.first_publication_date"
	if q.Direction == Descending {
		predicate, ordering = "date.before", "document.first_publication_date desc"
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("[[at(document.type,%s)][%s(document.first_publication_date,%d)]]",
		strconv.Quote(c.opts.DocumentType), predicate, q.FirstPublished.UnixMilli()))
	params.Set("orderings", "["+ordering+","+c.uidField()+"]")
	params.Set("fetch", c.fetchFields("title", "subtitle", "author"))
	params.Set("pageSize", strconv.Itoa(pageSize))

	result, err := c.search(ctx, "", params)
	if err != nil {
		return nil, fmt.Errorf("querying %s of %q: %w", q.Direction, q.ID, err)
	}
	return rawResults(result), nil
}

// search runs a documents/search query against ref (master when empty).
func (c *Client) search(ctx context.Context, ref string, params url.Values) (gjson.Result, error) {
	if ref == "" {
		var err error
		if ref, err = c.MasterRef(ctx); err != nil {
			return gjson.Result{}, err
		}
	}
	params.Set("ref", ref)

	body, err := c.get(ctx, c.opts.Endpoint+"/documents/search", params)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON response", content.ErrRepositoryUnavailable)
	}
	return gjson.ParseBytes(body), nil
}

// get performs a GET with per-attempt timeout and exponential backoff on
// transient failures. Errors are classified as content.ErrNotFound or
// content.ErrRepositoryUnavailable.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.opts.AccessToken != "" {
		params.Set("access_token", c.opts.AccessToken)
	}
	target := endpoint
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}

	backoff := retry.WithMaxRetries(c.opts.MaxRetries, retry.NewExponential(c.opts.RetryBase))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var attemptErr error
		body, attemptErr = c.attempt(ctx, target)
		if attemptErr != nil && isTransient(attemptErr) {
			c.logger.Debug("repository request failed, retrying", "error", attemptErr)
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})
	if err == nil {
		return body, nil
	}

	var se *statusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %v", content.ErrNotFound, err)
	}
	return nil, fmt.Errorf("%w: %v", content.ErrRepositoryUnavailable, err)
}

func (c *Client) attempt(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &statusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// isTransient reports whether a failed attempt is worth retrying.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	// Network failures and per-attempt timeouts.
	return true
}

func (c *Client) typePredicate() string {
	return fmt.Sprintf("[[at(document.type,%s)]]", strconv.Quote(c.opts.DocumentType))
}

func (c *Client) uidField() string {
	return "my." + c.opts.DocumentType + ".uid"
}

func (c *Client) fetchFields(fields ...string) string {
	qualified := make([]string, len(fields))
	for i, f := range fields {
		qualified[i] = c.opts.DocumentType + "." + f
	}
	return strings.Join(qualified, ",")
}

func rawResults(result gjson.Result) []Raw {
	results := result.Get("results").Array()
	items := make([]Raw, 0, len(results))
	for _, r := range results {
		items = append(items, Raw(r.Raw))
	}
	return items
}
