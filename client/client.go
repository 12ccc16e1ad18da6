// Package client is a Go SDK for the OpenMemory REST API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// PaginationStableHeader is set to "false" on similarity-ranked listings.
const PaginationStableHeader = "X-Pagination-Stable"

// Client talks to one OpenMemory server. It is safe for concurrent use.
// Reads are retried with exponential backoff on network errors, 408, 429 and
// 5xx; writes are sent once.
type Client struct {
	base  string
	rest  *resty.Client
	retry retryPolicy
}

type retryPolicy struct {
	maxRetries uint64
	initial    time.Duration
	maxElapsed time.Duration
}

// New constructs a Client for baseURL, e.g. http://localhost:8765.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL cannot be empty")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	c := &Client{
		base: baseURL,
		rest: resty.New().
			SetBaseURL(baseURL+"/api/v1").
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
		retry: retryPolicy{maxRetries: 3, initial: 200 * time.Millisecond, maxElapsed: 10 * time.Second},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	out    interface{}
	// read marks calls without side effects; only these are retried.
	read bool
}

func (c *Client) do(ctx context.Context, r request) (*resty.Response, error) {
	var resp *resty.Response
	op := func() error {
		req := c.rest.R().SetContext(ctx).SetError(&APIError{})
		if r.query != nil {
			req.SetQueryParamsFromValues(r.query)
		}
		if r.body != nil {
			req.SetBody(r.body)
		}
		if r.out != nil {
			req.SetResult(r.out)
		}
		res, err := req.Execute(r.method, r.path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%s %s: %w", r.method, r.path, err)
		}
		if res.IsError() {
			apiErr, _ := res.Error().(*APIError)
			if apiErr == nil {
				apiErr = &APIError{}
			}
			apiErr.StatusCode = res.StatusCode()
			if !recoverable(apiErr.StatusCode) {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}
		resp = res
		return nil
	}

	retries := uint64(0)
	if r.read {
		retries = c.retry.maxRetries
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.initial
	b.MaxElapsedTime = c.retry.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

func pageQuery(page, size int, sizeParam string) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set(sizeParam, strconv.Itoa(size))
	}
	return q
}

// Users

func (c *Client) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	var out User
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/users/", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var out User
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/users/" + url.PathEscape(userID), out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context, page, pageSize int) (*Page[User], error) {
	var out Page[User]
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/users/", query: pageQuery(page, pageSize, "page_size"), out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Memories

// FilterMemories runs a structured or semantic filter.
func (c *Client) FilterMemories(ctx context.Context, in FilterRequest) (*MemoryPage, error) {
	var out MemoryPage
	resp, err := c.do(ctx, request{method: http.MethodPost, path: "/memories/filter", body: in, out: &out.Page, read: true})
	if err != nil {
		return nil, err
	}
	out.Stable = resp.Header().Get(PaginationStableHeader) != "false"
	return &out, nil
}

// SearchMemories ranks the user's memories by similarity to in.Query.
func (c *Client) SearchMemories(ctx context.Context, in SearchRequest) ([]Memory, error) {
	var out []Memory
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/memories/search", body: in, out: &out, read: true}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMemory(ctx context.Context, in CreateMemoryRequest) (*Memory, error) {
	var out Memory
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/memories/", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMemory fetches one memory. The read is logged against appID when set.
func (c *Client) GetMemory(ctx context.Context, memoryID, appID string) (*Memory, error) {
	var out Memory
	q := url.Values{}
	if appID != "" {
		q.Set("app_id", appID)
	}
	// not retried: every GET appends an access log entry
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/memories/" + url.PathEscape(memoryID), query: q, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMemory(ctx context.Context, memoryID, userID, content string) (*Memory, error) {
	var out Memory
	body := map[string]string{"memory_content": content, "user_id": userID}
	if _, err := c.do(ctx, request{method: http.MethodPut, path: "/memories/" + url.PathEscape(memoryID), body: body, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PauseMemories(ctx context.Context, in PauseRequest) (*StateChangeResult, error) {
	var out StateChangeResult
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/memories/actions/pause", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

type bulkRequest struct {
	MemoryIDs []string `json:"memory_ids"`
	UserID    string   `json:"user_id"`
}

func (c *Client) ArchiveMemories(ctx context.Context, userID string, ids []string) (*StateChangeResult, error) {
	var out StateChangeResult
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/memories/actions/archive", body: bulkRequest{ids, userID}, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMemories(ctx context.Context, userID string, ids []string) (*StateChangeResult, error) {
	var out StateChangeResult
	if _, err := c.do(ctx, request{method: http.MethodDelete, path: "/memories/", body: bulkRequest{ids, userID}, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateState moves ids to state through the matching endpoint.
func (c *Client) UpdateState(ctx context.Context, userID string, ids []string, state string) (*StateChangeResult, error) {
	switch state {
	case StateArchived:
		return c.ArchiveMemories(ctx, userID, ids)
	case StateDeleted:
		return c.DeleteMemories(ctx, userID, ids)
	case StateActive, StatePaused:
		return c.PauseMemories(ctx, PauseRequest{UserID: userID, MemoryIDs: ids, State: state})
	}
	return nil, fmt.Errorf("%w: unknown state %q", ErrBadRequest, state)
}

func (c *Client) AccessLog(ctx context.Context, memoryID string, page, pageSize int) (*Page[AccessLogEntry], error) {
	var out Page[AccessLogEntry]
	path := "/memories/" + url.PathEscape(memoryID) + "/access-log"
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path, query: pageQuery(page, pageSize, "page_size"), out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RelatedMemories(ctx context.Context, memoryID, userID string, page int) (*Page[Memory], error) {
	var out Page[Memory]
	q := pageQuery(page, 0, "")
	q.Set("user_id", userID)
	path := "/memories/" + url.PathEscape(memoryID) + "/related"
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path, query: q, out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, memoryID string) ([]StatusChange, error) {
	var out []StatusChange
	path := "/memories/" + url.PathEscape(memoryID) + "/history"
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path, out: &out, read: true}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AssignCategories(ctx context.Context, memoryID string, names []string) (*Memory, error) {
	var out Memory
	path := "/memories/" + url.PathEscape(memoryID) + "/categories"
	body := map[string][]string{"categories": names}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Apps

func (c *Client) ListApps(ctx context.Context, in ListAppsRequest) (*Page[App], error) {
	var out Page[App]
	q := pageQuery(in.Page, in.PageSize, "page_size")
	for k, v := range map[string]string{
		"user_id": in.UserID, "name": in.Name, "sort_column": in.SortColumn, "sort_direction": in.SortDirection,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if in.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*in.IsActive))
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/apps/", query: q, out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetApp(ctx context.Context, appID string) (*App, error) {
	var out App
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/apps/" + url.PathEscape(appID), out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetAppActive pauses (false) or resumes (true) an app.
func (c *Client) SetAppActive(ctx context.Context, appID string, active bool) (*App, error) {
	var out App
	q := url.Values{"is_active": {strconv.FormatBool(active)}}
	if _, err := c.do(ctx, request{method: http.MethodPut, path: "/apps/" + url.PathEscape(appID), query: q, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AppMemories(ctx context.Context, appID string, page, pageSize int) (*Page[Memory], error) {
	var out Page[Memory]
	path := "/apps/" + url.PathEscape(appID) + "/memories"
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path, query: pageQuery(page, pageSize, "page_size"), out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AppAccessedMemories(ctx context.Context, appID string, page, pageSize int) (*Page[AccessedMemory], error) {
	var out Page[AccessedMemory]
	path := "/apps/" + url.PathEscape(appID) + "/accessed"
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path, query: pageQuery(page, pageSize, "page_size"), out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Categories

// ListCategories returns categories in use, optionally for one user.
func (c *Client) ListCategories(ctx context.Context, userID string) (*CategoryList, error) {
	var out CategoryList
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/categories", query: q, out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports server health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if _, err := c.do(ctx, request{method: http.MethodGet, path: c.base + "/api/health", out: &out, read: true}); err != nil {
		return nil, err
	}
	return &out, nil
}
