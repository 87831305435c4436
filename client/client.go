// Package client is the Go client for the gridbase data API. It decodes
// the {data, error} response envelope and exposes a per-table query
// builder that only issues a request on an explicit Execute call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIError is a failure reported inside the response envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to a gridbase server with a bearer token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Pagination mirrors the server's list metadata.
type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Error      *string         `json:"error"`
	Pagination *Pagination     `json:"pagination"`
}

// Result is the outcome of an executed list query.
type Result struct {
	Records    []map[string]any
	Pagination *Pagination
}

// Login authenticates and stores the returned session token on the
// client for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

// Get fetches a single record by id.
func (c *Client) Get(ctx context.Context, table string, id int64) (map[string]any, error) {
	var out map[string]any
	path := fmt.Sprintf("/api/tables/%s/rows/%d", table, id)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert creates a record and returns the server's canonical copy. Any
// client-supplied id is stripped before transmission.
func (c *Client) Insert(ctx context.Context, table string, fields map[string]any) (map[string]any, error) {
	var out map[string]any
	path := fmt.Sprintf("/api/tables/%s/rows", table)
	if _, err := c.do(ctx, http.MethodPost, path, stripID(fields), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update mutates a record and returns the server's canonical copy.
func (c *Client) Update(ctx context.Context, table string, id int64, fields map[string]any) (map[string]any, error) {
	var out map[string]any
	path := fmt.Sprintf("/api/tables/%s/rows/%d", table, id)
	if _, err := c.do(ctx, http.MethodPatch, path, stripID(fields), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, table string, id int64) error {
	path := fmt.Sprintf("/api/tables/%s/rows/%d", table, id)
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// From starts a query against the named table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, limit: -1, offset: -1}
}

type predicate struct {
	Column   string
	Operator string
	Value    any
}

type ordering struct {
	Column string
	Desc   bool
}

// Query accumulates a column selection, predicates, ordering, limit and
// offset, and sends nothing until Execute. Predicates and ordering are
// recorded but not yet translated into query parameters; only limit and
// offset reach the wire.
type Query struct {
	client     *Client
	table      string
	columns    []string
	predicates []predicate
	orderings  []ordering
	limit      int
	offset     int
}

func (q *Query) Select(columns ...string) *Query {
	q.columns = append(q.columns, columns...)
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	return q.where(column, "eq", value)
}

func (q *Query) Neq(column string, value any) *Query {
	return q.where(column, "neq", value)
}

func (q *Query) Gt(column string, value any) *Query {
	return q.where(column, "gt", value)
}

func (q *Query) Gte(column string, value any) *Query {
	return q.where(column, "gte", value)
}

func (q *Query) Lt(column string, value any) *Query {
	return q.where(column, "lt", value)
}

func (q *Query) Lte(column string, value any) *Query {
	return q.where(column, "lte", value)
}

func (q *Query) OrderBy(column string, desc bool) *Query {
	q.orderings = append(q.orderings, ordering{Column: column, Desc: desc})
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

func (q *Query) where(column, op string, value any) *Query {
	q.predicates = append(q.predicates, predicate{Column: column, Operator: op, Value: value})
	return q
}

// Execute issues the list request.
func (q *Query) Execute(ctx context.Context) (*Result, error) {
	params := url.Values{}
	if q.limit >= 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	if q.offset >= 0 {
		params.Set("offset", strconv.Itoa(q.offset))
	}

	path := fmt.Sprintf("/api/tables/%s/rows", q.table)
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var records []map[string]any
	env, err := q.client.do(ctx, http.MethodGet, path, nil, &records)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []map[string]any{}
	}
	return &Result{Records: records, Pagination: env.Pagination}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: *env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}

func stripID(fields map[string]any) map[string]any {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		clean[k] = v
	}
	return clean
}
