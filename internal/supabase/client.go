// Package supabase is a minimal PostgREST client covering the operations the
// sync pipeline needs: bulk upsert with a conflict target, filtered reads
// with range pagination, stored-procedure calls, and singleton upserts.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const restPath = "/rest/v1"

var (
	errUnexpectedStatus = errors.New("supabase: unexpected http status")
	errBaseURL          = errors.New("supabase: invalid base url")
)

// Client talks to one Supabase project's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiKey     string
}

// New builds a client for the given project URL and API key. A nil
// httpClient falls back to a default one; timeouts and cancellation are the
// caller's concern via the http.Client and request contexts.
func New(httpClient *http.Client, baseURL, apiKey string) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errBaseURL, baseURL)
	}
	return &Client{httpClient: httpClient, baseURL: u, apiKey: apiKey}, nil
}

// Upsert inserts records into table, replacing any existing row whose
// onConflict column matches. The whole payload is one PostgREST request; the
// rows are durably applied before Upsert returns.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, records any) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("supabase: marshal upsert payload: %w", err)
	}

	u := c.endpoint(table)
	q := u.Query()
	q.Set("on_conflict", onConflict)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("supabase: build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	return c.do(req, nil)
}

// UpsertSingleton replaces a fixed-identity row (e.g. the KPI snapshot,
// id=1), resolving the conflict on the table's primary key.
func (c *Client) UpsertSingleton(ctx context.Context, table string, record map[string]any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("supabase: marshal singleton payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(table).String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("supabase: build singleton request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	return c.do(req, nil)
}

// SelectOptions narrows a Select. Eq filters compare exactly, ILike filters
// match case-insensitively with the given pattern, and Offset/Limit page
// through the result set.
type SelectOptions struct {
	Eq     map[string]string
	ILike  map[string]string
	Offset int
	Limit  int
}

// Select reads rows from table into dest, which must be a pointer to a slice
// of JSON-decodable values.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions, dest any) error {
	u := c.endpoint(table)
	q := u.Query()
	q.Set("select", "*")
	for col, v := range opts.Eq {
		q.Set(col, "eq."+v)
	}
	for col, pattern := range opts.ILike {
		q.Set(col, "ilike."+pattern)
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("supabase: build select request: %w", err)
	}
	return c.do(req, dest)
}

// RPC invokes a named server-side procedure with no arguments.
func (c *Client) RPC(ctx context.Context, name string) error {
	u := c.baseURL.JoinPath(restPath, "rpc", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("supabase: build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) endpoint(table string) *url.URL {
	return c.baseURL.JoinPath(restPath, table)
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d on %s %s: %s", errUnexpectedStatus, resp.StatusCode, req.Method, req.URL.Path, bytes.TrimSpace(detail))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("supabase: decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}
