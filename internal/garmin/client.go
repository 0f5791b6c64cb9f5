// Package garmin adapts the Garmin Connect HTTP API to the gateway interface
// consumed by the reconciliation engine.
package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alexanderakbik/GarminExport/internal/domain"
	"github.com/alexanderakbik/GarminExport/internal/export"
)

// Client holds one authenticated Garmin Connect session. The session is
// stateful; callers must not issue concurrent requests through it.
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
	token    string
}

var _ export.Gateway = (*Client)(nil)

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New constructs an unauthenticated Client; call Login before any fetch.
func New(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		username: username,
		password: password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login establishes the session. It must succeed before any other call; a
// failure wraps domain.ErrAuthFailed and is fatal to the run.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrAuthFailed, resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrAuthFailed, err)
	}
	if out.Token == "" {
		return fmt.Errorf("%w: empty session token", domain.ErrAuthFailed)
	}
	c.token = out.Token
	return nil
}

// ActivitiesByDate lists activities between the inclusive date bounds. Nested
// listing structures are dropped; the table holds flat cells only.
func (c *Client) ActivitiesByDate(ctx context.Context, startDate, endDate string) ([]domain.Record, error) {
	path := fmt.Sprintf("/activitylist-service/activities/search/activities?startDate=%s&endDate=%s",
		url.QueryEscape(startDate), url.QueryEscape(endDate))

	var payload []map[string]any
	found, err := c.getJSON(ctx, path, &payload)
	if err != nil || !found {
		return nil, err
	}

	records := make([]domain.Record, 0, len(payload))
	for _, raw := range payload {
		record := make(domain.Record, len(raw))
		for key, value := range raw {
			if cell, ok := scalar(value); ok {
				record[key] = cell
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// getJSON performs an authenticated GET. The bool result is false when the
// provider confirmed it has nothing for the resource (404 or 204).
func (c *Client) getJSON(ctx context.Context, path string, out any) (bool, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		io.Copy(io.Discard, resp.Body)
		return false, nil
	default:
		return false, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return true, nil
}

// getObject decodes a JSON object, tolerating endpoints that wrap the object
// in a single-element list.
func (c *Client) getObject(ctx context.Context, path string) (map[string]any, bool, error) {
	var payload any
	found, err := c.getJSON(ctx, path, &payload)
	if err != nil || !found {
		return nil, false, err
	}

	switch v := payload.(type) {
	case map[string]any:
		return v, true, nil
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m, true, nil
			}
		}
	}
	return nil, false, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}
