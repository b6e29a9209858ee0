// Package api is a small JSON client for the evaluation service. It is
// shared by the auth flow and the dashboard screens.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to one evaluation server. TokenFunc, when set, supplies
// the bearer token for each request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	TokenFunc  func() string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server. Transport failures are
// returned as ordinary errors, never as *APIError.
type APIError struct {
	Status     int
	Code       string
	Detail     string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Code)
}

// RetryAfterSeconds parses the Retry-After header, defaulting to 60 when
// it is absent or malformed.
func (e *APIError) RetryAfterSeconds() int {
	if seconds, err := strconv.Atoi(e.RetryAfter); err == nil && seconds > 0 {
		return seconds
	}
	return 60
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.TokenFunc != nil {
		if token := c.TokenFunc(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Status:     resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
		var errBody struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		// A body that is not the expected JSON shape is treated as empty.
		_ = json.Unmarshal(payload, &errBody)
		apiErr.Code = errBody.Error
		apiErr.Detail = errBody.Detail
		return apiErr
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			// Malformed success bodies read as an empty object, so the
			// caller sees zero values rather than a dead end.
			return nil
		}
	}
	return nil
}
