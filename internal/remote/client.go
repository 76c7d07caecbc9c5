// Package remote implements the HTTP client for the repertoire remote
// authority.
package remote

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

// StatusError is returned when the remote authority answers with a non-2xx
// status. Anything other than success is a failure; the protocol has no
// partial-success status codes.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d: %s", e.StatusCode, e.Body)
}

// Client is a thin HTTP client for the remote authority's sync API. It
// handles Bearer token authentication, JSON marshaling, and automatic retry
// with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a remote authority client. The baseURL should be the
// root URL of the service (e.g., https://sync.example.com).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// SyncItems uploads dirty items and downloads server-side changes in one
// round-trip.
func (c *Client) SyncItems(ctx context.Context, token string, req ItemSyncRequest) (*ItemSyncResponse, error) {
	var resp ItemSyncResponse
	if err := c.post(ctx, "/v1/items/sync", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncSessions uploads unsynced practice sessions and returns the
// acknowledged ids.
func (c *Client) SyncSessions(ctx context.Context, token string, req SessionSyncRequest) (*SessionSyncResponse, error) {
	var resp SessionSyncResponse
	if err := c.post(ctx, "/v1/sessions/sync", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post is the core HTTP method that builds the request, handles auth, rate
// limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) post(
	ctx context.Context,
	path string,
	token string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, url, bytes.NewReader(data),
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request POST %s: %w", path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on POST %s", path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{
				StatusCode: resp.StatusCode,
				Body:       truncate(string(respBody), 200),
			}
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("decoding response from POST %s: %w", path, err)
			}
		}
		return nil
	}

	return fmt.Errorf("exhausted retries on POST %s: %w", path, lastErr)
}

// retryAfterDuration returns how long to wait before retrying a 429
// response, honoring the Retry-After header when present and falling back
// to exponential backoff.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
