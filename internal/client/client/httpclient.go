package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dvasilkov/catalogsync/internal/common"
	"github.com/dvasilkov/catalogsync/internal/syncapi"
	"github.com/sethvargo/go-retry"
)

// HTTPClient implements SyncAPI over HTTP/JSON.
//
// Transient failures (connection errors, 5xx) are retried a few times with
// constant backoff and then surfaced as common.ErrUnavailable; the sync
// round is safely retryable at a higher level, so the budget here is small.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	backoff time.Duration
	retries uint64
}

// NewHTTPClient returns a client for the sync API at baseURL
// (e.g. "http://127.0.0.1:8080"). timeout applies per attempt.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		backoff: 500 * time.Millisecond,
		retries: 2,
	}
}

func (c *HTTPClient) postJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	b := retry.WithMaxRetries(c.retries, retry.NewConstant(c.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", common.ErrUnavailable, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("%w: status %s", common.ErrUnavailable, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("unexpected status %s: %s", resp.Status, string(b))
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

func (c *HTTPClient) Push(ctx context.Context, businessID string, req syncapi.PushRequest) (*syncapi.PushResponse, error) {
	var resp syncapi.PushResponse
	url := fmt.Sprintf("%s/api/v1/businesses/%s/sync/push", c.baseURL, businessID)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Pull(ctx context.Context, businessID string, req syncapi.PullRequest) (*syncapi.PullResponse, error) {
	var resp syncapi.PullResponse
	url := fmt.Sprintf("%s/api/v1/businesses/%s/sync/pull", c.baseURL, businessID)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) FullSync(ctx context.Context, businessID string, req syncapi.FullSyncRequest) (*syncapi.FullSyncResponse, error) {
	var resp syncapi.FullSyncResponse
	url := fmt.Sprintf("%s/api/v1/businesses/%s/sync/full", c.baseURL, businessID)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", common.ErrUnavailable, resp.Status)
	}
	return nil
}
