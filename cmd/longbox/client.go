package main

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
	"syscall"
	"time"

	"longbox/internal/api"
)

// apiClient talks to the daemon HTTP API using the shared payload types.
type apiClient struct {
	baseURL string
	httpc   *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *apiClient) ListCollections(ctx context.Context) ([]api.Collection, error) {
	var resp api.CollectionListResponse
	if err := c.do(ctx, http.MethodGet, "/api/collections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

func (c *apiClient) AddCollection(ctx context.Context, name, folderPath string) (*api.Collection, error) {
	var resp api.CollectionResponse
	body := api.AddCollectionRequest{Name: name, FolderPath: folderPath}
	if err := c.do(ctx, http.MethodPost, "/api/collections", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Collection, nil
}

func (c *apiClient) GetCollection(ctx context.Context, id int64) (*api.Collection, error) {
	var resp api.CollectionResponse
	if err := c.do(ctx, http.MethodGet, "/api/collections/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Collection, nil
}

func (c *apiClient) TriggerSync(ctx context.Context, id int64) (*api.SyncResult, error) {
	var result api.SyncResult
	path := "/api/collections/" + strconv.FormatInt(id, 10) + "/sync"
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) ListSessions(ctx context.Context, includeDismissed bool, limit int) ([]api.Session, error) {
	values := url.Values{}
	if includeDismissed {
		values.Set("all", "1")
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/sessions"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp api.SessionListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *apiClient) GetSessionStatus(ctx context.Context, sessionID string) (*api.SessionStatus, error) {
	var status api.SessionStatus
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *apiClient) DismissSession(ctx context.Context, sessionID string) error {
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/dismiss"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return wrapTransportError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func wrapTransportError(err error, baseURL string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `longboxd`", baseURL)
	}
	return fmt.Errorf("connect to daemon at %s: %w", baseURL, err)
}
