// Package upstream consumes the work-item store: the REST content backend
// that owns durable storage of specs, sync configs, and API credentials. The
// gateway never defines that store's schema, only how it reads and writes it.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/speckit/gateway/envelope"
)

// APIError is a non-2xx response from the upstream store.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream: %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the upstream store had no matching record.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Client is a JSON REST consumer of the upstream store.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates an upstream client. token authenticates the gateway to
// the store as a service caller.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// page is the upstream response envelope: data plus meta.pagination.
type page struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination *envelope.Pagination `json:"pagination"`
	} `json:"meta"`
}

// Get fetches path with query params and decodes data into out. Returns
// pagination metadata when the response carries it.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (*envelope.Pagination, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post creates a record at path.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

// Put replaces a record at path.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

// Delete removes a record at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*envelope.Pagination, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("upstream: marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Speckit-Gateway/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}
	if out == nil && resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("upstream: decode response: %w", err)
	}
	if out != nil && len(p.Data) > 0 {
		if err := json.Unmarshal(p.Data, out); err != nil {
			return nil, fmt.Errorf("upstream: decode data: %w", err)
		}
	}
	return p.Meta.Pagination, nil
}

// decodeAPIError extracts the upstream error body, falling back to the bare
// status when the body is not the expected shape.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
