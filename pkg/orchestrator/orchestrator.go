// Package orchestrator implements the HTTP client for the slice
// orchestrator.
//
// The orchestrator accepts a serialized topology payload under a slice
// name and realizes it on the substrate. The client's only obligation
// toward the model core is producing and consuming valid serialized
// payloads; realization itself happens remotely. Requests carry a bearer
// token from the credential store, transient failures are retried with
// backoff, and query responses are cached so repeated status polling does
// not re-fetch unchanged slices.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/netweave/netweave/pkg/cache"
	"github.com/netweave/netweave/pkg/credentials"
	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/httputil"
	"github.com/netweave/netweave/pkg/observability"
)

// Status is the orchestrator's view of a slice operation.
type Status string

const (
	// StatusOK means the operation completed and the slice is active.
	StatusOK Status = "OK"
	// StatusWaiting means the operation was accepted and is in progress.
	StatusWaiting Status = "Waiting"
	// StatusFailed means the operation failed; the slice is unusable.
	StatusFailed Status = "Failed"
	// StatusUnknown is reported when the orchestrator's answer cannot be
	// interpreted.
	StatusUnknown Status = "Unknown"
)

// TokenScope is the credential scope requested for orchestrator calls.
const TokenScope = "slice"

const queryCacheTTL = 30 * time.Second

// Client talks to one orchestrator endpoint on behalf of one project.
type Client struct {
	baseURL string
	project string
	http    *http.Client
	tokens  credentials.Store
	cache   cache.Cache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache installs a cache for query responses. Defaults to no caching.
func WithCache(cc cache.Cache) Option {
	return func(c *Client) { c.cache = cc }
}

// NewClient creates a client for the orchestrator at baseURL, acting for
// the given project and drawing bearer tokens from tokens.
func NewClient(baseURL, project string, tokens credentials.Store, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "orchestrator URL %q", baseURL)
	}
	c := &Client{
		baseURL: baseURL,
		project: project,
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		cache:   cache.NewNullCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// sliceRequest is the orchestrator's request body for create and modify.
type sliceRequest struct {
	Project string `json:"project"`
	Payload string `json:"payload,omitempty"`
	Until   string `json:"until,omitempty"`
}

// sliceResponse is the orchestrator's answer for every slice operation.
type sliceResponse struct {
	Status  Status `json:"status"`
	Payload string `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
}

// Create submits a serialized topology as a new slice.
func (c *Client) Create(ctx context.Context, sliceName, payload string) (Status, error) {
	resp, err := c.call(ctx, http.MethodPost, c.slicePath(sliceName), sliceRequest{
		Project: c.project,
		Payload: payload,
	})
	if err != nil {
		return StatusFailed, err
	}
	return resp.Status, nil
}

// Modify replaces a slice's topology with a revised payload.
func (c *Client) Modify(ctx context.Context, sliceName, payload string) (Status, error) {
	resp, err := c.call(ctx, http.MethodPut, c.slicePath(sliceName), sliceRequest{
		Project: c.project,
		Payload: payload,
	})
	if err != nil {
		return StatusFailed, err
	}
	_ = c.cache.Delete(ctx, cache.SliceKey(c.project, sliceName))
	return resp.Status, nil
}

// Query fetches the serialized topology of the realized slice. The
// returned payload reflects what the orchestrator actually allocated,
// including reservation state properties on each resource.
func (c *Client) Query(ctx context.Context, sliceName string) (Status, string, error) {
	key := cache.SliceKey(c.project, sliceName)
	if data, hit, _ := c.cache.Get(ctx, key); hit {
		return StatusOK, string(data), nil
	}

	resp, err := c.call(ctx, http.MethodGet, c.slicePath(sliceName), nil)
	if err != nil {
		return StatusFailed, "", err
	}
	if resp.Status == StatusOK && resp.Payload != "" {
		_ = c.cache.Set(ctx, key, []byte(resp.Payload), queryCacheTTL)
	}
	return resp.Status, resp.Payload, nil
}

// Status reports the slice's current state without fetching its topology.
func (c *Client) Status(ctx context.Context, sliceName string) (Status, error) {
	resp, err := c.call(ctx, http.MethodGet, c.slicePath(sliceName)+"/status", nil)
	if err != nil {
		return StatusFailed, err
	}
	return resp.Status, nil
}

// Delete tears down a slice.
func (c *Client) Delete(ctx context.Context, sliceName string) (Status, error) {
	resp, err := c.call(ctx, http.MethodDelete, c.slicePath(sliceName), nil)
	if err != nil {
		return StatusFailed, err
	}
	_ = c.cache.Delete(ctx, cache.SliceKey(c.project, sliceName))
	return resp.Status, nil
}

// Renew extends a slice's lease until the given time.
func (c *Client) Renew(ctx context.Context, sliceName string, until time.Time) (Status, error) {
	resp, err := c.call(ctx, http.MethodPost, c.slicePath(sliceName)+"/renew", sliceRequest{
		Project: c.project,
		Until:   until.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return StatusFailed, err
	}
	return resp.Status, nil
}

func (c *Client) slicePath(sliceName string) string {
	return "/slices/" + url.PathEscape(sliceName)
}

// call runs one orchestrator request with auth, retry, and hooks.
func (c *Client) call(ctx context.Context, method, path string, body any) (*sliceResponse, error) {
	tok, err := c.tokens.Get(ctx, c.project, TokenScope)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnauthorized, err,
			"no usable token for project %s", c.project)
	}

	var out *sliceResponse
	err = httputil.RetryWithBackoff(ctx, func() error {
		resp, err := c.once(ctx, method, path, body, tok.Bearer)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

func (c *Client) once(ctx context.Context, method, path string, body any, bearer string) (*sliceResponse, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode request")
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	u, _ := url.Parse(c.baseURL)
	observability.HTTP().OnRequest(ctx, method, u.Host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, method, u.Host, path, err)
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path))
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, method, u.Host, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.New(errors.ErrCodeUnauthorized, "%s %s: %s", method, path, resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeNotFound, "%s %s: %s", method, path, resp.Status)
	case resp.StatusCode >= 500:
		return nil, httputil.Retryable(errors.New(errors.ErrCodeNetwork, "%s %s: %s", method, path, resp.Status))
	case resp.StatusCode >= 400:
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s %s: %s", method, path, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read response"))
	}
	var sr sliceResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode response")
	}
	if sr.Status == "" {
		sr.Status = StatusUnknown
	}
	if sr.Status == StatusFailed && sr.Message != "" {
		return &sr, fmt.Errorf("orchestrator: %s", sr.Message)
	}
	return &sr, nil
}
