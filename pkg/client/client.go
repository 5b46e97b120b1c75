// Package client is a Go client for the inkmatch worker HTTP API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/thebtf/inkmatch/pkg/models"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	// DefaultWorkerPort is the default worker port.
	DefaultWorkerPort = 37790

	// HealthCheckTimeout bounds Health calls made without a context deadline.
	HealthCheckTimeout = 1 * time.Second

	// DefaultTimeout bounds every other request.
	DefaultTimeout = 10 * time.Second
)

// MatchRequest is the body of POST /api/matches.
type MatchRequest struct {
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Query       string    `json:"query,omitempty"`
	BodyPart    string    `json:"body_part,omitempty"`
	Location    string    `json:"location,omitempty"`
	Styles      []string  `json:"styles,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Budget      float64   `json:"budget,omitempty"`
	RadiusMiles float64   `json:"radius_miles,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	DeadlineMs   int64  `json:"deadline_ms"`
	GraphEnabled bool   `json:"graph_enabled"`
}

// APIError is a non-2xx worker reply.
type APIError struct {
	Message    string `json:"error"`
	RequestID  string `json:"request_id"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("worker returned %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("worker returned %d: %s", e.StatusCode, e.Message)
}

// Timeout reports whether the worker gave up on the match deadline.
func (e *APIError) Timeout() bool {
	return e.StatusCode == http.StatusGatewayTimeout
}

// Client talks to one worker.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:37790".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// NewLocal creates a client for the worker on localhost, honouring
// INKMATCH_WORKER_PORT.
func NewLocal() *Client {
	return New(fmt.Sprintf("http://127.0.0.1:%d", WorkerPort()))
}

// WorkerPort returns the worker port from environment or default.
func WorkerPort() int {
	if port := os.Getenv("INKMATCH_WORKER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			return p
		}
	}
	return DefaultWorkerPort
}

// Match requests ranked artists.
func (c *Client) Match(ctx context.Context, req MatchRequest) (*models.MatchResponse, error) {
	var resp models.MatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/matches", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches the worker health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, HealthCheckTimeout)
		defer cancel()
	}
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// IsRunning reports whether a healthy worker answers.
func (c *Client) IsRunning(ctx context.Context) bool {
	h, err := c.Health(ctx)
	return err == nil && h.Status == "ok"
}

// Compatible reports whether the running worker matches this client build.
func (c *Client) Compatible(ctx context.Context) (bool, error) {
	h, err := c.Health(ctx)
	if err != nil {
		return false, err
	}
	return versionsCompatible(h.Version, Version), nil
}

// Stats fetches the raw worker statistics.
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	var stats map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// ClearCache drops the worker's match cache.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/cache", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// versionsCompatible checks if two versions are compatible for dev builds.
// Versions sharing a base (ignoring -dirty, -dev, commit suffixes) match.
func versionsCompatible(v1, v2 string) bool {
	if v1 == "dev" || v2 == "dev" {
		return true
	}
	return extractBaseVersion(v1) == extractBaseVersion(v2)
}

// extractBaseVersion extracts the semver base from a version string.
// e.g., "v0.3.5-2-gca711a8-dirty" -> "0.3.5"
func extractBaseVersion(version string) string {
	v := strings.TrimPrefix(version, "v")
	if idx := strings.Index(v, "-"); idx > 0 {
		v = v[:idx]
	}
	return v
}
