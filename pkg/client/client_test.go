package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/inkmatch/internal/cache"
	"github.com/thebtf/inkmatch/internal/catalog"
	"github.com/thebtf/inkmatch/internal/config"
	"github.com/thebtf/inkmatch/internal/search"
	"github.com/thebtf/inkmatch/internal/worker"
	"github.com/thebtf/inkmatch/pkg/models"
)

func newWorker(t *testing.T, src search.Sources) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit = 0
	svc := worker.NewService("v1.2.0", cfg, search.NewManager(search.DefaultConfig(), src))
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClient_MatchAgainstWorker(t *testing.T) {
	mem := cache.NewMemory(time.Minute)
	c := newWorker(t, search.Sources{
		Catalog: catalog.NewStatic([]models.Artist{
			{ID: "mika", Name: "Mika", City: "Austin", Styles: []string{"Anime"}, Available: true},
		}),
		Cache: mem,
	})
	ctx := context.Background()

	resp, err := c.Match(ctx, MatchRequest{Styles: []string{"Anime"}, Location: "Austin"})
	require.NoError(t, err)
	assert.Equal(t, models.PathFallback, resp.Path)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "mika", resp.Matches[0].ID)
	assert.Equal(t, 1, mem.Len())

	require.NoError(t, c.ClearCache(ctx))
	assert.Equal(t, 0, mem.Len())

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Contains(t, stats, "matches")
}

func TestClient_HealthAndVersion(t *testing.T) {
	c := newWorker(t, search.Sources{})
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, int64(500), h.DeadlineMs)
	assert.True(t, c.IsRunning(ctx))

	Version = "v1.2.0-3-gabc123-dirty"
	t.Cleanup(func() { Version = "dev" })
	ok, err := c.Compatible(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	Version = "v1.3.0"
	ok, err = c.Compatible(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_APIError(t *testing.T) {
	c := newWorker(t, search.Sources{})

	_, err := c.Match(context.Background(), MatchRequest{Budget: -1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Budget: gte")
	assert.NotEmpty(t, apiErr.RequestID)
	assert.False(t, apiErr.Timeout())
}

func TestClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Match(context.Background(), MatchRequest{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.True(t, apiErr.Timeout())
}

func TestClient_NotRunning(t *testing.T) {
	c := New("http://127.0.0.1:1")
	assert.False(t, c.IsRunning(context.Background()))
}

func TestWorkerPort(t *testing.T) {
	assert.Equal(t, DefaultWorkerPort, WorkerPort())

	t.Setenv("INKMATCH_WORKER_PORT", "12345")
	assert.Equal(t, 12345, WorkerPort())

	t.Setenv("INKMATCH_WORKER_PORT", "invalid")
	assert.Equal(t, DefaultWorkerPort, WorkerPort())
}

func TestVersionsCompatible(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   bool
	}{
		{"dev", "v1.0.0", true},
		{"v0.3.5-2-gca711a8-dirty", "v0.3.5", true},
		{"0.3.5", "v0.3.5-dev", true},
		{"v0.3.5", "v0.3.6", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, versionsCompatible(tt.v1, tt.v2), "%s vs %s", tt.v1, tt.v2)
	}
}
