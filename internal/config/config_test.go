package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/inkmatch/pkg/models"
)

func writeSettings(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultWorkerPort, cfg.WorkerPort)
	assert.Equal(t, models.DefaultWeights(), cfg.Weights)
	assert.Equal(t, 500*time.Millisecond, cfg.MatchDeadline())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, "hash", cfg.VarietyMode)
	assert.True(t, cfg.GraphEnabled)
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default().WorkerPort, cfg.WorkerPort)
}

func TestLoadFrom_Settings(t *testing.T) {
	path := writeSettings(t, t.TempDir(), `{
  "INKMATCH_WORKER_PORT": 8080,
  "INKMATCH_GRAPH_ENABLED": false,
  "INKMATCH_CACHE_BACKEND": "redis",
  "INKMATCH_REDIS_ADDR": "localhost:6379",
  "INKMATCH_MATCH_DEADLINE_MS": 750,
  "INKMATCH_VARIETY_MODE": "random",
  "INKMATCH_WEIGHTS": {"visualSimilarity": 0.5, "styleAlignment": 0.5},
  "UNRELATED_KEY": "ignored"
}`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.WorkerPort)
	assert.False(t, cfg.GraphEnabled)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 750*time.Millisecond, cfg.MatchDeadline())
	assert.Equal(t, "random", cfg.VarietyMode)
	assert.Equal(t, models.Weights{"visualSimilarity": 0.5, "styleAlignment": 0.5}, cfg.Weights)
	assert.Equal(t, Default().MaxLimit, cfg.MaxLimit)
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	path := writeSettings(t, t.TempDir(), `{"INKMATCH_WORKER_PORT": 8080}`)
	t.Setenv("INKMATCH_WORKER_PORT", "9090")
	t.Setenv("INKMATCH_WEIGHTS", "visualSimilarity=1")
	t.Setenv("INKMATCH_POSTGRES_DSN", "postgres://localhost/inkmatch")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.WorkerPort)
	assert.Equal(t, models.Weights{"visualSimilarity": 1}, cfg.Weights)
	assert.Equal(t, "postgres://localhost/inkmatch", cfg.PostgresDSN)
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"INKMATCH_WORKER_PORT":`},
		{"negative port", `{"INKMATCH_WORKER_PORT": -1}`},
		{"fractional limit", `{"INKMATCH_MAX_LIMIT": 2.5}`},
		{"unknown backend", `{"INKMATCH_CACHE_BACKEND": "memcached"}`},
		{"unknown variety", `{"INKMATCH_VARIETY_MODE": "chaos"}`},
		{"bad weights type", `{"INKMATCH_WEIGHTS": 3}`},
		{"negative weight", `{"INKMATCH_WEIGHTS": {"budget": -1}}`},
		{"bad bool", `{"INKMATCH_GRAPH_ENABLED": "maybe"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSettings(t, t.TempDir(), tt.body)
			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights(" visualSimilarity=0.4, styleAlignment = 0.6 ")
	require.NoError(t, err)
	assert.Equal(t, models.Weights{"visualSimilarity": 0.4, "styleAlignment": 0.6}, w)

	for _, bad := range []string{"", "visualSimilarity", "budget=x", "budget=-0.1"} {
		_, err := ParseWeights(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetAndReload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INKMATCH_DATA_DIR", dir)
	writeSettings(t, dir, `{"INKMATCH_WORKER_PORT": 8181}`)

	// Get may already be memoized by another test; Reload always re-reads.
	_ = Get()
	cfg, err := Reload()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.WorkerPort)
	assert.Same(t, cfg, Get())

	writeSettings(t, dir, `{"INKMATCH_WORKER_PORT":`)
	_, err = Reload()
	assert.Error(t, err)
	assert.Equal(t, 8181, Get().WorkerPort)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `{"INKMATCH_WORKER_PORT": 1111}`)

	changes := make(chan *Config, 4)
	w, err := newWatcher(path, func() (*Config, error) { return LoadFrom(path) }, func(c *Config) {
		changes <- c
	}, 20*time.Millisecond)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	writeSettings(t, dir, `{"INKMATCH_WORKER_PORT": 2222, "INKMATCH_WEIGHTS": "budget=1"}`)

	select {
	case c := <-changes:
		assert.Equal(t, 2222, c.WorkerPort)
		assert.Equal(t, models.Weights{"budget": 1}, c.Weights)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestWatcher_IgnoresOtherFilesAndBadReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `{}`)

	changes := make(chan *Config, 4)
	w, err := newWatcher(path, func() (*Config, error) { return LoadFrom(path) }, func(c *Config) {
		changes <- c
	}, 20*time.Millisecond)
	require.NoError(t, err)
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
	writeSettings(t, dir, `{"INKMATCH_WORKER_PORT":`)

	select {
	case c := <-changes:
		t.Fatalf("unexpected reload: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}

	w.Stop()
	w.Stop()
}
