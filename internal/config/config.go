// Package config provides configuration management for inkmatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/thebtf/inkmatch/pkg/models"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 37790

	// DefaultEmbeddingDims matches the image embedding model used for portfolios.
	DefaultEmbeddingDims = 768

	envPrefix = "INKMATCH_"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds the application configuration.
type Config struct {
	Weights models.Weights `json:"weights"`

	// Worker settings
	WorkerHost string  `json:"worker_host"`
	LogLevel   string  `json:"log_level"`
	WorkerPort int     `json:"worker_port"`
	RateLimit  float64 `json:"rate_limit"` // match requests per second per client
	RateBurst  int     `json:"rate_burst"`

	// Matching settings
	VarietyMode     string `json:"variety_mode"` // "hash" or "random"
	MatchDeadlineMs int    `json:"match_deadline_ms"`
	DefaultLimit    int    `json:"default_limit"`
	MaxLimit        int    `json:"max_limit"`

	// Cache settings
	CacheBackend    string `json:"cache_backend"`
	RedisAddr       string `json:"redis_addr"`
	RedisPassword   string `json:"-"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	RedisDB         int    `json:"redis_db"`

	// Graph settings
	FalkorAddr     string `json:"falkor_addr"`
	FalkorPassword string `json:"-"`
	GraphName      string `json:"graph_name"`
	GraphEnabled   bool   `json:"graph_enabled"`

	// Vector / artist store settings
	PostgresDSN   string `json:"-"`
	EmbeddingDims int    `json:"embedding_dims"`
	MaxConns      int    `json:"max_conns"`

	// Offline catalog (.yaml/.yml or a SQLite file)
	CatalogPath string `json:"catalog_path"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.inkmatch), or INKMATCH_DATA_DIR.
func DataDir() string {
	if dir := os.Getenv(envPrefix + "DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".inkmatch")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerHost:      "127.0.0.1",
		WorkerPort:      DefaultWorkerPort,
		LogLevel:        "info",
		RateLimit:       20,
		RateBurst:       40,
		Weights:         models.DefaultWeights(),
		VarietyMode:     "hash",
		MatchDeadlineMs: 500,
		DefaultLimit:    10,
		MaxLimit:        50,
		CacheBackend:    CacheMemory,
		CacheTTLSeconds: 300,
		GraphName:       "inkmatch",
		GraphEnabled:    true,
		EmbeddingDims:   DefaultEmbeddingDims,
		MaxConns:        8,
	}
}

// MatchDeadline returns the fetch phase limit.
func (c *Config) MatchDeadline() time.Duration {
	return time.Duration(c.MatchDeadlineMs) * time.Millisecond
}

// CacheTTL returns the result cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load loads configuration from the settings file, merging with defaults,
// then applies INKMATCH_* environment overrides.
func Load() (*Config, error) {
	return LoadFrom(SettingsPath())
}

// LoadFrom is Load for an explicit settings file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var settings map[string]interface{}
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
		if err := cfg.apply(settings); err != nil {
			return nil, fmt.Errorf("settings %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := cfg.applyEnv(os.Environ()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply maps INKMATCH_* settings keys onto cfg.
func (c *Config) apply(settings map[string]interface{}) error {
	for key, raw := range settings {
		if !strings.HasPrefix(key, envPrefix) {
			continue
		}
		name := strings.TrimPrefix(key, envPrefix)
		if name == "WEIGHTS" {
			w, err := weightsFromAny(raw)
			if err != nil {
				return err
			}
			c.Weights = w
			continue
		}
		if err := c.set(name, fmt.Sprint(raw)); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// applyEnv applies INKMATCH_* variables from environ (KEY=VALUE pairs).
func (c *Config) applyEnv(environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) || value == "" {
			continue
		}
		name := strings.TrimPrefix(key, envPrefix)
		if name == "WEIGHTS" {
			w, err := ParseWeights(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			c.Weights = w
			continue
		}
		if err := c.set(name, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// set assigns one scalar setting. Unknown names are ignored.
func (c *Config) set(name, value string) error {
	var err error
	switch name {
	case "WORKER_HOST":
		c.WorkerHost = value
	case "WORKER_PORT":
		c.WorkerPort, err = positiveInt(value)
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	case "RATE_LIMIT":
		c.RateLimit, err = strconv.ParseFloat(value, 64)
	case "RATE_BURST":
		c.RateBurst, err = positiveInt(value)
	case "VARIETY_MODE":
		c.VarietyMode = strings.ToLower(value)
		if c.VarietyMode != "hash" && c.VarietyMode != "random" {
			err = fmt.Errorf("unknown variety mode %q", value)
		}
	case "MATCH_DEADLINE_MS":
		c.MatchDeadlineMs, err = positiveInt(value)
	case "DEFAULT_LIMIT":
		c.DefaultLimit, err = positiveInt(value)
	case "MAX_LIMIT":
		c.MaxLimit, err = positiveInt(value)
	case "CACHE_BACKEND":
		c.CacheBackend = strings.ToLower(value)
		switch c.CacheBackend {
		case CacheMemory, CacheRedis, CacheNone:
		default:
			err = fmt.Errorf("unknown cache backend %q", value)
		}
	case "CACHE_TTL_SECONDS":
		c.CacheTTLSeconds, err = positiveInt(value)
	case "REDIS_ADDR":
		c.RedisAddr = value
	case "REDIS_PASSWORD":
		c.RedisPassword = value
	case "REDIS_DB":
		c.RedisDB, err = strconv.Atoi(value)
	case "FALKOR_ADDR":
		c.FalkorAddr = value
	case "FALKOR_PASSWORD":
		c.FalkorPassword = value
	case "GRAPH_NAME":
		c.GraphName = value
	case "GRAPH_ENABLED":
		c.GraphEnabled, err = strconv.ParseBool(value)
	case "POSTGRES_DSN":
		c.PostgresDSN = value
	case "EMBEDDING_DIMS":
		c.EmbeddingDims, err = positiveInt(value)
	case "MAX_CONNS":
		c.MaxConns, err = positiveInt(value)
	case "CATALOG_PATH":
		c.CatalogPath = value
	}
	return err
}

func positiveInt(s string) (int, error) {
	// JSON numbers arrive as float64 and print without a fraction when whole.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("expected a positive integer, got %s", s)
	}
	return int(f), nil
}

// ParseWeights parses "name=0.4,name=0.25" into a weight table.
func ParseWeights(s string) (models.Weights, error) {
	w := models.Weights{}
	for _, part := range splitTrim(s) {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("weight %q: expected name=value", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", part, err)
		}
		if f < 0 {
			return nil, fmt.Errorf("weight %q: must not be negative", part)
		}
		w[strings.TrimSpace(name)] = f
	}
	if len(w) == 0 {
		return nil, fmt.Errorf("empty weight table")
	}
	return w, nil
}

func weightsFromAny(raw interface{}) (models.Weights, error) {
	switch v := raw.(type) {
	case string:
		return ParseWeights(v)
	case map[string]interface{}:
		w := models.Weights{}
		for name, val := range v {
			f, ok := val.(float64)
			if !ok || f < 0 {
				return nil, fmt.Errorf("weight %s: expected a non-negative number", name)
			}
			w[name] = f
		}
		if len(w) == 0 {
			return nil, fmt.Errorf("empty weight table")
		}
		return w, nil
	}
	return nil, fmt.Errorf("weights: unsupported type %T", raw)
}

// splitTrim splits a comma-separated string and trims whitespace.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		configMu.Lock()
		globalConfig = cfg
		configMu.Unlock()
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Reload re-reads the settings file and replaces the global configuration.
// On error the previous configuration stays in effect.
func Reload() (*Config, error) {
	Get()
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return cfg, nil
}
