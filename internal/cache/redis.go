package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/inkmatch/pkg/models"
)

// defaultKeyPrefix namespaces match cache keys in a shared Redis.
const defaultKeyPrefix = "inkmatch:match:"

const scanBatch = 100

// connSource hands out Redis connections. *redis.Pool satisfies it.
type connSource interface {
	GetContext(ctx context.Context) (redis.Conn, error)
}

// RedisConfig configures the Redis-backed cache.
type RedisConfig struct {
	Addr      string        // host:port
	Password  string        // optional AUTH password
	KeyPrefix string        // default "inkmatch:match:"
	TTL       time.Duration // default DefaultTTL
	MaxIdle   int           // default 4
	DB        int
}

// Redis shares cached match responses across worker processes.
// Errors are logged and treated as cache misses.
type Redis struct {
	pool   connSource
	closer func() error
	prefix string
	ttl    time.Duration
}

// NewPool builds a redigo pool for the given address.
func NewPool(addr, password string, db, maxIdle int) *redis.Pool {
	if maxIdle <= 0 {
		maxIdle = 4
	}
	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			opts := []redis.DialOption{
				redis.DialDatabase(db),
				redis.DialConnectTimeout(2 * time.Second),
			}
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			return redis.DialContext(ctx, "tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewRedis creates a Redis cache with its own connection pool.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	pool := NewPool(cfg.Addr, cfg.Password, cfg.DB, cfg.MaxIdle)
	r := newRedis(pool, cfg.KeyPrefix, cfg.TTL)
	r.closer = pool.Close
	return r, nil
}

func newRedis(pool connSource, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{pool: pool, prefix: prefix, ttl: ttl}
}

// Get fetches and decodes a cached response.
func (r *Redis) Get(ctx context.Context, key string) (*models.MatchResponse, bool) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Redis cache: get connection failed")
		return nil, false
	}
	defer conn.Close()

	data, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", r.prefix+key))
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			log.Warn().Err(err).Str("key", key).Msg("Redis cache: GET failed")
		}
		return nil, false
	}

	resp, err := decodeResponse(data)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache: corrupt entry")
		return nil, false
	}
	return resp, true
}

// Set encodes and stores a response with the configured TTL. Redis expires
// entries itself, so no purge pass is needed.
func (r *Redis) Set(ctx context.Context, key string, resp *models.MatchResponse) {
	data, err := encodeResponse(resp)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache: encode failed")
		return
	}

	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Redis cache: get connection failed")
		return
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "SET", r.prefix+key, data, "PX", r.ttl.Milliseconds()); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache: SET failed")
	}
}

// Evict deletes a key.
func (r *Redis) Evict(ctx context.Context, key string) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Redis cache: get connection failed")
		return
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "DEL", r.prefix+key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache: DEL failed")
	}
}

// Flush deletes every key under the cache prefix using SCAN, so other data in
// a shared Redis is left alone.
func (r *Redis) Flush(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis flush: %w", err)
	}
	defer conn.Close()

	cursor := "0"
	for {
		reply, err := redis.Values(redis.DoContext(conn, ctx, "SCAN", cursor, "MATCH", r.prefix+"*", "COUNT", scanBatch))
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(reply) != 2 {
			return fmt.Errorf("redis scan: unexpected reply of %d elements", len(reply))
		}
		if cursor, err = redis.String(reply[0], nil); err != nil {
			return fmt.Errorf("redis scan cursor: %w", err)
		}
		keys, err := redis.Strings(reply[1], nil)
		if err != nil {
			return fmt.Errorf("redis scan keys: %w", err)
		}
		if len(keys) > 0 {
			args := make([]interface{}, len(keys))
			for i, k := range keys {
				args[i] = k
			}
			if _, err := redis.DoContext(conn, ctx, "DEL", args...); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if cursor == "0" {
			return nil
		}
	}
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// cachedResponse keeps visual similarity, which Candidate hides from JSON.
type cachedResponse struct {
	Visual   map[string]float64    `json:"visual,omitempty"`
	Response *models.MatchResponse `json:"response"`
}

func encodeResponse(resp *models.MatchResponse) ([]byte, error) {
	c := cachedResponse{Response: resp}
	for _, m := range resp.Matches {
		if m.VisualSimilarity != nil {
			if c.Visual == nil {
				c.Visual = make(map[string]float64)
			}
			c.Visual[m.ID] = *m.VisualSimilarity
		}
	}
	return json.Marshal(c)
}

func decodeResponse(data []byte) (*models.MatchResponse, error) {
	var c cachedResponse
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Response == nil {
		return nil, fmt.Errorf("missing response")
	}
	for i := range c.Response.Matches {
		if v, ok := c.Visual[c.Response.Matches[i].ID]; ok {
			v := v
			c.Response.Matches[i].VisualSimilarity = &v
		}
	}
	return c.Response, nil
}
