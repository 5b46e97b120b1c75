package worker

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	lastUpdate time.Time
	now        func() time.Time
	rate       float64
	burst      int
	tokens     float64
	requests   int64
	rejected   int64
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter.
// rate is the number of requests per second to allow.
// burst is the maximum burst of requests to allow.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return newRateLimiter(rate, burst, time.Now)
}

func newRateLimiter(rate float64, burst int, now func() time.Time) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		now:        now,
		lastUpdate: now(),
	}
}

// Allow checks if a request should be allowed.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.requests++

	now := rl.now()
	rl.tokens += now.Sub(rl.lastUpdate).Seconds() * rl.rate
	if rl.tokens > float64(rl.burst) {
		rl.tokens = float64(rl.burst)
	}
	rl.lastUpdate = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	rl.rejected++
	return false
}

func (rl *RateLimiter) idleSince(now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return now.Sub(rl.lastUpdate)
}

// PerClientRateLimiter keeps one token bucket per client key.
type PerClientRateLimiter struct {
	lastCleanup     time.Time
	now             func() time.Time
	clients         map[string]*RateLimiter
	rate            float64
	burst           int
	cleanupInterval time.Duration
	maxIdleTime     time.Duration
	mu              sync.Mutex
}

// NewPerClientRateLimiter creates a new per-client rate limiter.
func NewPerClientRateLimiter(rate float64, burst int) *PerClientRateLimiter {
	return newPerClientRateLimiter(rate, burst, time.Now)
}

func newPerClientRateLimiter(rate float64, burst int, now func() time.Time) *PerClientRateLimiter {
	return &PerClientRateLimiter{
		rate:            rate,
		burst:           burst,
		now:             now,
		clients:         make(map[string]*RateLimiter),
		cleanupInterval: 5 * time.Minute,
		maxIdleTime:     10 * time.Minute,
		lastCleanup:     now(),
	}
}

func (pcrl *PerClientRateLimiter) getLimiter(key string) *RateLimiter {
	pcrl.mu.Lock()
	defer pcrl.mu.Unlock()

	if pcrl.now().Sub(pcrl.lastCleanup) > pcrl.cleanupInterval {
		pcrl.cleanupLocked()
	}

	limiter, exists := pcrl.clients[key]
	if !exists {
		limiter = newRateLimiter(pcrl.rate, pcrl.burst, pcrl.now)
		pcrl.clients[key] = limiter
	}
	return limiter
}

// cleanupLocked removes idle limiters. Caller holds pcrl.mu.
func (pcrl *PerClientRateLimiter) cleanupLocked() {
	now := pcrl.now()
	for key, limiter := range pcrl.clients {
		if limiter.idleSince(now) > pcrl.maxIdleTime {
			delete(pcrl.clients, key)
		}
	}
	pcrl.lastCleanup = now
}

// Allow checks if a request from the given client should be allowed.
func (pcrl *PerClientRateLimiter) Allow(clientKey string) bool {
	return pcrl.getLimiter(clientKey).Allow()
}

// Stats returns aggregate statistics.
func (pcrl *PerClientRateLimiter) Stats() map[string]any {
	pcrl.mu.Lock()
	rate := pcrl.rate
	burst := pcrl.burst
	limiters := make([]*RateLimiter, 0, len(pcrl.clients))
	for _, limiter := range pcrl.clients {
		limiters = append(limiters, limiter)
	}
	pcrl.mu.Unlock()

	var totalRequests, totalRejected int64
	for _, limiter := range limiters {
		limiter.mu.Lock()
		totalRequests += limiter.requests
		totalRejected += limiter.rejected
		limiter.mu.Unlock()
	}

	return map[string]any{
		"rate":           rate,
		"burst":          burst,
		"active_clients": len(limiters),
		"total_requests": totalRequests,
		"total_rejected": totalRejected,
	}
}

// PerClientRateLimitMiddleware applies per-client rate limiting keyed on
// RemoteAddr, which chi's RealIP middleware rewrites from proxy headers.
func PerClientRateLimitMiddleware(limiter *PerClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r.RemoteAddr)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey drops the port so one client maps to one bucket.
func clientKey(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
