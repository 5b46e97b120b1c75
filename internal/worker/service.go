// Package worker provides the HTTP worker service for inkmatch.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/inkmatch/internal/config"
	"github.com/thebtf/inkmatch/internal/search"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout bounds a whole request, well above the match deadline.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRequestBodyBytes caps match request bodies. Query embeddings make
	// up most of the payload.
	MaxRequestBodyBytes = 1 << 20
)

// Service is the HTTP front of the matching engine.
type Service struct {
	startTime time.Time
	config    *config.Config
	manager   *search.Manager
	limiter   *PerClientRateLimiter
	validate  *validator.Validate
	router    *chi.Mux
	server    *http.Server
	listener  net.Listener
	version   string
	wg        sync.WaitGroup
}

// NewService builds the router around a configured Manager. A zero
// RateLimit in cfg disables rate limiting.
func NewService(version string, cfg *config.Config, manager *search.Manager) *Service {
	svc := &Service{
		version:   version,
		config:    cfg,
		manager:   manager,
		validate:  validator.New(),
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	if cfg.RateLimit > 0 {
		svc.limiter = NewPerClientRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}

func (s *Service) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(SecurityHeaders)
}

func (s *Service) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Delete("/api/cache", s.handleClearCache)

	s.router.Group(func(r chi.Router) {
		r.Use(MaxBodySize(MaxRequestBodyBytes))
		if s.limiter != nil {
			r.Use(PerClientRateLimitMiddleware(s.limiter))
		}
		r.Post("/api/matches", s.handleMatches)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Start binds the configured address and serves in the background. Bind
// errors are returned directly.
func (s *Service) Start() error {
	addr := net.JoinHostPort(s.config.WorkerHost, strconv.Itoa(s.config.WorkerPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Str("version", s.version).Msg("Worker HTTP server started")
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Service) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		if err = s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}
	s.wg.Wait()

	log.Info().Msg("Worker service shutdown complete")
	return err
}

// requestLogger logs one line per request with the request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", GetRequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	})
}
