package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/inkmatch/internal/cache"
	"github.com/thebtf/inkmatch/internal/search"
	"github.com/thebtf/inkmatch/internal/vector"
	"github.com/thebtf/inkmatch/pkg/models"
)

// matchRequest is the body of POST /api/matches.
type matchRequest struct {
	Latitude    *float64  `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64  `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Query       string    `json:"query" validate:"max=500"`
	BodyPart    string    `json:"body_part" validate:"max=64"`
	Location    string    `json:"location" validate:"max=128"`
	Styles      []string  `json:"styles" validate:"max=20,dive,required,max=64"`
	Keywords    []string  `json:"keywords" validate:"max=50,dive,required,max=64"`
	Embedding   []float32 `json:"embedding" validate:"max=4096"`
	Budget      float64   `json:"budget" validate:"gte=0"`
	RadiusMiles float64   `json:"radius_miles" validate:"gte=0,lte=1000"`
	Limit       int       `json:"limit" validate:"gte=0"`
}

func (r *matchRequest) queryContext() models.QueryContext {
	return models.QueryContext{
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Query:       r.Query,
		BodyPart:    r.BodyPart,
		Location:    r.Location,
		Keywords:    r.Keywords,
		Styles:      r.Styles,
		Budget:      r.Budget,
		RadiusMiles: r.RadiusMiles,
	}
}

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: w.Header().Get("X-Request-ID")})
}

// handleMatches runs a hybrid match for the request body.
func (s *Service) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		writeError(w, http.StatusBadRequest, "validation error: latitude and longitude must be set together")
		return
	}

	resp, err := s.manager.GetHybridMatches(r.Context(), req.queryContext(), models.MatchOptions{
		Embedding: req.Embedding,
		Limit:     req.Limit,
	})
	if err != nil {
		status := matchErrorStatus(err)
		log.Warn().
			Err(err).
			Str("request_id", GetRequestID(r.Context())).
			Int("status", status).
			Msg("Match request failed")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// matchErrorStatus maps Manager errors onto HTTP statuses.
func matchErrorStatus(err error) int {
	switch {
	case errors.Is(err, search.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, vector.ErrInvalidDimension):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrFallbackFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads this.
		return 499
	}
	return http.StatusInternalServerError
}

// validationMessage lists every failing field as "field: tag".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "validation error: invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "validation error: " + strings.Join(parts, ", ")
}

// handleHealth reports liveness and the effective matching limits.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"version":       s.version,
		"deadline_ms":   s.manager.Deadline().Milliseconds(),
		"graph_enabled": s.config.GraphEnabled,
	})
}

// handleStats returns match metrics, the active weights and limiter state.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"uptime":         time.Since(s.startTime).String(),
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"matches":        s.manager.Metrics().GetStats(),
		"weights":        s.manager.Calculator().Weights(),
	}
	if s.limiter != nil {
		response["rate_limit"] = s.limiter.Stats()
	}
	writeJSON(w, http.StatusOK, response)
}

// handleClearCache drops every cached match response.
func (s *Service) handleClearCache(w http.ResponseWriter, r *http.Request) {
	flusher, ok := s.manager.Cache().(cache.Flusher)
	if !ok {
		writeError(w, http.StatusNotImplemented, "cache backend cannot be cleared")
		return
	}
	if err := flusher.Flush(r.Context()); err != nil {
		log.Error().Err(err).Msg("Cache flush failed")
		writeError(w, http.StatusBadGateway, "cache flush failed")
		return
	}
	log.Info().Str("request_id", GetRequestID(r.Context())).Msg("Match cache cleared")
	w.WriteHeader(http.StatusNoContent)
}
