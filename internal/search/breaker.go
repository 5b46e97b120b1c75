package search

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/thebtf/inkmatch/internal/graph"
	"github.com/thebtf/inkmatch/internal/vector"
	"github.com/thebtf/inkmatch/pkg/models"
)

// BreakerConfig tunes the source circuit breakers.
type BreakerConfig struct {
	MaxRequests      uint32        // Probes allowed while half-open
	Interval         time.Duration // Closed-state counter reset period
	Timeout          time.Duration // Open duration before half-open
	FailureThreshold uint32        // Consecutive failures that open the circuit
}

// DefaultBreakerConfig returns breaker settings suited to sub-second sources.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
	}
}

func (c BreakerConfig) settings(name string) gobreaker.Settings {
	threshold := c.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: c.MaxRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Caller bugs and caller cancellations say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, vector.ErrInvalidDimension) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Source circuit breaker state changed")
		},
	}
}

// BreakerGraph guards a GraphSource with circuit breakers.
type BreakerGraph struct {
	next  GraphSource
	find  *gobreaker.CircuitBreaker[[]graph.Record]
	byIDs *gobreaker.CircuitBreaker[[]models.Artist]
}

// NewBreakerGraph wraps next.
func NewBreakerGraph(next GraphSource, cfg BreakerConfig) *BreakerGraph {
	return &BreakerGraph{
		next:  next,
		find:  gobreaker.NewCircuitBreaker[[]graph.Record](cfg.settings("graph.find")),
		byIDs: gobreaker.NewCircuitBreaker[[]models.Artist](cfg.settings("graph.by_ids")),
	}
}

// FindArtists implements GraphSource.
func (b *BreakerGraph) FindArtists(ctx context.Context, p graph.Preferences) ([]graph.Record, error) {
	return b.find.Execute(func() ([]graph.Record, error) {
		return b.next.FindArtists(ctx, p)
	})
}

// GetArtistsByIDs implements GraphSource.
func (b *BreakerGraph) GetArtistsByIDs(ctx context.Context, ids []string) ([]models.Artist, error) {
	return b.byIDs.Execute(func() ([]models.Artist, error) {
		return b.next.GetArtistsByIDs(ctx, ids)
	})
}

// State reports the find breaker state.
func (b *BreakerGraph) State() gobreaker.State {
	return b.find.State()
}

// BreakerVector guards a VectorSource with a circuit breaker.
type BreakerVector struct {
	next VectorSource
	cb   *gobreaker.CircuitBreaker[[]vector.Hit]
}

// NewBreakerVector wraps next.
func NewBreakerVector(next VectorSource, cfg BreakerConfig) *BreakerVector {
	return &BreakerVector{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[[]vector.Hit](cfg.settings("vector.search")),
	}
}

// SearchSimilar implements VectorSource.
func (b *BreakerVector) SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]vector.Hit, error) {
	return b.cb.Execute(func() ([]vector.Hit, error) {
		return b.next.SearchSimilar(ctx, embedding, topK)
	})
}

// State reports the breaker state.
func (b *BreakerVector) State() gobreaker.State {
	return b.cb.State()
}
