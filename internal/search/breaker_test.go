package search

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/inkmatch/internal/graph"
	"github.com/thebtf/inkmatch/internal/vector"
	"github.com/thebtf/inkmatch/pkg/models"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, FailureThreshold: 2}
}

func TestBreakerVector_OpensAfterFailures(t *testing.T) {
	inner := &fakeVector{err: errors.New("connection reset")}
	b := NewBreakerVector(inner, testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.SearchSimilar(ctx, []float32{1}, 5)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.SearchSimilar(ctx, []float32{1}, 5)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), inner.calls)
}

func TestBreakerVector_DimensionErrorsDoNotTrip(t *testing.T) {
	inner := &fakeVector{dims: 3}
	b := NewBreakerVector(inner, testBreakerConfig())

	for i := 0; i < 5; i++ {
		_, err := b.SearchSimilar(context.Background(), []float32{1}, 5)
		assert.ErrorIs(t, err, vector.ErrInvalidDimension)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerGraph_PassesThrough(t *testing.T) {
	inner := &fakeGraph{records: nil}
	b := NewBreakerGraph(inner, DefaultBreakerConfig())

	recs, err := b.FindArtists(context.Background(), graph.Preferences{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = b.GetArtistsByIDs(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerGraph_OpenCircuitDegradesManager(t *testing.T) {
	inner := &fakeGraph{err: errors.New("graph down")}
	guarded := NewBreakerGraph(inner, testBreakerConfig())
	m := NewManager(DefaultConfig(), Sources{Graph: guarded})

	for i := 0; i < 3; i++ {
		resp, err := m.GetHybridMatches(context.Background(), austinQuery(), models.MatchOptions{})
		require.NoError(t, err)
		assert.Empty(t, resp.Matches)
	}
	assert.Equal(t, gobreaker.StateOpen, guarded.State())
	assert.Equal(t, int32(2), inner.finds)
	assert.Equal(t, int64(3), m.Metrics().GetStats()["source_errors"])
}
