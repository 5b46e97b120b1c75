package pgvector

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thebtf/inkmatch/internal/vector"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Dims: 3})
	assert.Error(t, err)

	_, err = NewClient(Config{DB: &gorm.DB{}, Dims: 0})
	assert.Error(t, err)
}

func TestSearchSimilar_InvalidDimension(t *testing.T) {
	c, err := NewClient(Config{DB: &gorm.DB{}, Dims: 4})
	require.NoError(t, err)

	_, err = c.SearchSimilar(context.Background(), []float32{1, 2, 3}, 5)
	assert.ErrorIs(t, err, vector.ErrInvalidDimension)
}

func TestSimilarityRow_ToHit(t *testing.T) {
	lat, lng := 30.1, -97.2
	row := similarityRow{
		ID:         "a9",
		Name:       "Rae",
		City:       "Austin",
		Styles:     pq.StringArray{"Anime"},
		Tags:       pq.StringArray{"koi"},
		Portfolio:  pq.StringArray{"p1.jpg"},
		HourlyRate: 120,
		Available:  true,
		Latitude:   &lat,
		Longitude:  &lng,
		Distance:   0.4,
	}

	hit := row.toHit()

	assert.Equal(t, "a9", hit.ID)
	assert.InDelta(t, 0.8, hit.Score, 1e-9)
	assert.Equal(t, "Rae", hit.Metadata["name"])
	assert.Equal(t, []string{"Anime"}, hit.Metadata["styles"])
	assert.Equal(t, 120.0, hit.Metadata["hourly_rate"])
	assert.Equal(t, 30.1, hit.Metadata["latitude"])
}

func TestSimilarityRow_ToHit_NoCoordinates(t *testing.T) {
	hit := (&similarityRow{ID: "x", Distance: 2}).toHit()
	assert.Equal(t, 0.0, hit.Score)
	_, ok := hit.Metadata["latitude"]
	assert.False(t, ok)
}
