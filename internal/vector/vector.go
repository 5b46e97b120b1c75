// Package vector defines the visual-similarity search contract for inkmatch.
package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDimension is returned when a query embedding does not match the
// index dimension. It signals a caller bug and is never degraded.
var ErrInvalidDimension = errors.New("invalid embedding dimension")

// Hit is one similarity search result.
type Hit struct {
	Metadata map[string]any
	ID       string
	Score    float64 // 1.0 = identical, 0.0 = opposite
}

// Source searches a vector index for artists visually similar to an embedding.
type Source interface {
	SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
}

// DimensionError builds an ErrInvalidDimension with both sizes.
func DimensionError(got, want int) error {
	return fmt.Errorf("%w: got %d, want %d", ErrInvalidDimension, got, want)
}

// DistanceToSimilarity converts cosine distance to a similarity score.
// Cosine distance: 0 = identical, 2 = opposite
// Similarity: 1.0 = identical, 0.0 = opposite
func DistanceToSimilarity(distance float64) float64 {
	s := 1.0 - (distance / 2.0)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
