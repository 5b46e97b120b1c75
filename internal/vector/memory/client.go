// Package memory provides an in-process vector index for demo mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/thebtf/inkmatch/internal/vector"
)

// Document is an indexed embedding with its metadata.
type Document struct {
	Metadata  map[string]any
	ID        string
	Embedding []float32
}

// Client is a brute-force cosine index.
type Client struct {
	docs map[string]Document
	dims int
	mu   sync.RWMutex
}

// NewClient creates an empty index for embeddings of the given dimension.
func NewClient(dims int) *Client {
	return &Client{docs: make(map[string]Document), dims: dims}
}

// Add indexes documents, replacing existing ids.
func (c *Client) Add(docs ...Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range docs {
		if len(d.Embedding) != c.dims {
			return vector.DimensionError(len(d.Embedding), c.dims)
		}
		c.docs[d.ID] = d
	}
	return nil
}

// Count returns the number of indexed documents.
func (c *Client) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// SearchSimilar returns the topK most similar documents, best first.
func (c *Client) SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]vector.Hit, error) {
	if len(embedding) != c.dims {
		return nil, vector.DimensionError(len(embedding), c.dims)
	}
	if topK <= 0 {
		topK = 10
	}

	c.mu.RLock()
	hits := make([]vector.Hit, 0, len(c.docs))
	for _, d := range c.docs {
		cos := vector.CosineSimilarity(embedding, d.Embedding)
		hits = append(hits, vector.Hit{
			ID:       d.ID,
			Score:    vector.DistanceToSimilarity(1 - cos),
			Metadata: d.Metadata,
		})
	}
	c.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
