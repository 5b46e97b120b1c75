// Package pgvector provides PostgreSQL+pgvector based visual similarity search for inkmatch.
package pgvector

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/thebtf/inkmatch/internal/vector"
)

// Config holds configuration for the pgvector client.
type Config struct {
	DB   *gorm.DB // PostgreSQL GORM connection (required)
	Dims int      // Embedding dimension of the artists.embedding column (required)
}

// Client provides vector similarity search over the artists table.
type Client struct {
	db   *gorm.DB
	dims int
}

// similarityRow is one row of the cosine distance query.
type similarityRow struct {
	Latitude   *float64
	Longitude  *float64
	ID         string
	Name       string
	City       string
	Contact    string
	Styles     pq.StringArray
	Tags       pq.StringArray
	Portfolio  pq.StringArray
	HourlyRate float64
	Distance   float64
	Available  bool
}

const similarityQuery = `
	SELECT id, name, city, contact, styles, tags, portfolio,
	       latitude, longitude, hourly_rate, available,
	       embedding <=> ? AS distance
	FROM artists
	WHERE embedding IS NOT NULL
	ORDER BY distance
	LIMIT ?`

// NewClient creates a new pgvector client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("DB is required")
	}
	if cfg.Dims <= 0 {
		return nil, fmt.Errorf("Dims must be positive")
	}
	return &Client{db: cfg.DB, dims: cfg.Dims}, nil
}

// SearchSimilar performs a cosine distance search and returns the topK
// closest artists with their profile fields as metadata.
func (c *Client) SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]vector.Hit, error) {
	if len(embedding) != c.dims {
		return nil, vector.DimensionError(len(embedding), c.dims)
	}
	if topK <= 0 {
		topK = 10
	}

	var rows []similarityRow
	err := c.db.WithContext(ctx).
		Raw(similarityQuery, pgvec.NewVector(embedding), topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query similar artists: %w", err)
	}

	hits := make([]vector.Hit, len(rows))
	for i := range rows {
		hits[i] = rows[i].toHit()
	}
	return hits, nil
}

func (r *similarityRow) toHit() vector.Hit {
	meta := map[string]any{
		"name":        r.Name,
		"city":        r.City,
		"contact":     r.Contact,
		"styles":      []string(r.Styles),
		"tags":        []string(r.Tags),
		"portfolio":   []string(r.Portfolio),
		"hourly_rate": r.HourlyRate,
		"available":   r.Available,
	}
	if r.Latitude != nil && r.Longitude != nil {
		meta["latitude"] = *r.Latitude
		meta["longitude"] = *r.Longitude
	}
	return vector.Hit{
		ID:       r.ID,
		Score:    vector.DistanceToSimilarity(r.Distance),
		Metadata: meta,
	}
}
