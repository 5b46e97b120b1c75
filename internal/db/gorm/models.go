// Package gorm provides GORM-based PostgreSQL storage for artist profiles and embeddings.
package gorm

import (
	"time"

	"github.com/lib/pq"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/thebtf/inkmatch/pkg/models"
)

// ArtistRecord is the GORM model for the artists table.
// Field order optimized for memory alignment (fieldalignment).
type ArtistRecord struct {
	UpdatedAt  time.Time
	Latitude   *float64
	Longitude  *float64
	Embedding  *pgvec.Vector  `gorm:"-:migration"` // column added by migration with the configured dimension
	ID         string         `gorm:"primaryKey"`
	Name       string         `gorm:"not null"`
	City       string         `gorm:"index:idx_artists_city"`
	Contact    string         `gorm:"type:text"`
	Styles     pq.StringArray `gorm:"type:text[]"`
	Tags       pq.StringArray `gorm:"type:text[]"`
	Portfolio  pq.StringArray `gorm:"type:text[]"`
	HourlyRate float64        `gorm:"not null;default:0"`
	Available  bool           `gorm:"not null;default:true"`
}

func (ArtistRecord) TableName() string { return "artists" }

// ToModel converts the record into the canonical artist profile.
func (r *ArtistRecord) ToModel() models.Artist {
	return models.Artist{
		ID:         r.ID,
		Name:       r.Name,
		City:       r.City,
		Contact:    r.Contact,
		Styles:     []string(r.Styles),
		Tags:       []string(r.Tags),
		Portfolio:  []string(r.Portfolio),
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		HourlyRate: r.HourlyRate,
		Available:  r.Available,
	}
}

// NewArtistRecord builds a record from a profile and an optional embedding.
func NewArtistRecord(a models.Artist, embedding []float32) ArtistRecord {
	rec := ArtistRecord{
		ID:         a.ID,
		Name:       a.Name,
		City:       a.City,
		Contact:    a.Contact,
		Styles:     pq.StringArray(a.Styles),
		Tags:       pq.StringArray(a.Tags),
		Portfolio:  pq.StringArray(a.Portfolio),
		Latitude:   a.Latitude,
		Longitude:  a.Longitude,
		HourlyRate: a.HourlyRate,
		Available:  a.Available,
	}
	if len(embedding) > 0 {
		v := pgvec.NewVector(embedding)
		rec.Embedding = &v
	}
	return rec
}
