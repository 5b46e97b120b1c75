// Package models contains domain models for inkmatch.
package models

import (
	"database/sql/driver"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// Source identifies which upstream produced a candidate.
type Source string

const (
	// SourceVector marks candidates returned by the vector-similarity search.
	SourceVector Source = "vector"
	// SourceGraph marks candidates returned by the graph/keyword search.
	SourceGraph Source = "graph"
	// SourceHybrid marks candidates returned by both searches.
	SourceHybrid Source = "hybrid"
	// SourceLocal marks candidates served by the offline catalog.
	SourceLocal Source = "local"
)

// Artist is the canonical artist profile. Records from every source are
// normalized into this shape before scoring.
type Artist struct {
	Latitude   *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	City       string   `json:"city,omitempty" yaml:"city,omitempty"`
	Contact    string   `json:"contact,omitempty" yaml:"contact,omitempty"`
	Styles     []string `json:"styles,omitempty" yaml:"styles,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Portfolio  []string `json:"portfolio,omitempty" yaml:"portfolio,omitempty"`
	HourlyRate float64  `json:"hourly_rate,omitempty" yaml:"hourly_rate,omitempty"`
	Available  bool     `json:"available" yaml:"available"`
}

// HasCoordinates reports whether the artist has a precise location.
func (a *Artist) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Clone returns a deep copy of the artist.
func (a Artist) Clone() Artist {
	a.Latitude = cloneFloat(a.Latitude)
	a.Longitude = cloneFloat(a.Longitude)
	a.Styles = slices.Clone(a.Styles)
	a.Tags = slices.Clone(a.Tags)
	a.Portfolio = slices.Clone(a.Portfolio)
	return a
}

// HasProfile reports whether the record carries enough data to be shown.
// Vector hits frequently arrive with only an id.
func (a *Artist) HasProfile() bool {
	return a.Name != ""
}

// Candidate is an artist under consideration for one match request.
// Field order optimized for memory alignment (fieldalignment).
type Candidate struct {
	VisualSimilarity *float64 `json:"-"`
	Signals          Signals  `json:"signals"`
	Source           Source   `json:"source"`
	Relationship     string   `json:"relationship,omitempty"`
	Reasoning        []string `json:"reasoning"`
	Artist
	Score        float64 `json:"score"`
	FusionScore  float64 `json:"fusion_score"`
	GraphScore   float64 `json:"graph_score,omitempty"`
	VectorRank   int     `json:"vector_rank"`
	GraphRank    int     `json:"graph_rank"`
	DisplayScore int     `json:"display_score"`
}

// NewCandidate wraps an artist with empty ranks.
func NewCandidate(a Artist, src Source) Candidate {
	return Candidate{
		Artist:     a,
		Source:     src,
		VectorRank: -1,
		GraphRank:  -1,
	}
}

// Clone returns a deep copy of the candidate. Nil fields stay nil.
func (c Candidate) Clone() Candidate {
	c.Artist = c.Artist.Clone()
	c.VisualSimilarity = cloneFloat(c.VisualSimilarity)
	if c.Signals != nil {
		c.Signals = c.Signals.Clone()
	}
	c.Reasoning = slices.Clone(c.Reasoning)
	return c
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringArray is a JSON encoded string list column for SQLite rows.
type StringArray []string

// Scan implements sql.Scanner for StringArray.
func (s *StringArray) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("StringArray: unsupported type %T", src)
	}

	if len(data) == 0 {
		*s = nil
		return nil
	}

	return json.Unmarshal(data, s)
}

// Value implements driver.Valuer for StringArray.
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
