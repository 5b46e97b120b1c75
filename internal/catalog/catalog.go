// Package catalog provides the local artist catalog used when the graph and
// vector sources return nothing.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/inkmatch/pkg/models"
)

// Catalog lists locally known artists.
type Catalog interface {
	ListArtists(ctx context.Context) ([]models.Artist, error)
}

// Static is an immutable in-memory catalog.
type Static struct {
	artists []models.Artist
}

// NewStatic returns a catalog over a copy of artists.
func NewStatic(artists []models.Artist) *Static {
	cp := make([]models.Artist, len(artists))
	copy(cp, artists)
	return &Static{artists: cp}
}

// ListArtists returns a copy of the catalog contents.
func (s *Static) ListArtists(ctx context.Context) ([]models.Artist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Artist, len(s.artists))
	copy(out, s.artists)
	return out, nil
}

// file is the on-disk YAML layout.
type file struct {
	Artists []models.Artist `yaml:"artists"`
}

// LoadYAML reads a catalog file of the form:
//
//	artists:
//	  - id: a1
//	    name: Mika Tanaka
//	    styles: [Anime]
func LoadYAML(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes catalog YAML. Entries without an id are rejected and
// duplicate ids keep the last entry.
func ParseYAML(data []byte) (*Static, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	byID := make(map[string]models.Artist, len(f.Artists))
	for i, a := range f.Artists {
		if a.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		byID[a.ID] = a
	}

	artists := make([]models.Artist, 0, len(byID))
	for _, a := range byID {
		artists = append(artists, a)
	}
	sort.Slice(artists, func(i, j int) bool { return artists[i].ID < artists[j].ID })
	return &Static{artists: artists}, nil
}
