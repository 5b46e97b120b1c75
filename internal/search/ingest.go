package search

import (
	"github.com/thebtf/inkmatch/internal/graph"
	"github.com/thebtf/inkmatch/internal/scoring"
	"github.com/thebtf/inkmatch/internal/vector"
	"github.com/thebtf/inkmatch/pkg/models"
)

// graphList normalizes graph records into a ranked candidate list.
func graphList(records []graph.Record) RankedList {
	list := RankedList{Source: models.SourceGraph, Candidates: make([]models.Candidate, 0, len(records))}
	for rank, rec := range records {
		c := models.NewCandidate(rec.Artist, models.SourceGraph)
		c.GraphRank = rank
		c.GraphScore = scoring.Clamp01(rec.GraphScore)
		c.Relationship = rec.Relationship
		list.Candidates = append(list.Candidates, c)
	}
	return list
}

// vectorList normalizes similarity hits into a ranked candidate list.
func vectorList(hits []vector.Hit) RankedList {
	list := RankedList{Source: models.SourceVector, Candidates: make([]models.Candidate, 0, len(hits))}
	for rank, hit := range hits {
		if hit.ID == "" {
			continue
		}
		c := models.NewCandidate(artistFromMetadata(hit.ID, hit.Metadata), models.SourceVector)
		c.VectorRank = rank
		visual := scoring.Clamp01(hit.Score)
		c.VisualSimilarity = &visual
		list.Candidates = append(list.Candidates, c)
	}
	return list
}

// artistFromMetadata reads the profile fields a vector index may carry.
// Missing fields leave the artist without a profile for later hydration.
func artistFromMetadata(id string, meta map[string]any) models.Artist {
	a := models.Artist{ID: id, Available: true}
	if meta == nil {
		return a
	}
	a.Name, _ = meta["name"].(string)
	a.City, _ = meta["city"].(string)
	a.Contact, _ = meta["contact"].(string)
	a.Styles = metaStrings(meta["styles"])
	a.Tags = metaStrings(meta["tags"])
	a.Portfolio = metaStrings(meta["portfolio"])
	a.HourlyRate = metaFloat(meta["hourly_rate"])
	if v, ok := meta["available"].(bool); ok {
		a.Available = v
	}
	if lat, ok := metaFloatOK(meta["latitude"]); ok {
		if lng, ok := metaFloatOK(meta["longitude"]); ok {
			a.Latitude, a.Longitude = &lat, &lng
		}
	}
	return a
}

func metaStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func metaFloat(v any) float64 {
	f, _ := metaFloatOK(v)
	return f
}

func metaFloatOK(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
