package search

import (
	"strings"

	"github.com/thebtf/inkmatch/pkg/models"
)

// rrfK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const rrfK = 60

// RankedList is one source's candidates in rank order.
type RankedList struct {
	Source     models.Source
	Candidates []models.Candidate
}

// Merge deduplicates two ranked lists by artist ID. Records found in one list
// keep that list's data and source tag. Records found in both are merged,
// with fields from b overriding or augmenting a, and tagged hybrid. Output
// order is first-seen: a in order, then ids that only b contains.
func Merge(a, b RankedList) []models.Candidate {
	out := make([]models.Candidate, 0, len(a.Candidates)+len(b.Candidates))
	index := make(map[string]int, len(a.Candidates)+len(b.Candidates))

	add := func(list RankedList) {
		for _, c := range list.Candidates {
			if c.ID == "" {
				continue
			}
			if c.Source == "" {
				c.Source = list.Source
			}
			if i, ok := index[c.ID]; ok {
				mergeInto(&out[i], &c)
				continue
			}
			index[c.ID] = len(out)
			out = append(out, c)
		}
	}
	add(a)
	add(b)
	return out
}

// mergeInto folds src into dst.
func mergeInto(dst, src *models.Candidate) {
	if dst.Source != src.Source {
		dst.Source = models.SourceHybrid
	}

	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.City != "" {
		dst.City = src.City
	}
	if src.Contact != "" {
		dst.Contact = src.Contact
	}
	if src.HasCoordinates() {
		dst.Latitude, dst.Longitude = src.Latitude, src.Longitude
	}
	if src.HourlyRate > 0 {
		dst.HourlyRate = src.HourlyRate
	}
	if src.HasProfile() {
		dst.Available = src.Available
	}
	dst.Styles = union(dst.Styles, src.Styles)
	dst.Tags = union(dst.Tags, src.Tags)
	dst.Portfolio = union(dst.Portfolio, src.Portfolio)

	if src.VisualSimilarity != nil {
		dst.VisualSimilarity = src.VisualSimilarity
	}
	if src.GraphScore > 0 {
		dst.GraphScore = src.GraphScore
	}
	if src.Relationship != "" {
		dst.Relationship = src.Relationship
	}
	if src.VectorRank >= 0 {
		dst.VectorRank = src.VectorRank
	}
	if src.GraphRank >= 0 {
		dst.GraphRank = src.GraphRank
	}
}

// union appends values from b not already in a, case-insensitively.
func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			key := strings.ToLower(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// RRF computes Reciprocal Rank Fusion scores keyed by artist ID:
// sum over lists of 1/(k + rank + 1) with rank 0-based.
func RRF(k int, lists ...RankedList) map[string]float64 {
	if k <= 0 {
		k = rrfK
	}
	scores := make(map[string]float64)
	for _, list := range lists {
		seen := make(map[string]struct{}, len(list.Candidates))
		for rank, c := range list.Candidates {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			scores[c.ID] += 1.0 / float64(k+rank+1)
		}
	}
	return scores
}
