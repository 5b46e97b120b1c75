package models

// Signal names used in score breakdowns and weight tables.
const (
	SignalVisualSimilarity = "visualSimilarity"
	SignalStyleAlignment   = "styleAlignment"
	SignalLocation         = "location"
	SignalBudget           = "budget"
	SignalRandomVariety    = "randomVariety"
	SignalKeywordMatch     = "keywordMatch"
	SignalGraphRelevance   = "graphRelevance"
)

// Signals maps a signal name to its normalized value in [0,1].
type Signals map[string]float64

// Clone returns a copy of the signal map.
func (s Signals) Clone() Signals {
	out := make(Signals, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Weights maps a signal name to a non-negative weight.
type Weights map[string]float64

// DefaultWeights returns the canonical weight table.
func DefaultWeights() Weights {
	return Weights{
		SignalVisualSimilarity: 0.40,
		SignalStyleAlignment:   0.25,
		SignalLocation:         0.15,
		SignalBudget:           0.10,
		SignalRandomVariety:    0.10,
	}
}

// Clone returns a copy of the weight table.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// QueryContext is the input to one matching request.
type QueryContext struct {
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Query       string   `json:"query,omitempty"`
	BodyPart    string   `json:"body_part,omitempty"`
	Location    string   `json:"location,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Styles      []string `json:"styles,omitempty"`
	Budget      float64  `json:"budget,omitempty"`
	RadiusMiles float64  `json:"radius_miles,omitempty"`
}

// HasCoordinates reports whether the query carries a precise location.
func (q *QueryContext) HasCoordinates() bool {
	return q.Latitude != nil && q.Longitude != nil
}

// MatchOptions tunes a single matching request.
type MatchOptions struct {
	Embedding []float32
	Limit     int
}

// MatchPath records which internal path served a response.
type MatchPath string

const (
	// PathHybrid means both upstream sources contributed candidates.
	PathHybrid MatchPath = "hybrid"
	// PathDegraded means only one upstream source contributed candidates.
	PathDegraded MatchPath = "degraded"
	// PathFallback means the offline catalog served the request.
	PathFallback MatchPath = "fallback"
)

// MatchResponse is the ranked result of a matching request.
type MatchResponse struct {
	Path    MatchPath   `json:"path"`
	Matches []Candidate `json:"matches"`
	Total   int         `json:"total"`
}

// Clone returns a deep copy of the response, so callers can edit it without
// touching cached state.
func (r *MatchResponse) Clone() *MatchResponse {
	if r == nil {
		return nil
	}
	out := *r
	if r.Matches != nil {
		out.Matches = make([]Candidate, len(r.Matches))
		for i := range r.Matches {
			out.Matches[i] = r.Matches[i].Clone()
		}
	}
	return &out
}
