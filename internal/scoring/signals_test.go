package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/inkmatch/pkg/models"
)

func ptr(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "empty range is neutral", value: 3, min: 3, max: 3, expected: 0.5},
		{name: "below min clamps", value: -4, min: 0, max: 10, expected: 0},
		{name: "above max clamps", value: 14, min: 0, max: 10, expected: 1},
		{name: "midpoint", value: 5, min: 0, max: 10, expected: 0.5},
		{name: "quarter", value: 25, min: 0, max: 100, expected: 0.25},
		{name: "offset range", value: 150, min: 100, max: 300, expected: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Normalize(tt.value, tt.min, tt.max), 1e-12)
		})
	}
}

func TestNormalize_AlwaysInRange(t *testing.T) {
	values := []float64{-1e9, -1, 0, 0.3, 1, 7, 1e9, math.Inf(1)}
	for _, v := range values {
		for _, lo := range values {
			for _, hi := range values {
				got := Normalize(v, lo, hi)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
			}
		}
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
	assert.Equal(t, 0.0, Clamp01(-0.1))
	assert.Equal(t, 1.0, Clamp01(1.0000001))
	assert.Equal(t, 0.42, Clamp01(0.42))
}

func TestStyleAlignment(t *testing.T) {
	artist := &models.Artist{Styles: []string{"Anime", "Traditional"}}

	tests := []struct {
		name     string
		styles   []string
		expected float64
	}{
		{name: "no styles requested is neutral", styles: nil, expected: 0.5},
		{name: "full overlap", styles: []string{"anime"}, expected: 1},
		{name: "half overlap", styles: []string{"ANIME", "blackwork"}, expected: 0.5},
		{name: "no overlap", styles: []string{"realism"}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := &models.QueryContext{Styles: tt.styles}
			assert.InDelta(t, tt.expected, StyleAlignment(artist, qc), 1e-12)
		})
	}
}

func TestMatchedStyles(t *testing.T) {
	artist := &models.Artist{Styles: []string{"Anime", "Traditional", "Dotwork"}}
	qc := &models.QueryContext{Styles: []string{"dotwork", "anime", "realism"}}

	assert.Equal(t, []string{"Anime", "Dotwork"}, MatchedStyles(artist, qc))
}

func TestLocationScore_Cities(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		city     string
		expected float64
	}{
		{name: "exact match case-insensitive", query: "austin", city: "Austin", expected: 1},
		{name: "query contains city", query: "Austin, TX", city: "Austin", expected: 0.75},
		{name: "city contains query", query: "York", city: "New York", expected: 0.75},
		{name: "mismatch", query: "Denver", city: "Austin", expected: 0.25},
		{name: "no query location", query: "", city: "Austin", expected: 0.5},
		{name: "no artist city", query: "Austin", city: "", expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocationScore(&models.Artist{City: tt.city}, &models.QueryContext{Location: tt.query})
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestLocationScore_Coordinates(t *testing.T) {
	// Austin city hall
	qc := &models.QueryContext{Latitude: ptr(30.2650), Longitude: ptr(-97.7467), Location: "Denver"}

	tests := []struct {
		name     string
		lat, lng float64
		expected float64
	}{
		{name: "same spot", lat: 30.2650, lng: -97.7467, expected: 1},
		{name: "about 7 miles", lat: 30.3650, lng: -97.7467, expected: 0.75},
		{name: "about 14 miles", lat: 30.4650, lng: -97.7467, expected: 0.5},
		{name: "san antonio", lat: 29.4241, lng: -98.4936, expected: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artist := &models.Artist{City: "Austin", Latitude: ptr(tt.lat), Longitude: ptr(tt.lng)}
			assert.InDelta(t, tt.expected, LocationScore(artist, qc), 1e-12)
		})
	}
}

func TestHaversineMiles(t *testing.T) {
	// Austin to Dallas is roughly 182 miles.
	d := HaversineMiles(30.2672, -97.7431, 32.7767, -96.7970)
	assert.InDelta(t, 182, d, 5)
	assert.InDelta(t, 0, HaversineMiles(10, 10, 10, 10), 1e-9)
}

func TestBudgetFit(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		budget   float64
		expected float64
	}{
		{name: "under budget", rate: 150, budget: 200, expected: 1},
		{name: "exactly budget", rate: 200, budget: 200, expected: 1},
		{name: "50 percent over", rate: 300, budget: 200, expected: 1 / 1.5},
		{name: "double budget", rate: 400, budget: 200, expected: 0.5},
		{name: "no budget is neutral", rate: 150, budget: 0, expected: 0.5},
		{name: "unknown rate is neutral", rate: 0, budget: 200, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BudgetFit(&models.Artist{HourlyRate: tt.rate}, &models.QueryContext{Budget: tt.budget})
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestKeywordMatch(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		tags     []string
		expected float64
	}{
		{name: "exact", keywords: []string{"dragon"}, tags: []string{"Dragon", "fire"}, expected: 1},
		{name: "extra tags do not dilute", keywords: []string{"dragon"}, tags: []string{"skull", "rose", "dragon", "fire"}, expected: 1},
		{name: "exact beats substring", keywords: []string{"dragon"}, tags: []string{"dragonfly", "dragon"}, expected: 1},
		{name: "substring", keywords: []string{"rose"}, tags: []string{"roses"}, expected: 0.5},
		{name: "mixed", keywords: []string{"dragon", "koi"}, tags: []string{"dragon"}, expected: 0.5},
		{name: "none", keywords: []string{"skull"}, tags: []string{"floral"}, expected: 0},
		{name: "no keywords", keywords: nil, tags: []string{"floral"}, expected: 0},
		{name: "no tags", keywords: []string{"skull"}, tags: nil, expected: 0},
		{name: "blank keywords ignored", keywords: []string{" ", "koi"}, tags: []string{"koi"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, KeywordMatch(tt.keywords, tt.tags), 1e-12)
		})
	}
}

func TestCandidateTags(t *testing.T) {
	a := &models.Artist{Styles: []string{"Anime"}, Tags: []string{"dragon"}}
	assert.Equal(t, []string{"Anime", "dragon"}, CandidateTags(a))
}
