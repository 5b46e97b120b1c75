package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/inkmatch/pkg/models"
)

func TestExplain(t *testing.T) {
	artist := models.Artist{ID: "a1", City: "Austin", Styles: []string{"Anime", "Traditional"}}
	qc := &models.QueryContext{Styles: []string{"anime", "traditional"}, Location: "Austin"}

	tests := []struct {
		name         string
		signals      models.Signals
		relationship string
		want         []string
	}{
		{
			name:    "all zero falls back",
			signals: models.Signals{models.SignalVisualSimilarity: 0, models.SignalStyleAlignment: 0},
			want:    []string{"Recommended based on your preferences"},
		},
		{
			name:    "empty signals fall back",
			signals: models.Signals{},
			want:    []string{"Recommended based on your preferences"},
		},
		{
			name:    "strong visual",
			signals: models.Signals{models.SignalVisualSimilarity: 0.874},
			want:    []string{"Strong visual style match (87%)"},
		},
		{
			name:    "good visual",
			signals: models.Signals{models.SignalVisualSimilarity: 0.6},
			want:    []string{"Good visual alignment (60%)"},
		},
		{
			name:    "neutral visual says nothing",
			signals: models.Signals{models.SignalVisualSimilarity: 0.5},
			want:    []string{"Recommended based on your preferences"},
		},
		{
			name: "every reason in order",
			signals: models.Signals{
				models.SignalVisualSimilarity: 0.9,
				models.SignalStyleAlignment:   1,
				models.SignalLocation:         1,
				models.SignalBudget:           1,
			},
			relationship: "Known for Anime work",
			want: []string{
				"Strong visual style match (90%)",
				"Specializes in Anime, Traditional",
				"Located in Austin",
				"Within your budget",
				"Known for Anime work",
			},
		},
		{
			name:    "thresholds are strict",
			signals: models.Signals{models.SignalStyleAlignment: 0.7, models.SignalLocation: 0.8, models.SignalBudget: 0.8},
			want:    []string{"Recommended based on your preferences"},
		},
		{
			name:         "relationship alone",
			signals:      models.Signals{},
			relationship: "Portfolio tagged with koi",
			want:         []string{"Portfolio tagged with koi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := models.NewCandidate(artist, models.SourceGraph)
			c.Relationship = tt.relationship
			assert.Equal(t, tt.want, Explain(tt.signals, &c, qc))
		})
	}
}

func TestExplain_StyleNeedsNamedOverlap(t *testing.T) {
	c := models.NewCandidate(models.Artist{ID: "a", Styles: []string{"Blackwork"}}, models.SourceGraph)
	got := Explain(models.Signals{models.SignalStyleAlignment: 0.9}, &c, &models.QueryContext{Styles: []string{"Anime"}})
	assert.Equal(t, []string{"Recommended based on your preferences"}, got)
}

func TestExplain_LocationWithoutCity(t *testing.T) {
	c := models.NewCandidate(models.Artist{ID: "a"}, models.SourceVector)

	got := Explain(models.Signals{models.SignalLocation: 1}, &c, &models.QueryContext{})
	assert.Equal(t, []string{"Located near you"}, got)

	got = Explain(models.Signals{models.SignalLocation: 1}, &c, &models.QueryContext{Location: "Denver"})
	assert.Equal(t, []string{"Located in Denver"}, got)
}
