package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/thebtf/inkmatch/internal/scoring"
	"github.com/thebtf/inkmatch/pkg/models"
)

// Reasoning thresholds.
const (
	strongVisualThreshold = 0.7
	goodVisualThreshold   = 0.5
	styleThreshold        = 0.7
	locationThreshold     = 0.8
	budgetThreshold       = 0.8

	fallbackReason = "Recommended based on your preferences"
)

// Explain turns a candidate's signals into human readable reasons, checked
// in the order visual, style, location, budget, relationship. The result is
// never empty.
func Explain(signals models.Signals, c *models.Candidate, qc *models.QueryContext) []string {
	var reasons []string

	if v, ok := signals[models.SignalVisualSimilarity]; ok {
		pct := int(math.Round(v * 100))
		switch {
		case v > strongVisualThreshold:
			reasons = append(reasons, fmt.Sprintf("Strong visual style match (%d%%)", pct))
		case v > goodVisualThreshold:
			reasons = append(reasons, fmt.Sprintf("Good visual alignment (%d%%)", pct))
		}
	}

	if signals[models.SignalStyleAlignment] > styleThreshold {
		if matched := scoring.MatchedStyles(&c.Artist, qc); len(matched) > 0 {
			reasons = append(reasons, "Specializes in "+strings.Join(matched, ", "))
		}
	}

	if signals[models.SignalLocation] > locationThreshold {
		switch {
		case c.City != "":
			reasons = append(reasons, "Located in "+c.City)
		case qc.Location != "":
			reasons = append(reasons, "Located in "+qc.Location)
		default:
			reasons = append(reasons, "Located near you")
		}
	}

	if signals[models.SignalBudget] > budgetThreshold {
		reasons = append(reasons, "Within your budget")
	}

	if c.Relationship != "" {
		reasons = append(reasons, c.Relationship)
	}

	if len(reasons) == 0 {
		return []string{fallbackReason}
	}
	return reasons
}
