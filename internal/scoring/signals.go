package scoring

import (
	"math"
	"strings"

	"github.com/thebtf/inkmatch/pkg/models"
)

// Location scoring constants.
const (
	earthRadiusMiles = 3958.8

	cityExactScore    = 1.0
	cityPartialScore  = 0.75
	cityMismatchScore = 0.25

	// Substring matches count half of an exact keyword match.
	keywordPartialCredit = 0.5
)

// distanceBuckets maps an upper distance bound (miles) to its score.
var distanceBuckets = []struct {
	maxMiles float64
	score    float64
}{
	{5, 1.0},
	{10, 0.75},
	{20, 0.5},
}

// StyleAlignment returns the fraction of requested styles the artist works in.
// With no requested styles the result is neutral.
func StyleAlignment(artist *models.Artist, qc *models.QueryContext) float64 {
	if len(qc.Styles) == 0 {
		return neutralScore
	}
	have := lowerSet(artist.Styles)
	hits := 0
	for _, s := range qc.Styles {
		if _, ok := have[strings.ToLower(strings.TrimSpace(s))]; ok {
			hits++
		}
	}
	return Clamp01(float64(hits) / float64(len(qc.Styles)))
}

// MatchedStyles returns the requested styles the artist works in, using the
// artist's spelling.
func MatchedStyles(artist *models.Artist, qc *models.QueryContext) []string {
	want := lowerSet(qc.Styles)
	var out []string
	for _, s := range artist.Styles {
		if _, ok := want[strings.ToLower(strings.TrimSpace(s))]; ok {
			out = append(out, s)
		}
	}
	return out
}

// LocationScore rates geographic fit. Coordinates on both sides take
// precedence over city names.
func LocationScore(artist *models.Artist, qc *models.QueryContext) float64 {
	if artist.HasCoordinates() && qc.HasCoordinates() {
		miles := HaversineMiles(*qc.Latitude, *qc.Longitude, *artist.Latitude, *artist.Longitude)
		for _, b := range distanceBuckets {
			if miles < b.maxMiles {
				return b.score
			}
		}
		return cityMismatchScore
	}

	want := strings.ToLower(strings.TrimSpace(qc.Location))
	have := strings.ToLower(strings.TrimSpace(artist.City))
	if want == "" || have == "" {
		return neutralScore
	}
	switch {
	case want == have:
		return cityExactScore
	case strings.Contains(have, want), strings.Contains(want, have):
		return cityPartialScore
	default:
		return cityMismatchScore
	}
}

// HaversineMiles returns the great-circle distance between two points.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BudgetFit rates the artist's hourly rate against the query budget.
//
//	rate <= budget: 1.0
//	rate >  budget: 1 / (1 + (rate-budget)/budget)
//
// Unknown budget or rate is neutral.
func BudgetFit(artist *models.Artist, qc *models.QueryContext) float64 {
	if qc.Budget <= 0 || artist.HourlyRate <= 0 {
		return neutralScore
	}
	if artist.HourlyRate <= qc.Budget {
		return 1
	}
	overage := (artist.HourlyRate - qc.Budget) / qc.Budget
	return Clamp01(1 / (1 + overage))
}

// KeywordMatch scores query keywords against candidate tags. Each keyword
// takes its best pairing (exact token 1, containment either way 0.5) and the
// total is normalized by the keyword count.
func KeywordMatch(keywords, tags []string) float64 {
	if len(keywords) == 0 || len(tags) == 0 {
		return 0
	}
	lowered := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}

	var total float64
	counted := 0
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		counted++
		best := 0.0
		for _, t := range lowered {
			if t == k {
				best = 1
				break
			}
			if strings.Contains(t, k) || strings.Contains(k, t) {
				best = keywordPartialCredit
			}
		}
		total += best
	}
	if counted == 0 {
		return 0
	}
	return Clamp01(total / float64(counted))
}

// CandidateTags returns every tag-like token of an artist: styles and tags.
func CandidateTags(artist *models.Artist) []string {
	out := make([]string, 0, len(artist.Styles)+len(artist.Tags))
	out = append(out, artist.Styles...)
	return append(out, artist.Tags...)
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
