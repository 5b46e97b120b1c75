// Package graph provides the FalkorDB-backed graph/keyword artist source.
//
// Artists are stored as (:Artist) nodes linked to (:Style), (:Tag),
// (:City) and (:BodyPart) nodes. Searches count style, tag, city and body
// part hits in Cypher and normalize the weighted hit count into a
// graphScore in [0,1].
package graph

import (
	"fmt"
	"strings"

	"github.com/thebtf/inkmatch/internal/scoring"
	"github.com/thebtf/inkmatch/pkg/models"
)

// Hit weights used in the graph relevance formula.
const (
	styleHitWeight = 3
	tagHitWeight   = 2
	cityHitWeight  = 1
	bodyHitWeight  = 1

	defaultFindLimit = 50
)

// Preferences is the graph search input.
type Preferences struct {
	Styles   []string
	Keywords []string
	BodyPart string
	Location string
	Budget   float64
	Limit    int
}

// Record is a graph search result before normalization.
type Record struct {
	Relationship string
	Artist       models.Artist
	GraphScore   float64
}

// profileProjection collects an artist's linked nodes and returns its fields.
const profileProjection = `
OPTIONAL MATCH (a)-[:SPECIALIZES_IN]->(s:Style)
WITH a, collect(DISTINCT s.name) AS styles
OPTIONAL MATCH (a)-[:TAGGED]->(t:Tag)
WITH a, styles, collect(DISTINCT t.name) AS tags
OPTIONAL MATCH (a)-[:WORKS_IN]->(c:City)
WITH a, styles, tags, head(collect(c.name)) AS city`

const profileReturn = `a.id AS id, a.name AS name, city, a.contact AS contact,
       styles, tags, a.portfolio AS portfolio,
       a.latitude AS latitude, a.longitude AS longitude,
       a.hourly_rate AS hourly_rate, a.available AS available`

// findArtistsQuery ranks artists by weighted style, tag, city and body part hits.
var findArtistsQuery = fmt.Sprintf(`
MATCH (a:Artist)
%s
OPTIONAL MATCH (a)-[:WORKS_ON]->(b:BodyPart)
WITH a, styles, tags, city, collect(DISTINCT toLower(b.name)) AS body_parts
WITH a, styles, tags, city,
     size([x IN styles WHERE toLower(x) IN $styles]) AS style_hits,
     size([x IN tags WHERE toLower(x) IN $keywords]) AS tag_hits,
     CASE WHEN $city <> '' AND toLower(coalesce(city, '')) CONTAINS $city THEN 1 ELSE 0 END AS city_hit,
     CASE WHEN $body_part <> '' AND $body_part IN body_parts THEN 1 ELSE 0 END AS body_hit
WHERE style_hits > 0 OR tag_hits > 0 OR city_hit > 0 OR body_hit > 0
      OR (size($styles) = 0 AND size($keywords) = 0 AND $city = '')
RETURN %s,
       style_hits, tag_hits, city_hit, body_hit
ORDER BY style_hits * %d + tag_hits * %d + city_hit * %d + body_hit * %d DESC, id ASC
LIMIT $limit`,
	profileProjection, profileReturn,
	styleHitWeight, tagHitWeight, cityHitWeight, bodyHitWeight)

// artistsByIDQuery loads full profiles for hydration.
var artistsByIDQuery = fmt.Sprintf(`
MATCH (a:Artist) WHERE a.id IN $ids
%s
RETURN %s`, profileProjection, profileReturn)

// findParams builds the query parameters for findArtistsQuery.
func findParams(p Preferences) map[string]interface{} {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}
	return map[string]interface{}{
		"styles":    lowerList(p.Styles),
		"keywords":  lowerList(p.Keywords),
		"city":      strings.ToLower(strings.TrimSpace(p.Location)),
		"body_part": strings.ToLower(strings.TrimSpace(p.BodyPart)),
		"limit":     limit,
	}
}

// maxRawScore is the weighted hit count of a perfect match for p.
func maxRawScore(p Preferences) float64 {
	max := float64(styleHitWeight*len(nonEmpty(p.Styles)) + tagHitWeight*len(nonEmpty(p.Keywords)))
	if strings.TrimSpace(p.Location) != "" {
		max += cityHitWeight
	}
	if strings.TrimSpace(p.BodyPart) != "" {
		max += bodyHitWeight
	}
	return max
}

// decodeArtist reads profile columns from a result row.
func decodeArtist(row map[string]any) (models.Artist, error) {
	id := asString(row["id"])
	if id == "" {
		return models.Artist{}, fmt.Errorf("graph row without id")
	}
	return models.Artist{
		ID:         id,
		Name:       asString(row["name"]),
		City:       asString(row["city"]),
		Contact:    asString(row["contact"]),
		Styles:     asStrings(row["styles"]),
		Tags:       asStrings(row["tags"]),
		Portfolio:  asStrings(row["portfolio"]),
		Latitude:   asFloatPtr(row["latitude"]),
		Longitude:  asFloatPtr(row["longitude"]),
		HourlyRate: asFloat(row["hourly_rate"]),
		Available:  asBool(row["available"], true),
	}, nil
}

// decodeSearchRow turns a findArtistsQuery row into a scored record.
func decodeSearchRow(row map[string]any, p Preferences) (Record, error) {
	artist, err := decodeArtist(row)
	if err != nil {
		return Record{}, err
	}

	styleHits := asFloat(row["style_hits"])
	tagHits := asFloat(row["tag_hits"])
	raw := styleHits*styleHitWeight +
		tagHits*tagHitWeight +
		asFloat(row["city_hit"])*cityHitWeight +
		asFloat(row["body_hit"])*bodyHitWeight

	return Record{
		Artist:       artist,
		GraphScore:   scoring.Normalize(raw, 0, maxRawScore(p)),
		Relationship: relationship(&artist, p, styleHits, tagHits),
	}, nil
}

// relationship describes the strongest graph connection that matched.
func relationship(a *models.Artist, p Preferences, styleHits, tagHits float64) string {
	if styleHits > 0 {
		matched := scoring.MatchedStyles(a, &models.QueryContext{Styles: p.Styles})
		if len(matched) > 0 {
			return fmt.Sprintf("Known for %s work", matched[0])
		}
	}
	if tagHits > 0 {
		want := make(map[string]struct{}, len(p.Keywords))
		for _, k := range lowerList(p.Keywords) {
			want[k.(string)] = struct{}{}
		}
		for _, t := range a.Tags {
			if _, ok := want[strings.ToLower(t)]; ok {
				return fmt.Sprintf("Portfolio tagged with %s", t)
			}
		}
	}
	return ""
}

// lowerList returns trimmed lowercase values as []interface{} for query
// parameter serialization.
func lowerList(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range nonEmpty(values) {
		out = append(out, strings.ToLower(v))
	}
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
