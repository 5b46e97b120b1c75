package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	falkordb "github.com/falkordb/falkordb-go"
	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/inkmatch/pkg/models"
)

// DefaultGraphName is the FalkorDB graph holding artist nodes.
const DefaultGraphName = "inkmatch"

// Config holds FalkorDB connection settings.
type Config struct {
	Addr        string
	Password    string
	GraphName   string
	MaxIdle     int
	ReadTimeout time.Duration
}

// runFunc executes a parameterized Cypher query and returns rows keyed by column.
type runFunc func(ctx context.Context, query string, params map[string]interface{}) ([]map[string]any, error)

// Client queries artist relationships stored in FalkorDB.
type Client struct {
	pool *redis.Pool
	run  runFunc
	name string
}

// NewClient creates a FalkorDB client backed by a redigo pool.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("graph address is required")
	}
	name := cfg.GraphName
	if name == "" {
		name = DefaultGraphName
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 4
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 2 * time.Second
	}

	pool := &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialReadTimeout(readTimeout)}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			return redis.DialContext(ctx, "tcp", cfg.Addr, opts...)
		},
	}

	c := &Client{pool: pool, name: name}
	c.run = c.poolRun
	return c, nil
}

// newClientWithRunner builds a client around an arbitrary query runner.
func newClientWithRunner(run runFunc) *Client {
	return &Client{run: run, name: DefaultGraphName}
}

// Close releases pooled connections.
func (c *Client) Close() error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Close()
}

// FindArtists returns artists connected to the requested styles, keywords,
// city or body part, ordered by graph relevance.
func (c *Client) FindArtists(ctx context.Context, p Preferences) ([]Record, error) {
	rows, err := c.run(ctx, findArtistsQuery, findParams(p))
	if err != nil {
		return nil, fmt.Errorf("find artists: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeSearchRow(row, p)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping malformed graph row")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetArtistsByIDs loads full artist profiles for the given IDs.
func (c *Client) GetArtistsByIDs(ctx context.Context, ids []string) ([]models.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list := make([]interface{}, len(ids))
	for i, id := range ids {
		list[i] = id
	}

	rows, err := c.run(ctx, artistsByIDQuery, map[string]interface{}{"ids": list})
	if err != nil {
		return nil, fmt.Errorf("get artists by ids: %w", err)
	}

	artists := make([]models.Artist, 0, len(rows))
	for _, row := range rows {
		a, err := decodeArtist(row)
		if err != nil {
			continue
		}
		artists = append(artists, a)
	}
	return artists, nil
}

// UpsertArtist writes an artist node and replaces its style, tag, city and
// body part relationships.
func (c *Client) UpsertArtist(ctx context.Context, a models.Artist, bodyParts []string) error {
	query, params := upsertQuery(a, bodyParts)
	if _, err := c.run(ctx, query, params); err != nil {
		return fmt.Errorf("upsert artist %s: %w", a.ID, err)
	}
	return nil
}

func upsertQuery(a models.Artist, bodyParts []string) (string, map[string]interface{}) {
	var b strings.Builder
	b.WriteString(`MERGE (a:Artist {id: $id})
SET a.name = $name, a.contact = $contact, a.portfolio = $portfolio,
    a.hourly_rate = $hourly_rate, a.available = $available`)
	params := map[string]interface{}{
		"id":          a.ID,
		"name":        a.Name,
		"contact":     a.Contact,
		"portfolio":   toList(a.Portfolio),
		"hourly_rate": a.HourlyRate,
		"available":   a.Available,
		"styles":      toList(a.Styles),
		"tags":        toList(a.Tags),
		"body_parts":  toList(bodyParts),
		"city":        a.City,
	}
	if a.HasCoordinates() {
		b.WriteString(", a.latitude = $latitude, a.longitude = $longitude")
		params["latitude"] = *a.Latitude
		params["longitude"] = *a.Longitude
	}
	b.WriteString(`
WITH a
OPTIONAL MATCH (a)-[r]->()
DELETE r
WITH DISTINCT a
FOREACH (n IN $styles | MERGE (s:Style {name: n}) MERGE (a)-[:SPECIALIZES_IN]->(s))
FOREACH (n IN $tags | MERGE (t:Tag {name: n}) MERGE (a)-[:TAGGED]->(t))
FOREACH (n IN $body_parts | MERGE (p:BodyPart {name: n}) MERGE (a)-[:WORKS_ON]->(p))
FOREACH (n IN CASE WHEN $city = '' THEN [] ELSE [$city] END |
    MERGE (c:City {name: n}) MERGE (a)-[:WORKS_IN]->(c))`)
	return b.String(), params
}

// poolRun executes the query on a pooled connection. The caller is released
// as soon as ctx is done; the connection itself is returned to the pool once
// the in-flight reply arrives or the read timeout fires.
func (c *Client) poolRun(ctx context.Context, query string, params map[string]interface{}) ([]map[string]any, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	type reply struct {
		err  error
		rows []map[string]any
	}
	done := make(chan reply, 1)

	go func() {
		defer conn.Close()
		g := falkordb.GraphNew(c.name, conn)
		res, err := g.ParameterizedQuery(query, params)
		if err != nil {
			done <- reply{err: err}
			return
		}
		var rows []map[string]any
		for res.Next() {
			rec := res.Record()
			keys, values := rec.Keys(), rec.Values()
			row := make(map[string]any, len(keys))
			for i, k := range keys {
				if i < len(values) {
					row[k] = values[i]
				}
			}
			rows = append(rows, row)
		}
		done <- reply{rows: rows}
	}()

	select {
	case r := <-done:
		return r.rows, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func toList(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
