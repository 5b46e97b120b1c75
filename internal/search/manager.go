// Package search provides hybrid graph and vector artist matching for inkmatch.
package search

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/thebtf/inkmatch/internal/cache"
	"github.com/thebtf/inkmatch/internal/catalog"
	"github.com/thebtf/inkmatch/internal/graph"
	"github.com/thebtf/inkmatch/internal/scoring"
	"github.com/thebtf/inkmatch/internal/vector"
	"github.com/thebtf/inkmatch/pkg/models"
)

// Matching configuration constants.
const (
	DefaultDeadline = 500 * time.Millisecond
	// DefaultCatalogTimeout bounds the offline catalog read on the fallback path.
	DefaultCatalogTimeout = 250 * time.Millisecond

	defaultLimit      = 10
	maxLimit          = 50
	vectorTopKFactor  = 3  // Over-fetch so fusion has room to reorder
	minVectorTopK     = 20 // Floor for the vector over-fetch
	slowMatchFraction = 4  // Warn when a match uses more than 3/4 of the deadline

	neutralVisual = 0.5
)

// GraphSource is the graph/keyword artist source.
type GraphSource interface {
	FindArtists(ctx context.Context, p graph.Preferences) ([]graph.Record, error)
	GetArtistsByIDs(ctx context.Context, ids []string) ([]models.Artist, error)
}

// VectorSource is the visual-similarity artist source.
type VectorSource interface {
	SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]vector.Hit, error)
}

// Config tunes the Manager.
type Config struct {
	Deadline       time.Duration // Fetch phase limit
	CatalogTimeout time.Duration // Fallback catalog read limit
	DefaultLimit   int
	MaxLimit       int
	GraphEnabled   bool
}

// DefaultConfig returns the standard matching configuration.
func DefaultConfig() Config {
	return Config{
		Deadline:       DefaultDeadline,
		CatalogTimeout: DefaultCatalogTimeout,
		DefaultLimit:   defaultLimit,
		MaxLimit:       maxLimit,
		GraphEnabled:   true,
	}
}

// Sources are the Manager's collaborators. Any of them may be nil.
type Sources struct {
	Graph      GraphSource
	Vector     VectorSource
	Catalog    catalog.Catalog
	Cache      cache.Cache
	Calculator *scoring.Calculator
}

// Manager orchestrates graph and vector retrieval, merging, scoring and caching.
type Manager struct {
	graph   GraphSource
	vector  VectorSource
	catalog catalog.Catalog
	cache   cache.Cache
	calc    *scoring.Calculator
	metrics *MatchMetrics
	group   singleflight.Group
	cfg     Config
}

// NewManager creates a match manager.
func NewManager(cfg Config, src Sources) *Manager {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.CatalogTimeout <= 0 {
		cfg.CatalogTimeout = DefaultCatalogTimeout
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = maxLimit
	}
	if src.Cache == nil {
		src.Cache = cache.Noop{}
	}
	if src.Calculator == nil {
		src.Calculator = scoring.NewCalculator(nil, nil)
	}
	return &Manager{
		graph:   src.Graph,
		vector:  src.Vector,
		catalog: src.Catalog,
		cache:   src.Cache,
		calc:    src.Calculator,
		metrics: newMatchMetrics(),
		cfg:     cfg,
	}
}

// Metrics returns the match metrics for monitoring.
func (m *Manager) Metrics() *MatchMetrics {
	return m.metrics
}

// Calculator returns the composite scorer.
func (m *Manager) Calculator() *scoring.Calculator {
	return m.calc
}

// Cache returns the result cache.
func (m *Manager) Cache() cache.Cache {
	return m.cache
}

// Deadline returns the configured fetch phase limit.
func (m *Manager) Deadline() time.Duration {
	return m.cfg.Deadline
}

// GetHybridMatches returns the best artists for qc. Identical concurrent
// requests share one computation and results are cached by request
// signature. The shared computation is detached from any single caller's
// cancellation; each caller stops waiting when its own ctx ends.
func (m *Manager) GetHybridMatches(ctx context.Context, qc models.QueryContext, opts models.MatchOptions) (*models.MatchResponse, error) {
	limit := m.clampLimit(opts.Limit)
	qc.Keywords = mergeKeywords(qc.Keywords, ParseQuery(qc.Query))

	key := cacheKey(&qc, limit, opts.Embedding, m.calc.Weights())
	if resp, ok := m.cache.Get(ctx, key); ok {
		atomic.AddInt64(&m.metrics.CacheHits, 1)
		return resp, nil
	}

	work := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		resp, err := m.match(work, &qc, opts.Embedding, limit)
		if err != nil {
			return nil, err
		}
		m.cache.Set(work, key, resp)
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			atomic.AddInt64(&m.metrics.CoalescedRequests, 1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		resp := res.Val.(*models.MatchResponse)
		if res.Shared {
			// Coalesced callers must not see each other's edits.
			return resp.Clone(), nil
		}
		return resp, nil
	}
}

// match runs one uncached request.
func (m *Manager) match(ctx context.Context, qc *models.QueryContext, embedding []float32, limit int) (*models.MatchResponse, error) {
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.Deadline)
	defer cancel()

	fetched, err := m.fetch(fetchCtx, qc, embedding, limit)
	if err != nil {
		if ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			atomic.AddInt64(&m.metrics.Timeouts, 1)
			log.Warn().
				Dur("limit", m.cfg.Deadline).
				Str("query", qc.Query).
				Msg("Match fetch phase timed out")
			return nil, &TimeoutError{Limit: m.cfg.Deadline}
		}
		return nil, err
	}

	graphCandidates := graphList(fetched.graph)
	vectorCandidates := vectorList(fetched.hits)
	candidates := Merge(vectorCandidates, graphCandidates)

	path := models.PathHybrid
	switch {
	case len(candidates) == 0:
		path = models.PathFallback
	case len(graphCandidates.Candidates) == 0 || len(vectorCandidates.Candidates) == 0:
		path = models.PathDegraded
	}

	if path == models.PathFallback {
		candidates, err = m.fallbackCandidates(ctx, m.cfg.CatalogTimeout)
		if err != nil {
			return nil, err
		}
	} else {
		m.hydrate(fetchCtx, candidates)
	}

	fusion := RRF(rrfK, vectorCandidates, graphCandidates)
	matches := m.score(candidates, qc, embedding, fusion, path == models.PathFallback)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	elapsed := time.Since(start)
	m.metrics.observe(ctx, path, elapsed)
	if elapsed > m.cfg.Deadline-m.cfg.Deadline/slowMatchFraction {
		log.Warn().
			Dur("latency", elapsed).
			Str("path", string(path)).
			Msg("Slow match request")
	}

	return &models.MatchResponse{
		Path:    path,
		Matches: matches,
		Total:   len(matches),
	}, nil
}

type fetchResult struct {
	graph []graph.Record
	hits  []vector.Hit
}

// fetch queries both sources concurrently. It returns as soon as ctx is done,
// even if a source ignores cancellation.
func (m *Manager) fetch(ctx context.Context, qc *models.QueryContext, embedding []float32, limit int) (fetchResult, error) {
	useGraph := m.cfg.GraphEnabled && m.graph != nil
	useVector := m.vector != nil && len(embedding) > 0

	prefs := graph.Preferences{
		Styles:   qc.Styles,
		Keywords: qc.Keywords,
		BodyPart: qc.BodyPart,
		Location: qc.Location,
		Budget:   qc.Budget,
		Limit:    max(limit*vectorTopKFactor, minVectorTopK),
	}
	topK := max(limit*vectorTopKFactor, minVectorTopK)

	return await(ctx, func(ctx context.Context) (fetchResult, error) {
		var res fetchResult
		g, gctx := errgroup.WithContext(ctx)

		if useGraph {
			g.Go(func() error {
				recs, err := m.graph.FindArtists(gctx, prefs)
				if err != nil {
					m.sourceFailed(gctx, "graph", err)
					return nil
				}
				res.graph = recs
				return nil
			})
		}
		if useVector {
			g.Go(func() error {
				hits, err := m.vector.SearchSimilar(gctx, embedding, topK)
				if err != nil {
					if errors.Is(err, vector.ErrInvalidDimension) {
						return err
					}
					m.sourceFailed(gctx, "vector", err)
					return nil
				}
				res.hits = hits
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return fetchResult{}, err
		}
		if err := ctx.Err(); err != nil {
			return fetchResult{}, err
		}
		return res, nil
	})
}

func (m *Manager) sourceFailed(ctx context.Context, source string, err error) {
	m.metrics.sourceFailed(ctx, source)
	log.Warn().Err(err).Str("source", source).Msg("Match source failed; continuing without it")
}

// hydrate fills in profiles for vector-only candidates within the remaining
// deadline. Failures leave candidates as they are.
func (m *Manager) hydrate(ctx context.Context, candidates []models.Candidate) {
	if !m.cfg.GraphEnabled || m.graph == nil {
		return
	}

	var ids []string
	for i := range candidates {
		if !candidates[i].HasProfile() {
			ids = append(ids, candidates[i].ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	artists, err := await(ctx, func(ctx context.Context) ([]models.Artist, error) {
		return m.graph.GetArtistsByIDs(ctx, ids)
	})
	if err != nil {
		log.Warn().Err(err).Int("count", len(ids)).Msg("Candidate hydration failed")
		return
	}

	byID := make(map[string]models.Artist, len(artists))
	for _, a := range artists {
		byID[a.ID] = a
	}
	for i := range candidates {
		a, ok := byID[candidates[i].ID]
		if !ok {
			continue
		}
		profile := models.NewCandidate(a, candidates[i].Source)
		mergeInto(&candidates[i], &profile)
	}
}

// fallbackCandidates loads the offline catalog within its own time budget,
// since the fetch phase may already have used the whole deadline.
func (m *Manager) fallbackCandidates(ctx context.Context, budget time.Duration) ([]models.Candidate, error) {
	if m.catalog == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	artists, err := await(ctx, m.catalog.ListArtists)
	if err != nil {
		return nil, &FallbackError{Err: err}
	}
	log.Info().Int("artists", len(artists)).Msg("No upstream candidates; serving offline catalog")

	out := make([]models.Candidate, 0, len(artists))
	for _, a := range artists {
		out = append(out, models.NewCandidate(a, models.SourceLocal))
	}
	return out, nil
}

// score computes signals, composite score and reasoning for each candidate
// and returns them sorted by score, fusion score, then id.
func (m *Manager) score(candidates []models.Candidate, qc *models.QueryContext, embedding []float32, fusion map[string]float64, localOnly bool) []models.Candidate {
	out := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasProfile() && !c.Available {
			continue
		}

		signals := models.Signals{
			models.SignalStyleAlignment: scoring.StyleAlignment(&c.Artist, qc),
			models.SignalLocation:       scoring.LocationScore(&c.Artist, qc),
			models.SignalBudget:         scoring.BudgetFit(&c.Artist, qc),
		}
		if !localOnly {
			signals[models.SignalVisualSimilarity] = visualSignal(&c, embedding)
		}
		if len(qc.Keywords) > 0 {
			signals[models.SignalKeywordMatch] = scoring.KeywordMatch(qc.Keywords, scoring.CandidateTags(&c.Artist))
		}
		if c.GraphRank >= 0 {
			signals[models.SignalGraphRelevance] = c.GraphScore
		}

		result := m.calc.Calculate(c.ID, signals)
		c.Signals = result.Breakdown.Signals
		c.Score = result.Score
		c.DisplayScore = scoring.DisplayScore(result.Score)
		c.FusionScore = fusion[c.ID]
		c.Reasoning = Explain(c.Signals, &c, qc)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].FusionScore != out[j].FusionScore {
			return out[i].FusionScore > out[j].FusionScore
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// visualSignal is neutral without an embedding and 0 for candidates the
// vector search did not return.
func visualSignal(c *models.Candidate, embedding []float32) float64 {
	if len(embedding) == 0 {
		return neutralVisual
	}
	if c.VisualSimilarity == nil {
		return 0
	}
	return *c.VisualSimilarity
}

func (m *Manager) clampLimit(limit int) int {
	if limit <= 0 {
		return m.cfg.DefaultLimit
	}
	if limit > m.cfg.MaxLimit {
		return m.cfg.MaxLimit
	}
	return limit
}

// await runs fn and returns its result, or ctx.Err() as soon as ctx is done.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		err error
		v   T
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// cacheKeyInput is the canonical request signature.
type cacheKeyInput struct {
	Latitude    *float64 `json:"lat,omitempty"`
	Longitude   *float64 `json:"lng,omitempty"`
	Query       string   `json:"q"`
	BodyPart    string   `json:"body"`
	Location    string   `json:"loc"`
	Embedding   string   `json:"emb"`
	Weights     string   `json:"w"`
	Styles      []string `json:"styles"`
	Keywords    []string `json:"kw"`
	Budget      float64  `json:"budget"`
	RadiusMiles float64  `json:"radius"`
	Limit       int      `json:"limit"`
}

// cacheKey hashes the normalized request with FNV-64a and encodes it base36.
// The weight table is part of the key so a reload never serves stale scores.
func cacheKey(qc *models.QueryContext, limit int, embedding []float32, weights models.Weights) string {
	in := cacheKeyInput{
		Latitude:    qc.Latitude,
		Longitude:   qc.Longitude,
		Query:       normalizeText(qc.Query),
		BodyPart:    normalizeText(qc.BodyPart),
		Location:    normalizeText(qc.Location),
		Styles:      sortedLower(qc.Styles),
		Keywords:    sortedLower(qc.Keywords),
		Budget:      qc.Budget,
		RadiusMiles: qc.RadiusMiles,
		Limit:       limit,
		Embedding:   embeddingFingerprint(embedding),
		Weights:     weightsFingerprint(weights),
	}

	h := fnv.New64a()
	data, err := json.Marshal(in)
	if err != nil {
		// Unreachable for this struct; hash the raw query so the key stays usable.
		data = []byte(in.Query)
	}
	h.Write(data)
	return strconv.FormatUint(h.Sum64(), 36)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func sortedLower(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = normalizeText(v); v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func embeddingFingerprint(embedding []float32) string {
	if len(embedding) == 0 {
		return ""
	}
	h := fnv.New64a()
	var buf [4]byte
	for _, f := range embedding {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		h.Write(buf[:])
	}
	return strconv.Itoa(len(embedding)) + ":" + strconv.FormatUint(h.Sum64(), 36)
}

// weightsFingerprint renders the table in sorted key order.
func weightsFingerprint(weights models.Weights) string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(weights[name], 'g', -1, 64))
		b.WriteByte(';')
	}
	return b.String()
}
