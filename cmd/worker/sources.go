package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/thebtf/inkmatch/internal/cache"
	"github.com/thebtf/inkmatch/internal/catalog"
	"github.com/thebtf/inkmatch/internal/config"
	gormdb "github.com/thebtf/inkmatch/internal/db/gorm"
	"github.com/thebtf/inkmatch/internal/graph"
	"github.com/thebtf/inkmatch/internal/scoring"
	"github.com/thebtf/inkmatch/internal/search"
	"github.com/thebtf/inkmatch/internal/vector/memory"
	"github.com/thebtf/inkmatch/internal/vector/pgvector"
)

// buildSources connects every configured backend. The returned cleanup
// closes whatever was opened, in reverse order.
func buildSources(cfg *config.Config) (search.Sources, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn().Err(err).Msg("Close failed during shutdown")
			}
		}
	}
	fail := func(err error) (search.Sources, func(), error) {
		cleanup()
		return search.Sources{}, func() {}, err
	}

	src := search.Sources{
		Calculator: scoring.NewCalculator(cfg.Weights, scoring.ParseVariety(cfg.VarietyMode)),
	}
	breakers := search.DefaultBreakerConfig()

	switch cfg.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL(),
		})
		if err != nil {
			return fail(fmt.Errorf("redis cache: %w", err))
		}
		closers = append(closers, rc.Close)
		src.Cache = rc
	case config.CacheNone:
		src.Cache = cache.Noop{}
	default:
		src.Cache = cache.NewMemory(cfg.CacheTTL())
	}

	if cfg.GraphEnabled && cfg.FalkorAddr != "" {
		gc, err := graph.NewClient(graph.Config{
			Addr:      cfg.FalkorAddr,
			Password:  cfg.FalkorPassword,
			GraphName: cfg.GraphName,
		})
		if err != nil {
			return fail(fmt.Errorf("graph client: %w", err))
		}
		closers = append(closers, gc.Close)
		src.Graph = search.NewBreakerGraph(gc, breakers)
	} else {
		log.Info().Bool("graph_enabled", cfg.GraphEnabled).Msg("Graph source disabled")
	}

	if cfg.PostgresDSN != "" {
		store, err := gormdb.NewStore(gormdb.Config{
			DSN:           cfg.PostgresDSN,
			MaxConns:      cfg.MaxConns,
			EmbeddingDims: cfg.EmbeddingDims,
			LogLevel:      logger.Silent,
		})
		if err != nil {
			return fail(fmt.Errorf("artist store: %w", err))
		}
		closers = append(closers, store.Close)

		vc, err := pgvector.NewClient(pgvector.Config{DB: store.DB, Dims: store.EmbeddingDims()})
		if err != nil {
			return fail(fmt.Errorf("pgvector client: %w", err))
		}
		src.Vector = search.NewBreakerVector(vc, breakers)
	} else {
		// An empty in-process index still validates embedding dimensions.
		log.Info().Int("dims", cfg.EmbeddingDims).Msg("No PostgreSQL DSN; visual search uses an empty in-memory index")
		src.Vector = memory.NewClient(cfg.EmbeddingDims)
	}

	if cfg.CatalogPath != "" {
		cat, closeCat, err := openCatalog(cfg.CatalogPath)
		if err != nil {
			return fail(err)
		}
		if closeCat != nil {
			closers = append(closers, closeCat)
		}
		src.Catalog = cat
	}

	return src, cleanup, nil
}

// openCatalog picks the catalog format from the file extension.
func openCatalog(path string) (catalog.Catalog, func() error, error) {
	start := time.Now()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cat, err := catalog.LoadYAML(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load catalog: %w", err)
		}
		log.Info().Str("path", path).Dur("took", time.Since(start)).Msg("Offline catalog loaded")
		return cat, nil, nil
	default:
		cat, err := catalog.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open catalog: %w", err)
		}
		log.Info().Str("path", path).Msg("Offline catalog opened")
		return cat, cat.Close, nil
	}
}
