// Package main provides the entry point for the inkmatch worker service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/inkmatch/internal/config"
	"github.com/thebtf/inkmatch/internal/search"
	"github.com/thebtf/inkmatch/internal/worker"
)

var Version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}
	setLogLevel(cfg.LogLevel)

	log.Info().
		Str("version", Version).
		Str("settings", config.SettingsPath()).
		Msg("Starting inkmatch worker")

	src, cleanup, err := buildSources(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise match sources")
	}
	defer cleanup()

	manager := search.NewManager(search.Config{
		Deadline:     cfg.MatchDeadline(),
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		GraphEnabled: cfg.GraphEnabled,
	}, src)

	if err := config.EnsureDataDir(); err != nil {
		log.Warn().Err(err).Msg("Cannot create data directory")
	}

	// Weight changes apply to the next request. Other settings need a restart.
	watcher, err := config.NewWatcher(func(next *config.Config) {
		manager.Calculator().UpdateWeights(next.Weights)
		setLogLevel(next.LogLevel)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Settings watcher unavailable; live reload disabled")
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	svc := worker.NewService(Version, cfg, manager)
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start service")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
