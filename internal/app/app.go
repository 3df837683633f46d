// Package app assembles the bulk pipeline from configuration. Both binaries
// share it so the server worker and the CLI process rows the same way.
package app

import (
	"fmt"

	"github.com/bilgisen/contentpipe/internal/ai"
	"github.com/bilgisen/contentpipe/internal/cache"
	"github.com/bilgisen/contentpipe/internal/config"
	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/pipeline"
	"github.com/bilgisen/contentpipe/internal/storage"
	"github.com/bilgisen/contentpipe/internal/wordpress"
)

// OpenStore opens the job store selected by cfg.JobStore. The returned close
// function is never nil.
func OpenStore(cfg *config.Config) (pipeline.JobStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.JobStore {
	case config.StoreRedis:
		store, err := cache.NewRedisStore(cfg)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.StoreFile:
		store, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case config.StoreMemory:
		return cache.NewMemoryStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown job store %q", cfg.JobStore)
}

// Pipeline is the assembled processing stack
type Pipeline struct {
	Orchestrator *pipeline.Orchestrator
	Generator    *ai.Generator
	Artifacts    storage.ArtifactStore
	Style        ai.StyleGuide
}

// NewPipeline builds the generator, publishers and orchestrator for store
func NewPipeline(cfg *config.Config, store pipeline.JobStore, opts ...pipeline.Option) (*Pipeline, error) {
	log := logger.For("app")

	style, err := ai.LoadStyle(cfg.PromptStylePath)
	if err != nil {
		return nil, err
	}
	if cfg.WordTarget > 0 {
		style.MinWords = cfg.WordTarget
	}

	generator := ai.NewGenerator(cfg.ProviderConfig())
	if !generator.Configured() {
		log.Warn().Msg("No AI provider configured, posts will use fallback content")
	}

	artifacts, err := storage.NewArtifactStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	defaults := wordpress.Credentials{
		SiteURL:     cfg.WordPressSiteURL,
		Username:    cfg.WordPressUsername,
		AppPassword: cfg.WordPressAppPassword,
	}
	resolver := pipeline.NewSiteResolver(store, defaults, artifacts, wordpress.WithRetryDelay(cfg.RetryDelay))

	options := []pipeline.Option{
		pipeline.WithStyle(style),
		pipeline.WithRowDelay(cfg.RowDelay),
		pipeline.WithLeaseTTL(cfg.LeaseTTL),
		pipeline.WithManifests(artifacts),
	}
	if cfg.FetchReferences {
		options = append(options, pipeline.WithReferences(pipeline.NewWebReferences()))
	}
	if cfg.SEOSuggest {
		options = append(options, pipeline.WithSEOSuggestions(generator))
	}
	options = append(options, opts...)

	log.Info().
		Strs("providers", generator.Providers()).
		Str("store", cfg.JobStore).
		Bool("default_site", cfg.HasDefaultSite()).
		Bool("r2", cfg.HasR2()).
		Msg("Pipeline ready")

	return &Pipeline{
		Orchestrator: pipeline.NewOrchestrator(store, generator, resolver, options...),
		Generator:    generator,
		Artifacts:    artifacts,
		Style:        style,
	}, nil
}
