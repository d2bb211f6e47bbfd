package main

import (
	"context"

	"github.com/jonathan/placement-prep/internal/agents"
	"github.com/jonathan/placement-prep/internal/config"
	"github.com/jonathan/placement-prep/internal/generation"
	"github.com/jonathan/placement-prep/internal/llm"
	"github.com/jonathan/placement-prep/internal/logging"
	"github.com/jonathan/placement-prep/internal/research"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg       config.Config
	logger    *logrus.Logger
	llm       llm.Client
	runner    *agents.Invoker
	generator *generation.Generator

	closers []func() error
}

// newApp loads configuration and connects to the model, the optional search
// engine and the optional search cache.
func newApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	a := &app{cfg: cfg, logger: logger}

	llmConfig := llm.DefaultConfig()
	for tier, model := range cfg.Models {
		llmConfig = llmConfig.WithModel(llm.ModelTier(tier), model)
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.GeminiAPIKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM client")
	}
	a.llm = client
	a.closers = append(a.closers, client.Close)

	searcher, err := a.newSearcher(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.runner = agents.NewInvoker(client, searcher, cfg.AgentTimeout.Std(), logging.Component(logger, "cli"))
	a.generator = generation.New(client, logging.Component(logger, "cli"))
	return a, nil
}

// newSearcher returns nil when search is not configured. A configured but
// unreachable redis is reported and searches go uncached.
func (a *app) newSearcher(ctx context.Context) (research.Searcher, error) {
	log := logging.Component(a.logger, "research")
	if !a.cfg.SearchEnabled() {
		log.Info("web search not configured; agents answer without sources")
		return nil, nil
	}

	google, err := research.NewGoogleSearcher(ctx, a.cfg.SearchAPIKey, a.cfg.SearchEngineID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search client")
	}
	if a.cfg.RedisURL == "" {
		return google, nil
	}

	store, err := research.NewRedisStore(ctx, a.cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("search cache unavailable; continuing without it")
		return google, nil
	}
	a.closers = append(a.closers, store.Close)
	return research.NewCachedSearcher(google, store, a.cfg.SearchCacheTTL.Std(), log), nil
}

// Close releases the model client and cache connection.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
