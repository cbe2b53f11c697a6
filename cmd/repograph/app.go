package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"repograph/internal/api"
	"repograph/internal/cache"
	"repograph/internal/cachekey"
	"repograph/internal/config"
	"repograph/internal/explorer"
	"repograph/internal/github"
	"repograph/internal/storage"
	"repograph/internal/summarize"
)

// app is the wired service graph shared by serve and the one-shot commands.
type app struct {
	explorer *explorer.Service
	store    io.Closer
}

// newApp opens the configured store and wires the clients and caches onto
// it. metrics may be nil; callers must Close the app.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *api.Metrics) (*app, error) {
	store, closer, err := storage.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache store: %w", cfg.Cache.Backend, err)
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger)}
	ghCfg := github.Config{
		BaseURL:        cfg.GitHub.BaseURL,
		Token:          cfg.GitHub.Token,
		Timeout:        seconds(cfg.GitHub.TimeoutSeconds),
		MaxConcurrency: cfg.GitHub.MaxConcurrency,
		MaxRetries:     github.DefaultMaxRetries,
	}
	if metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithRecorder(metrics))
		ghCfg.Observer = metrics
	}

	summaries := cache.New[string](store, cachekey.Summary, seconds(cfg.Cache.SummaryTTLSeconds), cacheOpts...)
	trees := cache.New[explorer.RepoData](store, cachekey.Graph, seconds(cfg.Cache.GraphTTLSeconds), cacheOpts...)

	gh := github.NewClient(ghCfg, logger.With("component", "github"))
	gemini := summarize.NewGeminiClient(summarize.Config{
		BaseURL:         cfg.Summarizer.BaseURL,
		Model:           cfg.Summarizer.Model,
		APIKey:          cfg.Summarizer.APIKey,
		Timeout:         seconds(cfg.Summarizer.TimeoutSeconds),
		MaxContentBytes: cfg.Summarizer.MaxContentBytes,
	}, logger.With("component", "summarizer"))
	if cfg.Summarizer.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, summaries will fail")
	}

	svc := explorer.New(gh, gemini, summaries,
		explorer.WithLogger(logger.With("component", "explorer")),
		explorer.WithTreeCache(trees),
		explorer.WithDepthLimits(cfg.GitHub.DefaultDepth, cfg.GitHub.MaxDepth),
		explorer.WithGraphMaxDepth(cfg.Graph.MaxDepth),
	)

	return &app{explorer: svc, store: closer}, nil
}

// Close releases the cache store.
func (a *app) Close() error {
	return a.store.Close()
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
