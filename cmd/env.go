package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/regioniq/catchment/internal/boundary"
	"github.com/regioniq/catchment/internal/catchment"
	"github.com/regioniq/catchment/internal/config"
	"github.com/regioniq/catchment/internal/dataapi"
	"github.com/regioniq/catchment/internal/fetch"
	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
	"github.com/regioniq/catchment/internal/store"
)

// catchmentEnv holds the initialized boundary store, metric source, and
// engine needed by the serve/calc commands.
type catchmentEnv struct {
	Boundaries *boundary.Store
	Metrics    metrics.Source
	Engine     *catchment.Engine

	closeStore func() error
}

// Close releases resources held by the environment.
func (ce *catchmentEnv) Close() {
	if ce.closeStore != nil {
		_ = ce.closeStore()
	}
}

// initEnv wires the fetch client, boundary store, metric source, and engine
// from config. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*catchmentEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	fetcher := newFetcher(cfg.Fetch)

	boundaries, err := initBoundaries(fetcher)
	if err != nil {
		return nil, err
	}

	env := &catchmentEnv{Boundaries: boundaries}

	switch cfg.Store.Driver {
	case "dataapi":
		env.Metrics = dataapi.NewClient(cfg.DataAPI.BaseURL, fetcher, boundaries)
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		env.Metrics = pg
		env.closeStore = pg.Close
	case "sqlite":
		sq, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		env.Metrics = sq
		env.closeStore = sq.Close
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	env.Engine = catchment.NewEngine(boundaries, env.Metrics)
	return env, nil
}

func newFetcher(fc config.FetchConfig) *fetch.Client {
	return fetch.NewClient(fetch.Options{
		UserAgent:  fc.UserAgent,
		Timeout:    time.Duration(fc.TimeoutSecs) * time.Second,
		MaxRetries: fc.MaxRetries,
	})
}

// initBoundaries builds the boundary store over local files when
// boundaries.dir is set, otherwise over the configured remote URLs.
func initBoundaries(fetcher *fetch.Client) (*boundary.Store, error) {
	var source boundary.Source
	if cfg.Boundaries.Dir != "" {
		paths := make(map[model.Level]string, len(model.Levels))
		for _, level := range model.Levels {
			paths[level] = filepath.Join(cfg.Boundaries.Dir, strings.ToLower(string(level))+".geojson")
		}
		source = boundary.NewFileSource(paths)
	} else {
		urls, err := cfg.Boundaries.BoundaryURLs()
		if err != nil {
			return nil, err
		}
		source = boundary.NewHTTPSource(urls, fetcher)
	}

	opts := []boundary.Option{
		boundary.WithLoadTimeout(time.Duration(cfg.Boundaries.LoadTimeoutSecs) * time.Second),
	}
	if cfg.Boundaries.CodeProperty != "" || cfg.Boundaries.NameProperty != "" {
		opts = append(opts, boundary.WithPropertyKeys(cfg.Boundaries.CodeProperty, cfg.Boundaries.NameProperty))
	}

	return boundary.NewStore(source, opts...), nil
}

// preloadConfigured warms the boundary cache for the configured levels.
func preloadConfigured(ctx context.Context, env *catchmentEnv) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, raw := range cfg.Boundaries.PreloadLevels {
		level, err := model.ParseLevel(raw)
		if err != nil {
			return err
		}
		g.Go(func() error {
			start := time.Now()
			if err := env.Engine.Preload(ctx, level); err != nil {
				return err
			}
			zap.L().Info("boundaries preloaded",
				zap.String("level", string(level)),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}
	return g.Wait()
}
