// Package ingest loads posts, products, scenarios and pre-computed clusters
// from CSV sources, degrading to built-in data when a source is unavailable.
package ingest

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/rules"
)

// Dataset file names under the variant prefix.
const (
	PostsClusteredFile = "reddit_cluster_results.csv"
	PostsRawFile       = "reddit_g.csv"
	ProductsFile       = "lg_g.csv"
	ScenariosFile      = "lg_scenarios.csv"
)

// Source names reported for fallbacks.
const (
	SourcePosts     = "posts"
	SourceProducts  = "products"
	SourceScenarios = "scenarios"
	SourceClusters  = "clusters"
)

// Dataset is the outcome of one load. Every collection is well-typed even
// when its source failed.
type Dataset struct {
	Posts     []model.Post
	Products  []model.Product
	Scenarios []model.Scenario
	Clusters  []model.Cluster
	// Fallbacks names the sources that were served from built-in data.
	Fallbacks []string
}

// FallbackRecorder is notified whenever a source degrades.
type FallbackRecorder interface {
	RecordFallback(source string)
}

// Loader reads all sources concurrently.
type Loader struct {
	fetcher  Fetcher
	tables   *rules.Tables
	now      func() time.Time
	logger   *slog.Logger
	recorder FallbackRecorder
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for source warnings.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithClock overrides time.Now for scenario and cluster timestamps.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

// WithFallbackRecorder registers a FallbackRecorder.
func WithFallbackRecorder(r FallbackRecorder) LoaderOption {
	return func(l *Loader) { l.recorder = r }
}

// NewLoader creates a Loader reading through fetcher.
func NewLoader(fetcher Fetcher, tables *rules.Tables, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher: fetcher,
		tables:  tables,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll fetches every source in parallel and returns once all of them have
// settled. A failing source never affects the others and never surfaces as
// an error.
func (l *Loader) LoadAll(ctx context.Context) Dataset {
	var (
		ds Dataset
		mu sync.Mutex
		g  errgroup.Group
	)
	degrade := func(source string) {
		mu.Lock()
		ds.Fallbacks = append(ds.Fallbacks, source)
		mu.Unlock()
		if l.recorder != nil {
			l.recorder.RecordFallback(source)
		}
	}
	now := l.now().UTC()

	g.Go(func() error {
		ds.Posts = l.loadPosts(ctx, degrade)
		return nil
	})
	g.Go(func() error {
		ds.Products = l.loadProducts(ctx, degrade)
		return nil
	})
	g.Go(func() error {
		ds.Scenarios = l.loadScenarios(ctx, now, degrade)
		return nil
	})
	g.Go(func() error {
		ds.Clusters = l.loadClusters(ctx, now)
		return nil
	})
	_ = g.Wait()

	slices.Sort(ds.Fallbacks)
	return ds
}

func (l *Loader) loadPosts(ctx context.Context, degrade func(string)) []model.Post {
	for _, name := range []string{PostsClusteredFile, PostsRawFile} {
		data, err := l.fetcher.Fetch(ctx, name)
		if err != nil {
			l.logger.Debug("posts source not available", "path", name, "error", err)
			continue
		}
		posts, err := ParsePosts(data)
		if err != nil {
			l.logger.Warn("failed to parse posts, using fallback data", "source", SourcePosts, "path", name, "error", err)
			break
		}
		return posts
	}
	if ctx.Err() == nil {
		l.logger.Warn("posts CSV not found, using fallback data", "source", SourcePosts)
	}
	degrade(SourcePosts)
	return FallbackPosts()
}

func (l *Loader) loadProducts(ctx context.Context, degrade func(string)) []model.Product {
	data, err := l.fetcher.Fetch(ctx, ProductsFile)
	if err == nil {
		products, perr := ParseProducts(data)
		if perr == nil {
			return products
		}
		err = perr
	}
	l.logger.Warn("products CSV unavailable, using fallback data", "source", SourceProducts, "path", ProductsFile, "error", err)
	degrade(SourceProducts)
	return FallbackProducts()
}

func (l *Loader) loadScenarios(ctx context.Context, now time.Time, degrade func(string)) []model.Scenario {
	data, err := l.fetcher.Fetch(ctx, ScenariosFile)
	if err == nil {
		scenarios, perr := ParseScenarios(data, l.tables, now)
		if perr == nil {
			return scenarios
		}
		err = perr
	}
	l.logger.Warn("scenarios CSV unavailable, using fallback data", "source", SourceScenarios, "path", ScenariosFile, "error", err)
	degrade(SourceScenarios)
	return FallbackScenarios(now)
}

// loadClusters has no fallback dataset: without a clustered export the
// dashboard starts with no clusters.
func (l *Loader) loadClusters(ctx context.Context, now time.Time) []model.Cluster {
	data, err := l.fetcher.Fetch(ctx, PostsClusteredFile)
	if err != nil {
		l.logger.Warn("cluster CSV not found", "source", SourceClusters, "path", PostsClusteredFile, "error", err)
		return []model.Cluster{}
	}
	clusters, err := ParseClusters(data, now)
	if err != nil {
		l.logger.Warn("failed to load clusters from CSV", "source", SourceClusters, "path", PostsClusteredFile, "error", err)
		return []model.Cluster{}
	}
	return clusters
}
