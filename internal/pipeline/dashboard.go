// Package pipeline owns the dashboard state and runs the clustering and
// scenario-generation operations against it.
package pipeline

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kalambet/signalboard/internal/clustering"
	"github.com/kalambet/signalboard/internal/export"
	"github.com/kalambet/signalboard/internal/ingest"
	"github.com/kalambet/signalboard/internal/metrics"
	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/recommend"
	"github.com/kalambet/signalboard/internal/rules"
)

var (
	// ErrNotFound is returned when a post, product, scenario or log id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when user input is missing required fields.
	ErrValidation = errors.New("validation failed")
)

const (
	defaultClusteringDelay = 1500 * time.Millisecond
	defaultScenarioDelay   = 2 * time.Second
)

// Loader produces a complete dataset; it never fails.
type Loader interface {
	LoadAll(ctx context.Context) ingest.Dataset
}

// LogStore persists the activity log.
type LogStore interface {
	AppendLog(e model.LogEvent) error
	GetLog(id string) (model.LogEvent, error)
	ListLogs(limit, offset int) ([]model.LogEvent, error)
	CountLogs() (int, error)
	ClearLogs() (int64, error)
}

// Dashboard is the application state. Each collection is replaced wholesale
// on every change; readers always see a complete snapshot. Concurrent
// operations are last-write-wins.
type Dashboard struct {
	mu        sync.RWMutex
	posts     []model.Post
	clusters  []model.Cluster
	products  []model.Product
	scenarios []model.Scenario
	queries   []model.SearchQuery

	loader   Loader
	logs     LogStore
	tables   *rules.Tables
	assigner *clustering.Assigner
	engine   *recommend.Engine
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	clusteringDelay time.Duration
	scenarioDelay   time.Duration

	idMu    sync.Mutex
	entropy io.Reader
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithDelays sets the artificial latency before clustering and scenario
// generation. Zero disables a delay.
func WithDelays(clusteringDelay, scenarioDelay time.Duration) Option {
	return func(d *Dashboard) {
		d.clusteringDelay = clusteringDelay
		d.scenarioDelay = scenarioDelay
	}
}

// WithEngine replaces the recommendation engine.
func WithEngine(e *recommend.Engine) Option {
	return func(d *Dashboard) { d.engine = e }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dashboard) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = logger }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// New creates an empty Dashboard seeded with the default search queries.
// Call Initialize to load data.
func New(tables *rules.Tables, loader Loader, logs LogStore, opts ...Option) *Dashboard {
	d := &Dashboard{
		loader:          loader,
		logs:            logs,
		tables:          tables,
		logger:          slog.Default(),
		now:             time.Now,
		clusteringDelay: defaultClusteringDelay,
		scenarioDelay:   defaultScenarioDelay,
		entropy:         ulid.Monotonic(crand.Reader, 0),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.engine == nil {
		d.engine = recommend.NewEngine(tables, recommend.WithClock(d.now))
	}
	d.assigner = clustering.NewAssigner(tables.Taxonomy, d.now)
	d.queries = seedQueries(d.now().UTC())
	return d
}

var seedTerms = []string{
	"dog hair", "dog shedding", "dog anxiety", "pet odor",
	"dog barking", "pet allergies", "dog alone", "pet summer heat",
}

func seedQueries(at time.Time) []model.SearchQuery {
	out := make([]model.SearchQuery, len(seedTerms))
	for i, q := range seedTerms {
		out[i] = model.SearchQuery{ID: fmt.Sprintf("q%d", i+1), Query: q, AddedAt: at}
	}
	return out
}

// Initialize loads every source and replaces the whole state.
func (d *Dashboard) Initialize(ctx context.Context) ingest.Dataset {
	ds := d.loader.LoadAll(ctx)

	d.mu.Lock()
	d.posts = ds.Posts
	d.products = ds.Products
	d.scenarios = ds.Scenarios
	d.clusters = ds.Clusters
	d.mu.Unlock()

	d.record(model.ActorSystem, "Initialize Data", "System",
		fmt.Sprintf("Loaded %d Reddit posts, %d products, %d scenarios, and %d clusters",
			len(ds.Posts), len(ds.Products), len(ds.Scenarios), len(ds.Clusters)))
	return ds
}

// Posts returns the current posts.
func (d *Dashboard) Posts() []model.Post {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.posts)
}

// Clusters returns the current cluster summaries.
func (d *Dashboard) Clusters() []model.Cluster {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.clusters)
}

// Products returns the product lineup.
func (d *Dashboard) Products() []model.Product {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.products)
}

// Scenarios returns every scenario, generated ones after loaded ones.
func (d *Dashboard) Scenarios() []model.Scenario {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.scenarios)
}

// SearchQueries returns the seed queries in insertion order.
func (d *Dashboard) SearchQueries() []model.SearchQuery {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.queries)
}

// SetPosts replaces the posts.
func (d *Dashboard) SetPosts(posts []model.Post) {
	d.mu.Lock()
	d.posts = slices.Clone(posts)
	d.mu.Unlock()
}

// SetClusters replaces the clusters.
func (d *Dashboard) SetClusters(clusters []model.Cluster) {
	d.mu.Lock()
	d.clusters = slices.Clone(clusters)
	d.mu.Unlock()
}

// SetProducts replaces the products.
func (d *Dashboard) SetProducts(products []model.Product) {
	d.mu.Lock()
	d.products = slices.Clone(products)
	d.mu.Unlock()
}

// SetScenarios replaces the scenarios.
func (d *Dashboard) SetScenarios(scenarios []model.Scenario) {
	d.mu.Lock()
	d.scenarios = slices.Clone(scenarios)
	d.mu.Unlock()
}

// wait sleeps for the artificial delay unless ctx ends first.
func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunClustering re-labels every post against the first k taxonomy entries
// and replaces the cluster set. Strictness is recorded but does not change
// the assignment. Once the delay has passed the run cannot be cancelled.
func (d *Dashboard) RunClustering(ctx context.Context, k int, strictness Strictness) (clustering.Result, error) {
	if err := wait(ctx, d.clusteringDelay); err != nil {
		return clustering.Result{}, err
	}

	start := time.Now()
	res := d.assigner.Assign(d.Posts(), k)
	d.metrics.ObserveClustering(time.Since(start), len(res.Clusters))

	d.mu.Lock()
	d.posts = res.Posts
	d.clusters = res.Clusters
	d.mu.Unlock()

	d.record(model.ActorUser, "Run Clustering", "Cluster",
		fmt.Sprintf("Generated %d clusters with %s strictness", len(res.Clusters), strictness))
	return res, nil
}

// GenerateScenarios runs the recommendation engine over the selected
// clusters and appends the result to the existing scenarios. A nil
// clusterIDs selects every cluster; a non-nil empty one selects none.
func (d *Dashboard) GenerateScenarios(ctx context.Context, clusterIDs []string) ([]model.Scenario, error) {
	if err := wait(ctx, d.scenarioDelay); err != nil {
		return nil, err
	}

	d.mu.RLock()
	targets := d.clusters
	if clusterIDs != nil {
		targets = nil
		for _, c := range d.clusters {
			if slices.Contains(clusterIDs, c.ID) {
				targets = append(targets, c)
			}
		}
	}
	targets = slices.Clone(targets)
	products := slices.Clone(d.products)
	d.mu.RUnlock()

	generated := d.engine.Generate(targets, products)
	d.metrics.AddScenarios(len(generated))

	d.mu.Lock()
	next := make([]model.Scenario, 0, len(d.scenarios)+len(generated))
	next = append(next, d.scenarios...)
	next = append(next, generated...)
	d.scenarios = next
	d.mu.Unlock()

	d.record(model.ActorUser, "Generate Scenarios", "Scenario",
		fmt.Sprintf("Generated %d scenarios from %d clusters", len(generated), len(targets)))
	return generated, nil
}

// UpdateScenarioStatus sets the status of every scenario carrying id.
// Generated ids restart at scenario-1 on each run, so more than one scenario
// may match.
func (d *Dashboard) UpdateScenarioStatus(id string, status model.Status) error {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return err
	}

	d.mu.Lock()
	matched := false
	next := slices.Clone(d.scenarios)
	for i := range next {
		if next[i].ID == id {
			next[i].Status = status
			matched = true
		}
	}
	if matched {
		d.scenarios = next
	}
	d.mu.Unlock()

	if !matched {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	d.record(model.ActorUser, "Update Scenario Status", "Scenario",
		fmt.Sprintf("Changed scenario %s to %s", id, status))
	return nil
}

// HookVariations returns the tone variants of a scenario's hook.
func (d *Dashboard) HookVariations(id string) (model.HookVariations, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.scenarios {
		if s.ID == id {
			return recommend.HookVariations(s.Hook), nil
		}
	}
	return model.HookVariations{}, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
}

// CuratedScenarios returns the hand-written multi-product scenario library.
// It is separate from the working scenario list.
func (d *Dashboard) CuratedScenarios() ([]model.Scenario, error) {
	curated, err := d.engine.Curated()
	if err != nil {
		return nil, fmt.Errorf("loading curated scenarios: %w", err)
	}
	return curated, nil
}

// Stats summarises the current scenarios.
func (d *Dashboard) Stats() export.Summary {
	return export.Stats(d.Scenarios())
}

// Overview counts the state for status displays.
type Overview struct {
	Posts          int                  `json:"posts"`
	AssignedPosts  int                  `json:"assigned_posts"`
	Clusters       int                  `json:"clusters"`
	Products       int                  `json:"products"`
	ActiveProducts int                  `json:"active_products"`
	Scenarios      int                  `json:"scenarios"`
	ByStatus       map[model.Status]int `json:"by_status"`
	SearchQueries  int                  `json:"search_queries"`
	Logs           int                  `json:"logs"`
}

// Overview reports collection sizes.
func (d *Dashboard) Overview() (Overview, error) {
	d.mu.RLock()
	ov := Overview{
		Posts:         len(d.posts),
		Clusters:      len(d.clusters),
		Products:      len(d.products),
		Scenarios:     len(d.scenarios),
		ByStatus:      make(map[model.Status]int),
		SearchQueries: len(d.queries),
	}
	for _, p := range d.posts {
		if p.ClusterID != "" {
			ov.AssignedPosts++
		}
	}
	for _, p := range d.products {
		if p.Active {
			ov.ActiveProducts++
		}
	}
	for _, s := range d.scenarios {
		ov.ByStatus[s.Status]++
	}
	d.mu.RUnlock()

	n, err := d.logs.CountLogs()
	if err != nil {
		return ov, fmt.Errorf("counting logs: %w", err)
	}
	ov.Logs = n
	return ov, nil
}
