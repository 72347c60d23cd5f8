package ingest

import (
	"context"
	"log/slog"
	"time"
)

// Target receives a freshly loaded dataset. pipeline.Dashboard satisfies it.
type Target interface {
	Initialize(ctx context.Context) Dataset
}

// Worker reloads every source into a Target on a fixed interval.
type Worker struct {
	target Target
	every  time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker for target.
// If interval is <= 0, it defaults to 15 minutes.
func NewWorker(target Target, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Worker{
		target: target,
		every:  interval,
		logger: slog.Default(),
	}
}

// Run refreshes the target every interval until ctx is cancelled. The first
// refresh happens one interval after Run starts.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.every):
		}

		if _, err := w.RunOnce(ctx); err != nil {
			return
		}
	}
}

// RunOnce performs a single refresh. It only fails when ctx is already done.
func (w *Worker) RunOnce(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	ds := w.target.Initialize(ctx)
	w.logger.Info("dataset refreshed",
		"posts", len(ds.Posts),
		"products", len(ds.Products),
		"scenarios", len(ds.Scenarios),
		"clusters", len(ds.Clusters),
	)
	if len(ds.Fallbacks) > 0 {
		w.logger.Warn("refresh served built-in data", "sources", ds.Fallbacks)
	}
	return ds, nil
}
