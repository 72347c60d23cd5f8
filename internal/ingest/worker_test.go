package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/signalboard/internal/model"
)

type countingTarget struct {
	calls atomic.Int32
	ds    Dataset
}

func (c *countingTarget) Initialize(ctx context.Context) Dataset {
	c.calls.Add(1)
	return c.ds
}

func TestWorker_RunOnce(t *testing.T) {
	target := &countingTarget{ds: Dataset{
		Posts:     []model.Post{{ID: "p1"}, {ID: "p2"}},
		Fallbacks: []string{"products"},
	}}
	w := NewWorker(target, time.Hour)

	ds, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(ds.Posts) != 2 {
		t.Errorf("posts = %d, want 2", len(ds.Posts))
	}
	if got := target.calls.Load(); got != 1 {
		t.Errorf("Initialize called %d times, want 1", got)
	}
}

func TestWorker_RunOnceCancelled(t *testing.T) {
	target := &countingTarget{}
	w := NewWorker(target, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := target.calls.Load(); got != 0 {
		t.Errorf("Initialize called %d times after cancel, want 0", got)
	}
}

func TestWorker_RunRefreshesUntilCancelled(t *testing.T) {
	target := &countingTarget{}
	w := NewWorker(target, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for target.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d refreshes before deadline", target.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewWorker_DefaultInterval(t *testing.T) {
	w := NewWorker(&countingTarget{}, 0)
	if w.every != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", w.every)
	}
}
