package worker

import (
	"context"
	"time"

	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
)

// Initializer re-ingests the default research topics
type Initializer interface {
	InitializeResearchDatabase(ctx context.Context) error
}

// ResearchRefreshWorker periodically re-ingests the default research topics
// so that stored documents follow the curated sources.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Upsert by content-derived ID makes overlapping runs from several
//   instances harmless, only wasteful
type ResearchRefreshWorker struct {
	initializer Initializer
	interval    time.Duration
	cancel      context.CancelFunc
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewResearchRefreshWorker creates a new worker refreshing research every interval
func NewResearchRefreshWorker(initializer Initializer, interval time.Duration) *ResearchRefreshWorker {
	return &ResearchRefreshWorker{
		initializer: initializer,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background refresh loop. The first refresh runs after
// one interval; initial population is the job of the init command.
func (w *ResearchRefreshWorker) Start(ctx context.Context) {
	logging.From(ctx).Info("Research refresh worker starting",
		"interval", w.interval.String())

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

// Stop signals the worker to stop, interrupting a refresh in progress, and
// waits for completion
func (w *ResearchRefreshWorker) Stop() {
	logging.Default().Info("Research refresh worker stopping")
	close(w.stopCh)
	if w.cancel != nil {
		w.cancel()
	}
	<-w.doneCh
	logging.Default().Info("Research refresh worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *ResearchRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.From(ctx).Info("Research refresh worker context cancelled")
			return
		}
	}
}

// refresh performs a single refresh cycle; failures wait for the next tick
func (w *ResearchRefreshWorker) refresh(ctx context.Context) {
	startTime := time.Now()
	logger := logging.From(ctx)
	logger.Info("Starting research refresh")

	if err := w.initializer.InitializeResearchDatabase(ctx); err != nil {
		_ = errutil.Handle(ctx, err, "research refresh failed (will retry next interval)")
		return
	}

	logger.Info("Research refresh completed",
		"duration", time.Since(startTime).String())
}
