package vectorindex

import (
	"context"
	"log/slog"
	"time"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Default readiness polling of EnsureIndex
const (
	DefaultReadyPollInterval = 5 * time.Second
	DefaultReadyTimeout      = 2 * time.Minute
)

// Client applies research index semantics on top of a VectorStore: idempotent
// provisioning, filtered upserts and failure tolerant queries.
type Client struct {
	store             interfaces.VectorStore
	spec              model.IndexSpec
	readyPollInterval time.Duration
	readyTimeout      time.Duration
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithReadyPolling overrides how EnsureIndex waits for a new index
func WithReadyPolling(interval, timeout time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.readyPollInterval = interval
		}
		if timeout > 0 {
			c.readyTimeout = timeout
		}
	}
}

// New creates a new Client for the index described by spec
func New(store interfaces.VectorStore, spec model.IndexSpec, opts ...Option) *Client {
	c := &Client{
		store:             store,
		spec:              spec,
		readyPollInterval: DefaultReadyPollInterval,
		readyTimeout:      DefaultReadyTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureIndex creates the index if it does not exist and waits until it is
// ready. Calling it on an existing index is a no-op.
func (c *Client) EnsureIndex(ctx context.Context) error {
	if err := c.spec.Validate(); err != nil {
		return goerr.Wrap(err, "invalid index spec")
	}

	logger := logging.From(ctx).With(slog.String("index", c.spec.Name))

	exists, err := c.store.HasIndex(ctx, c.spec.Name)
	if err != nil {
		return goerr.Wrap(err, "failed to check index", goerr.V("index", c.spec.Name))
	}
	if exists {
		logger.Debug("vector index already exists")
		return nil
	}

	logger.Info("creating vector index",
		slog.Int("dimension", c.spec.Dimension),
		slog.String("metric", string(c.spec.Metric)))
	if err := c.store.CreateIndex(ctx, c.spec); err != nil {
		return goerr.Wrap(err, "failed to create index", goerr.V("index", c.spec.Name))
	}

	return c.waitReady(ctx)
}

func (c *Client) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(c.readyPollInterval)
	defer ticker.Stop()

	for {
		ready, err := c.store.IndexReady(ctx, c.spec.Name)
		if err != nil {
			return goerr.Wrap(err, "failed to check index readiness", goerr.V("index", c.spec.Name))
		}
		if ready {
			logging.From(ctx).Info("vector index is ready", slog.String("index", c.spec.Name))
			return nil
		}

		select {
		case <-ctx.Done():
			return goerr.Wrap(ErrIndexNotReady, "stopped waiting for index",
				goerr.V("index", c.spec.Name),
				goerr.V("timeout", c.readyTimeout.String()),
				goerr.V("cause", ctx.Err()))
		case <-ticker.C:
		}
	}
}

// Upsert stores documents that have an embedding. Documents without one are
// dropped silently. Nothing is sent to the store when no document qualifies.
func (c *Client) Upsert(ctx context.Context, docs []*model.ResearchDocument) (int, error) {
	records := make([]*model.VectorRecord, 0, len(docs))
	for _, doc := range docs {
		if r := doc.ToRecord(); r != nil {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := c.store.Upsert(ctx, c.spec.Name, records); err != nil {
		return 0, goerr.Wrap(err, "failed to upsert documents",
			goerr.V("index", c.spec.Name),
			goerr.V("count", len(records)))
	}
	return len(records), nil
}

// Query returns at most topK matches ordered by descending score. Store
// failures are logged and yield an empty result, never an error.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) []*model.SearchMatch {
	if len(vector) == 0 || topK <= 0 {
		return []*model.SearchMatch{}
	}

	matches, err := c.store.Query(ctx, c.spec.Name, vector, topK, includeMetadata)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "vector query failed",
			goerr.V("index", c.spec.Name),
			goerr.V("topK", topK)), "failed to query vector index")
		return []*model.SearchMatch{}
	}

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
