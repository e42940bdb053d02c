package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/service/archive"
	"github.com/hera-health/hera/pkg/service/embedding"
	"github.com/hera-health/hera/pkg/service/extractor"
	"github.com/hera-health/hera/pkg/service/ratelimit"
	"github.com/hera-health/hera/pkg/service/router"
	"github.com/hera-health/hera/pkg/service/vectorindex"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTopK is used when a caller asks for a non-positive number of matches
	DefaultTopK = 5

	// DefaultIngestTimeout bounds one ingestion pass
	DefaultIngestTimeout = 5 * time.Minute
)

// ResearchUseCase retrieves research documents for a query and fills
// knowledge gaps by scraping curated sources. It runs in disabled mode when
// the vector store, the embedding provider or the document source is not
// configured: every method then returns neutral values without network calls.
type ResearchUseCase struct {
	enabled bool

	embedder      *embedding.Client
	index         *vectorindex.Client
	source        interfaces.DocumentSource
	extractor     interfaces.ContentExtractor
	router        *router.Router
	scrapeLimiter interfaces.Limiter
	archive       interfaces.Archive
	fetchOptions  model.FetchOptions
	thresholds    model.Thresholds
	defaultTopics []string
	ingestTimeout time.Duration

	ingestGroup singleflight.Group
}

type researchConfig struct {
	spec             model.IndexSpec
	embeddingLimiter interfaces.Limiter
	scrapeLimiter    interfaces.Limiter
	extractor        interfaces.ContentExtractor
	router           *router.Router
	archive          interfaces.Archive
	fetchOptions     model.FetchOptions
	thresholds       model.Thresholds
	defaultTopics    []string
	pollInterval     time.Duration
	pollTimeout      time.Duration
	ingestTimeout    time.Duration
}

// ResearchOption is a functional option for ResearchUseCase
type ResearchOption func(*researchConfig)

// WithIndexName sets the vector index name
func WithIndexName(name string) ResearchOption {
	return func(c *researchConfig) {
		c.spec.Name = name
	}
}

// WithEmbeddingDimension sets the embedding and index dimension
func WithEmbeddingDimension(dim int) ResearchOption {
	return func(c *researchConfig) {
		c.spec.Dimension = dim
	}
}

// WithEmbeddingLimiter sets the limiter shared by embedding provider calls
func WithEmbeddingLimiter(l interfaces.Limiter) ResearchOption {
	return func(c *researchConfig) {
		c.embeddingLimiter = l
	}
}

// WithScrapeLimiter sets the limiter waited on before each source fetch
func WithScrapeLimiter(l interfaces.Limiter) ResearchOption {
	return func(c *researchConfig) {
		c.scrapeLimiter = l
	}
}

// WithExtractor replaces the content extraction strategy
func WithExtractor(x interfaces.ContentExtractor) ResearchOption {
	return func(c *researchConfig) {
		c.extractor = x
	}
}

// WithRouter replaces the topic router
func WithRouter(r *router.Router) ResearchOption {
	return func(c *researchConfig) {
		c.router = r
	}
}

// WithArchive stores raw scraped content
func WithArchive(a interfaces.Archive) ResearchOption {
	return func(c *researchConfig) {
		c.archive = a
	}
}

// WithFetchOptions overrides the options passed to the document source
func WithFetchOptions(opts model.FetchOptions) ResearchOption {
	return func(c *researchConfig) {
		c.fetchOptions = opts
	}
}

// WithThresholds overrides the gap thresholds
func WithThresholds(th model.Thresholds) ResearchOption {
	return func(c *researchConfig) {
		c.thresholds = th
	}
}

// WithDefaultTopics sets the topics ingested by InitializeResearchDatabase
func WithDefaultTopics(topics []string) ResearchOption {
	return func(c *researchConfig) {
		c.defaultTopics = topics
	}
}

// WithIndexReadyPolling overrides how index creation waits for readiness
func WithIndexReadyPolling(interval, timeout time.Duration) ResearchOption {
	return func(c *researchConfig) {
		c.pollInterval = interval
		c.pollTimeout = timeout
	}
}

// WithIngestTimeout bounds a single ingestion pass, which runs independently
// of the callers waiting on it
func WithIngestTimeout(d time.Duration) ResearchOption {
	return func(c *researchConfig) {
		c.ingestTimeout = d
	}
}

// NewResearchUseCase creates a ResearchUseCase. Passing nil for store,
// llmClient or source yields a disabled use case.
func NewResearchUseCase(store interfaces.VectorStore, llmClient gollem.LLMClient, source interfaces.DocumentSource, opts ...ResearchOption) *ResearchUseCase {
	cfg := &researchConfig{
		spec: model.IndexSpec{
			Name:      model.DefaultIndexName,
			Dimension: model.EmbeddingDimension,
			Metric:    model.MetricCosine,
		},
		fetchOptions:  model.DefaultFetchOptions(),
		thresholds:    model.DefaultThresholds(),
		defaultTopics: model.DefaultResearchTopics,
		ingestTimeout: DefaultIngestTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	uc := &ResearchUseCase{
		enabled:       store != nil && llmClient != nil && source != nil,
		source:        source,
		extractor:     cfg.extractor,
		router:        cfg.router,
		scrapeLimiter: cfg.scrapeLimiter,
		archive:       cfg.archive,
		fetchOptions:  cfg.fetchOptions,
		thresholds:    cfg.thresholds,
		defaultTopics: cfg.defaultTopics,
		ingestTimeout: cfg.ingestTimeout,
	}

	if uc.extractor == nil {
		uc.extractor = extractor.New()
	}
	if uc.router == nil {
		// Built-in routes always validate
		uc.router, _ = router.New()
	}
	if uc.scrapeLimiter == nil {
		uc.scrapeLimiter = ratelimit.New(ratelimit.DefaultScrapeInterval)
	}
	if uc.archive == nil {
		uc.archive = archive.Noop{}
	}
	if uc.ingestTimeout <= 0 {
		uc.ingestTimeout = DefaultIngestTimeout
	}
	embeddingLimiter := cfg.embeddingLimiter
	if embeddingLimiter == nil {
		embeddingLimiter = ratelimit.New(ratelimit.DefaultEmbeddingInterval)
	}

	uc.embedder = embedding.New(llmClient,
		embedding.WithDimension(cfg.spec.Dimension),
		embedding.WithLimiter(embeddingLimiter))
	uc.index = vectorindex.New(store, cfg.spec,
		vectorindex.WithReadyPolling(cfg.pollInterval, cfg.pollTimeout))

	return uc
}

// IsServiceEnabled reports whether all providers are configured
func (uc *ResearchUseCase) IsServiceEnabled() bool {
	return uc.enabled
}

// EnsureIndex provisions the vector index if needed
func (uc *ResearchUseCase) EnsureIndex(ctx context.Context) error {
	if !uc.enabled {
		return nil
	}
	return uc.index.EnsureIndex(ctx)
}

// Search returns the stored documents most similar to query, without
// scraping. Failures yield an empty result.
func (uc *ResearchUseCase) Search(ctx context.Context, query string, topK int) []*model.SearchMatch {
	if !uc.enabled {
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec := uc.embedder.Embed(ctx, query)
	if vec == nil {
		return []*model.SearchMatch{}
	}
	return uc.index.Query(ctx, vec, topK, true)
}

// HasKnowledgeGaps reports whether the index lacks a match for query at or
// above minSimilarity. A non-positive minSimilarity selects the loose
// threshold. It returns false in disabled mode.
func (uc *ResearchUseCase) HasKnowledgeGaps(ctx context.Context, query string, minSimilarity float64) bool {
	if !uc.enabled {
		return false
	}
	if minSimilarity <= 0 {
		minSimilarity = uc.thresholds.Loose
	}
	return uc.hasGap(ctx, query, minSimilarity)
}

// SearchWithSmartScraping returns stored matches for query and, when they
// are sparse and not confident, ingests new documents first. It never
// returns an error: failures degrade to the matches already stored.
func (uc *ResearchUseCase) SearchWithSmartScraping(ctx context.Context, query string, topK int) (result []*model.SearchMatch) {
	if !uc.enabled {
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	var existing []*model.SearchMatch
	defer func() {
		if r := recover(); r != nil {
			_ = errutil.Handle(ctx, goerr.New("panic in smart search", goerr.V("panic", r), goerr.V("query", query)), "smart search recovered")
			result = existing
			if result == nil {
				result = []*model.SearchMatch{}
			}
		}
	}()

	logger := logging.From(ctx).With(slog.String("query", query))

	existing = uc.Search(ctx, query, topK)
	gap := uc.hasGap(ctx, query, uc.thresholds.Strict)

	switch {
	case !gap && len(existing) > 0:
		return existing
	case len(existing) >= topK:
		return existing
	case len(existing) >= model.SparseMatchCount:
		// Some matches but not enough and not confident; scraping is kept
		// for sparse results only
		logger.Debug("serving partial matches without ingestion", slog.Int("matches", len(existing)))
		return existing
	}

	logger.Info("knowledge gap detected, ingesting sources", slog.Int("matches", len(existing)))
	if _, err := uc.ingestShared(ctx, query); err != nil {
		_ = errutil.Handle(ctx, err, "ingestion pass failed, serving stored matches")
		return existing
	}

	return uc.Search(ctx, query, topK)
}

// IngestTopic runs one ingestion pass for topic regardless of gaps
func (uc *ResearchUseCase) IngestTopic(ctx context.Context, topic string) (*model.IngestResult, error) {
	if !uc.enabled {
		return nil, nil
	}
	return uc.ingestShared(ctx, topic)
}

// InitializeResearchDatabase provisions the index and ingests the
// configured default topics
func (uc *ResearchUseCase) InitializeResearchDatabase(ctx context.Context) error {
	return uc.InitializeAll(ctx, uc.defaultTopics)
}

// InitializeAll provisions the index, then ingests each topic sequentially.
// An index failure is returned; per-topic failures are logged and skipped.
func (uc *ResearchUseCase) InitializeAll(ctx context.Context, topics []string) error {
	if !uc.enabled {
		return nil
	}

	if err := uc.index.EnsureIndex(ctx); err != nil {
		return goerr.Wrap(err, "failed to prepare research index")
	}

	logger := logging.From(ctx)
	var stored, failed int
	for _, topic := range topics {
		if ctx.Err() != nil {
			return goerr.Wrap(ctx.Err(), "initialization interrupted",
				goerr.V("topic", topic),
				goerr.V("stored", stored))
		}

		result, err := uc.ingestShared(ctx, topic)
		if err != nil {
			failed++
			_ = errutil.Handle(ctx, goerr.Wrap(err, "topic skipped", goerr.V("topic", topic)), "failed to ingest topic")
			continue
		}
		stored += result.Stored
	}

	logger.Info("research database initialized",
		slog.Int("topics", len(topics)),
		slog.Int("failed", failed),
		slog.Int("stored", stored))
	return nil
}

// ingestShared coalesces concurrent passes for the same normalized topic.
// The pass keeps the values of the ctx that started it but not its
// cancellation, so a joined caller is never cut short by another caller's
// deadline. Each caller stops waiting when its own ctx is done.
func (uc *ResearchUseCase) ingestShared(ctx context.Context, topic string) (*model.IngestResult, error) {
	ch := uc.ingestGroup.DoChan(normalizeQuery(topic), func() (any, error) {
		passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.ingestTimeout)
		defer cancel()
		return uc.ingest(passCtx, topic)
	})

	select {
	case <-ctx.Done():
		return nil, goerr.Wrap(ctx.Err(), "stopped waiting for ingestion", goerr.V("topic", topic))
	case res := <-ch:
		if res.Shared {
			logging.From(ctx).Debug("joined in-flight ingestion", slog.String("topic", topic))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.IngestResult), nil
	}
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
