package embedding

import (
	"context"
	"log/slog"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// Client generates embedding vectors through a gollem LLM client. Provider
// failures never surface as errors: Embed returns nil and EmbedBatch drops the
// failed documents.
type Client struct {
	llmClient gollem.LLMClient
	dimension int
	limiter   interfaces.Limiter
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithDimension overrides the expected vector dimension
func WithDimension(dim int) Option {
	return func(c *Client) {
		c.dimension = dim
	}
}

// WithLimiter sets the limiter waited on before each provider call
func WithLimiter(l interfaces.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// New creates a new embedding Client
func New(llmClient gollem.LLMClient, opts ...Option) *Client {
	c := &Client{
		llmClient: llmClient,
		dimension: model.EmbeddingDimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the embedding of text, or nil if the provider call failed
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	vec, err := c.generate(ctx, text)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to generate embedding")
		return nil
	}
	return vec
}

// EmbedBatch embeds each document's content sequentially and returns only the
// documents whose embedding succeeded. Failed documents are excluded and
// logged. Cancellation of ctx stops the batch and returns what succeeded.
func (c *Client) EmbedBatch(ctx context.Context, docs []*model.ResearchDocument) []*model.ResearchDocument {
	logger := logging.From(ctx)
	embedded := make([]*model.ResearchDocument, 0, len(docs))

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if ctx.Err() != nil {
			logger.Warn("embedding batch interrupted",
				slog.Int("embedded", len(embedded)),
				slog.Int("total", len(docs)))
			break
		}

		vec, err := c.generate(ctx, doc.Content)
		if err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "document excluded from batch",
				goerr.V("doc_id", doc.ID),
				goerr.V("url", doc.URL)), "failed to embed document")
			continue
		}

		doc.Embedding = vec
		embedded = append(embedded, doc)
	}

	return embedded
}

func (c *Client) generate(ctx context.Context, text string) ([]float32, error) {
	if c.llmClient == nil {
		return nil, goerr.New("embedding client is not configured")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "rate limiter wait aborted")
		}
	}

	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "embedding provider failed")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("no embedding returned")
	}
	if len(embeddings[0]) != c.dimension {
		return nil, goerr.New("unexpected embedding dimension",
			goerr.V("expected", c.dimension),
			goerr.V("actual", len(embeddings[0])))
	}

	// Convert float64 to float32
	result := make([]float32, len(embeddings[0]))
	for i, v := range embeddings[0] {
		result[i] = float32(v)
	}

	return result, nil
}
