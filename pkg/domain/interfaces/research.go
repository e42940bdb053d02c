package interfaces

import (
	"context"

	"github.com/hera-health/hera/pkg/domain/model"
)

// DocumentSource fetches a page and renders it as markdown
type DocumentSource interface {
	Fetch(ctx context.Context, url string, opts model.FetchOptions) (*model.FetchResult, error)
}

// ContentExtractor turns rendered page text into research documents.
// Implementations must be pure and return an empty list when nothing matches.
type ContentExtractor interface {
	Extract(rawText, topic, sourceURL string) []*model.ResearchDocument
}

// Limiter blocks until the caller may issue the next request.
// *rate.Limiter satisfies this interface.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Archive stores raw scraped content for later inspection
type Archive interface {
	Put(ctx context.Context, runID, url, content string) error
}
