package interfaces

import (
	"context"

	"github.com/hera-health/hera/pkg/domain/model"
)

// VectorStore defines the interface for a similarity index provider holding
// research document vectors
type VectorStore interface {
	// HasIndex reports whether the named index exists
	HasIndex(ctx context.Context, name string) (bool, error)

	// CreateIndex provisions an index. Creation may complete asynchronously;
	// use IndexReady to observe readiness.
	CreateIndex(ctx context.Context, spec model.IndexSpec) error

	// IndexReady reports whether the named index accepts reads and writes
	IndexReady(ctx context.Context, name string) (bool, error)

	// Upsert writes records, overwriting existing records with the same ID
	Upsert(ctx context.Context, index string, records []*model.VectorRecord) error

	// Query returns at most topK matches ordered by descending score.
	// Metadata is populated only when includeMetadata is true.
	Query(ctx context.Context, index string, vector []float32, topK int, includeMetadata bool) ([]*model.SearchMatch, error)

	// Close releases the underlying connection
	Close() error
}
