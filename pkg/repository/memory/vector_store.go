package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// VectorStore is an in-process implementation of interfaces.VectorStore using
// exact cosine similarity. It backs tests and single-node deployments.
type VectorStore struct {
	mu         sync.RWMutex
	indexes    map[string]*vectorIndex
	readyAfter int
}

type vectorIndex struct {
	spec         model.IndexSpec
	records      map[model.DocumentID]*model.VectorRecord
	pendingReady int
}

var _ interfaces.VectorStore = &VectorStore{}

// Option is a functional option for VectorStore configuration
type Option func(*VectorStore)

// WithReadyAfter makes a newly created index report not-ready for the first n
// IndexReady calls, emulating providers that provision asynchronously
func WithReadyAfter(n int) Option {
	return func(s *VectorStore) {
		s.readyAfter = n
	}
}

// New creates an empty in-memory VectorStore
func New(opts ...Option) *VectorStore {
	s := &VectorStore{
		indexes: make(map[string]*vectorIndex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func copyRecord(r *model.VectorRecord) *model.VectorRecord {
	copied := &model.VectorRecord{
		ID:       r.ID,
		Metadata: r.Metadata,
	}
	if r.Values != nil {
		copied.Values = make([]float32, len(r.Values))
		copy(copied.Values, r.Values)
	}
	return copied
}

func (s *VectorStore) HasIndex(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.indexes[name]
	return exists, nil
}

func (s *VectorStore) CreateIndex(ctx context.Context, spec model.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return goerr.Wrap(err, "invalid index spec")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.indexes[spec.Name]; exists {
		return goerr.Wrap(ErrIndexExists, "index already exists", goerr.V("index", spec.Name))
	}

	s.indexes[spec.Name] = &vectorIndex{
		spec:         spec,
		records:      make(map[model.DocumentID]*model.VectorRecord),
		pendingReady: s.readyAfter,
	}
	return nil
}

func (s *VectorStore) IndexReady(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.indexes[name]
	if !exists {
		return false, nil
	}
	if idx.pendingReady > 0 {
		idx.pendingReady--
		return false, nil
	}
	return true, nil
}

func (s *VectorStore) Upsert(ctx context.Context, index string, records []*model.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.indexes[index]
	if !exists {
		return goerr.Wrap(ErrIndexNotFound, "cannot upsert", goerr.V("index", index))
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		if len(r.Values) != idx.spec.Dimension {
			return goerr.Wrap(ErrDimensionMismatch, "cannot upsert",
				goerr.V("index", index),
				goerr.V("id", r.ID),
				goerr.V("expected", idx.spec.Dimension),
				goerr.V("actual", len(r.Values)))
		}
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		idx.records[r.ID] = copyRecord(r)
	}
	return nil
}

func (s *VectorStore) Query(ctx context.Context, index string, vector []float32, topK int, includeMetadata bool) ([]*model.SearchMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.indexes[index]
	if !exists {
		return nil, goerr.Wrap(ErrIndexNotFound, "cannot query", goerr.V("index", index))
	}
	if len(vector) != idx.spec.Dimension {
		return nil, goerr.Wrap(ErrDimensionMismatch, "cannot query",
			goerr.V("index", index),
			goerr.V("expected", idx.spec.Dimension),
			goerr.V("actual", len(vector)))
	}
	if topK <= 0 {
		return []*model.SearchMatch{}, nil
	}

	candidates := make([]*model.SearchMatch, 0, len(idx.records))
	for _, r := range idx.records {
		match := &model.SearchMatch{
			ID:    r.ID,
			Score: cosineSimilarity(vector, r.Values),
		}
		if includeMetadata {
			meta := r.Metadata
			match.Metadata = &meta
		}
		candidates = append(candidates, match)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].Score > candidates[j].Score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	return candidates[:topK], nil
}

// Len returns the number of records stored in the index
func (s *VectorStore) Len(index string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, exists := s.indexes[index]; exists {
		return len(idx.records)
	}
	return 0
}

func (s *VectorStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
