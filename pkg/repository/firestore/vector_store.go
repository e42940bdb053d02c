package firestore

import (
	"context"
	"math"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const (
	// embeddingField is the vector field path used by FindNearest and the index
	embeddingField = "Embedding"
	// distanceField receives the cosine distance of each vector search result
	distanceField = "vector_distance"
	// maxWritesPerTransaction is the Firestore limit of writes in a transaction
	maxWritesPerTransaction = 500
)

// researchDoc is the Firestore document representation of a stored research
// record. Embedding is stored as firestore.Vector32 so that FindNearest works.
type researchDoc struct {
	ID            model.DocumentID   `firestore:"ID"`
	Title         string             `firestore:"Title"`
	Content       string             `firestore:"Content"`
	URL           string             `firestore:"URL"`
	Source        string             `firestore:"Source"`
	Topics        string             `firestore:"Topics"`
	PublishedDate string             `firestore:"PublishedDate"`
	Embedding     firestore.Vector32 `firestore:"Embedding"`
}

func toResearchDoc(r *model.VectorRecord) *researchDoc {
	return &researchDoc{
		ID:            r.ID,
		Title:         r.Metadata.Title,
		Content:       r.Metadata.Content,
		URL:           r.Metadata.URL,
		Source:        r.Metadata.Source,
		Topics:        r.Metadata.Topics,
		PublishedDate: r.Metadata.PublishedDate,
		Embedding:     firestore.Vector32(r.Values),
	}
}

func (d *researchDoc) metadata() *model.Metadata {
	return &model.Metadata{
		Title:         d.Title,
		Content:       d.Content,
		URL:           d.URL,
		Source:        d.Source,
		Topics:        d.Topics,
		PublishedDate: d.PublishedDate,
	}
}

// VectorStore implements interfaces.VectorStore on Firestore vector search.
// Each index is a collection; the vector index on it is managed by fireconf.
type VectorStore struct {
	client           *firestore.Client
	collectionPrefix string

	// vector index management, replaced in tests
	pendingIndexes func(ctx context.Context, cfg *fireconf.Config) ([]fireconf.Index, error)
	migrate        func(ctx context.Context, cfg *fireconf.Config) error

	mu         sync.Mutex
	dimensions map[string]int
}

var _ interfaces.VectorStore = &VectorStore{}

// Option is a functional option for VectorStore configuration
type Option func(*VectorStore)

// WithCollectionPrefix prepends prefix to every collection name
func WithCollectionPrefix(prefix string) Option {
	return func(s *VectorStore) {
		s.collectionPrefix = prefix
	}
}

// WithDimension sets the vector dimension assumed for indexes that were not
// created by this process. HasIndex and IndexReady compare against it.
func WithDimension(index string, dim int) Option {
	return func(s *VectorStore) {
		s.dimensions[index] = dim
	}
}

// New creates a Firestore backed VectorStore
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*VectorStore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	s := &VectorStore{
		client: client,
		pendingIndexes: func(ctx context.Context, cfg *fireconf.Config) ([]fireconf.Index, error) {
			return PendingIndexes(ctx, projectID, databaseID, cfg)
		},
		migrate: func(ctx context.Context, cfg *fireconf.Config) error {
			return MigrateIndexes(ctx, projectID, databaseID, cfg, false)
		},
		dimensions: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *VectorStore) collection(index string) string {
	return s.collectionPrefix + index
}

func (s *VectorStore) indexConfig(index string) *fireconf.Config {
	s.mu.Lock()
	dim, ok := s.dimensions[index]
	s.mu.Unlock()
	if !ok {
		dim = model.EmbeddingDimension
	}
	return IndexConfig(s.collection(index), dim)
}

func (s *VectorStore) HasIndex(ctx context.Context, name string) (bool, error) {
	pending, err := s.pendingIndexes(ctx, s.indexConfig(name))
	if err != nil {
		return false, goerr.Wrap(err, "failed to check vector index", goerr.V("index", name))
	}
	return len(pending) == 0, nil
}

func (s *VectorStore) CreateIndex(ctx context.Context, spec model.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return goerr.Wrap(err, "invalid index spec")
	}

	s.mu.Lock()
	s.dimensions[spec.Name] = spec.Dimension
	s.mu.Unlock()

	if err := s.migrate(ctx, s.indexConfig(spec.Name)); err != nil {
		return goerr.Wrap(err, "failed to create vector index", goerr.V("index", spec.Name))
	}
	return nil
}

// IndexReady reports true once fireconf sees no pending index
func (s *VectorStore) IndexReady(ctx context.Context, name string) (bool, error) {
	return s.HasIndex(ctx, name)
}

func (s *VectorStore) Upsert(ctx context.Context, index string, records []*model.VectorRecord) error {
	col := s.client.Collection(s.collection(index))

	for start := 0; start < len(records); start += maxWritesPerTransaction {
		end := min(start+maxWritesPerTransaction, len(records))
		chunk := records[start:end]

		err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, r := range chunk {
				if r == nil {
					continue
				}
				if err := tx.Set(col.Doc(string(r.ID)), toResearchDoc(r)); err != nil {
					return goerr.Wrap(err, "failed to set research document", goerr.V("id", r.ID))
				}
			}
			return nil
		})
		if err != nil {
			return goerr.Wrap(err, "failed to upsert research documents",
				goerr.V("index", index),
				goerr.V("count", len(chunk)))
		}
	}

	return nil
}

func (s *VectorStore) Query(ctx context.Context, index string, vector []float32, topK int, includeMetadata bool) ([]*model.SearchMatch, error) {
	if topK <= 0 {
		return []*model.SearchMatch{}, nil
	}

	vq := s.client.Collection(s.collection(index)).
		FindNearest(embeddingField, firestore.Vector32(vector), topK, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	matches := make([]*model.SearchMatch, 0, topK)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results", goerr.V("index", index))
		}

		var doc researchDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal research document",
				goerr.V("index", index),
				goerr.V("id", snap.Ref.ID))
		}

		match := &model.SearchMatch{
			ID:    model.DocumentID(snap.Ref.ID),
			Score: scoreFromDistance(snap.Data()[distanceField]),
		}
		if includeMetadata {
			match.Metadata = doc.metadata()
		}
		matches = append(matches, match)
	}

	return matches, nil
}

func (s *VectorStore) Close() error {
	if err := s.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

// scoreFromDistance converts a cosine distance into a similarity score.
// A missing distance yields NaN so that callers treat the score as absent.
func scoreFromDistance(v any) float64 {
	switch d := v.(type) {
	case float64:
		return 1 - d
	case int64:
		return 1 - float64(d)
	default:
		return math.NaN()
	}
}
