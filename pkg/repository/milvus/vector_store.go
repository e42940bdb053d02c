package milvus

import (
	"context"
	"math"
	"strconv"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// Field names of a research collection
const (
	FieldID            = "id"
	FieldVector        = "vector"
	FieldTitle         = "title"
	FieldContent       = "content"
	FieldURL           = "url"
	FieldSource        = "source"
	FieldTopics        = "topics"
	FieldPublishedDate = "published_date"
)

// HNSW build parameters
const (
	hnswM              = 16
	hnswEfConstruction = 200
)

var metadataFields = []string{
	FieldTitle, FieldContent, FieldURL, FieldSource, FieldTopics, FieldPublishedDate,
}

// VectorStore implements interfaces.VectorStore on a Milvus collection with a
// cosine HNSW index. Each index is a collection.
type VectorStore struct {
	client *milvusclient.Client
}

var _ interfaces.VectorStore = &VectorStore{}

// New connects to Milvus at address. token may be empty.
func New(ctx context.Context, address, token string) (*VectorStore, error) {
	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: address,
		APIKey:  token,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to milvus", goerr.V("address", address))
	}

	return &VectorStore{client: client}, nil
}

func researchSchema(spec model.IndexSpec) *entity.Schema {
	varchar := func(name string, maxLength int) *entity.Field {
		return &entity.Field{
			Name:     name,
			DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{
				"max_length": strconv.Itoa(maxLength),
			},
		}
	}

	return &entity.Schema{
		CollectionName: spec.Name,
		Description:    "Research documents for retrieval augmented answers",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     FieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(spec.Dimension),
				},
			},
			varchar(FieldTitle, 1024),
			varchar(FieldContent, 8192),
			varchar(FieldURL, 2048),
			varchar(FieldSource, 256),
			varchar(FieldTopics, 2048),
			varchar(FieldPublishedDate, 16),
		},
	}
}

func (s *VectorStore) HasIndex(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, goerr.Wrap(err, "failed to check collection", goerr.V("collection", name))
	}
	return exists, nil
}

// CreateIndex creates the collection, builds the cosine HNSW index on the
// vector field and requests loading. Loading completes asynchronously.
func (s *VectorStore) CreateIndex(ctx context.Context, spec model.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return goerr.Wrap(err, "invalid index spec")
	}

	createOpt := milvusclient.NewCreateCollectionOption(spec.Name, researchSchema(spec))
	if err := s.client.CreateCollection(ctx, createOpt); err != nil {
		return goerr.Wrap(err, "failed to create collection", goerr.V("collection", spec.Name))
	}

	idx := index.NewHNSWIndex(entity.COSINE, hnswM, hnswEfConstruction)
	if _, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(spec.Name, FieldVector, idx)); err != nil {
		return goerr.Wrap(err, "failed to create vector index", goerr.V("collection", spec.Name))
	}

	if _, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(spec.Name)); err != nil {
		return goerr.Wrap(err, "failed to load collection", goerr.V("collection", spec.Name))
	}

	return nil
}

// IndexReady reports whether the collection is loaded and searchable
func (s *VectorStore) IndexReady(ctx context.Context, name string) (bool, error) {
	state, err := s.client.GetLoadState(ctx, milvusclient.NewGetLoadStateOption(name))
	if err != nil {
		return false, goerr.Wrap(err, "failed to get load state", goerr.V("collection", name))
	}
	return state.State == entity.LoadStateLoaded, nil
}

func (s *VectorStore) Upsert(ctx context.Context, index string, records []*model.VectorRecord) error {
	var (
		ids, titles, contents, urls, sources, topics, dates []string
		vectors                                             [][]float32
	)

	dim := 0
	for _, r := range records {
		if r == nil {
			continue
		}
		if dim == 0 {
			dim = len(r.Values)
		}
		ids = append(ids, string(r.ID))
		vectors = append(vectors, r.Values)
		titles = append(titles, r.Metadata.Title)
		contents = append(contents, r.Metadata.Content)
		urls = append(urls, r.Metadata.URL)
		sources = append(sources, r.Metadata.Source)
		topics = append(topics, r.Metadata.Topics)
		dates = append(dates, r.Metadata.PublishedDate)
	}
	if len(ids) == 0 {
		return nil
	}

	opt := milvusclient.NewColumnBasedInsertOption(index).
		WithVarcharColumn(FieldID, ids).
		WithFloatVectorColumn(FieldVector, dim, vectors).
		WithVarcharColumn(FieldTitle, titles).
		WithVarcharColumn(FieldContent, contents).
		WithVarcharColumn(FieldURL, urls).
		WithVarcharColumn(FieldSource, sources).
		WithVarcharColumn(FieldTopics, topics).
		WithVarcharColumn(FieldPublishedDate, dates)

	if _, err := s.client.Upsert(ctx, opt); err != nil {
		return goerr.Wrap(err, "failed to upsert research documents",
			goerr.V("collection", index),
			goerr.V("count", len(ids)))
	}
	return nil
}

func (s *VectorStore) Query(ctx context.Context, index string, vector []float32, topK int, includeMetadata bool) ([]*model.SearchMatch, error) {
	if topK <= 0 {
		return []*model.SearchMatch{}, nil
	}

	opt := milvusclient.NewSearchOption(index, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldVector)
	if includeMetadata {
		opt = opt.WithOutputFields(metadataFields...)
	}

	results, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search collection", goerr.V("collection", index))
	}
	if len(results) == 0 {
		return []*model.SearchMatch{}, nil
	}

	rs := results[0]
	matches := make([]*model.SearchMatch, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsString(i)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read result id", goerr.V("collection", index), goerr.V("row", i))
		}

		score := math.NaN()
		if i < len(rs.Scores) {
			score = float64(rs.Scores[i])
		}

		match := &model.SearchMatch{
			ID:    model.DocumentID(id),
			Score: score,
		}
		if includeMetadata {
			match.Metadata = &model.Metadata{
				Title:         stringAt(rs.GetColumn(FieldTitle), i),
				Content:       stringAt(rs.GetColumn(FieldContent), i),
				URL:           stringAt(rs.GetColumn(FieldURL), i),
				Source:        stringAt(rs.GetColumn(FieldSource), i),
				Topics:        stringAt(rs.GetColumn(FieldTopics), i),
				PublishedDate: stringAt(rs.GetColumn(FieldPublishedDate), i),
			}
		}
		matches = append(matches, match)
	}

	return matches, nil
}

func (s *VectorStore) Close() error {
	if err := s.client.Close(context.Background()); err != nil {
		return goerr.Wrap(err, "failed to close milvus client")
	}
	return nil
}

func stringAt(col column.Column, i int) string {
	if col == nil || i >= col.Len() {
		return ""
	}
	v, err := col.GetAsString(i)
	if err != nil {
		return ""
	}
	return v
}
