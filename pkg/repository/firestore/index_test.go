package firestore_test

import (
	"testing"

	"github.com/hera-health/hera/pkg/repository/firestore"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/gt"
)

func TestIndexConfig(t *testing.T) {
	cfg := firestore.IndexConfig("hera-womens-health-research", 1536)

	gt.Array(t, cfg.Collections).Length(1).Required()
	col := cfg.Collections[0]
	gt.Value(t, col.Name).Equal("hera-womens-health-research")
	gt.Array(t, col.Indexes).Length(1).Required()
	gt.Array(t, col.Indexes[0].Fields).Length(1).Required()

	field := col.Indexes[0].Fields[0]
	gt.Value(t, field.Path).Equal("Embedding")
	gt.Bool(t, field.Vector != nil).True()
	gt.Value(t, field.Vector.Dimension).Equal(1536)
	gt.NoError(t, cfg.Validate())
}

func TestIndexesToAdd(t *testing.T) {
	vectorIndex := fireconf.Index{
		Fields: []fireconf.IndexField{
			{Path: "Embedding", Vector: &fireconf.VectorConfig{Dimension: 4}},
		},
	}
	otherIndex := fireconf.Index{
		Fields: []fireconf.IndexField{
			{Path: "Source", Order: fireconf.OrderAscending},
			{Path: "PublishedDate", Order: fireconf.OrderDescending},
		},
	}

	t.Run("new collection needs its index", func(t *testing.T) {
		diff := &fireconf.DiffResult{Collections: []fireconf.CollectionDiff{
			{Name: "research", Action: fireconf.ActionAdd, IndexesToAdd: []fireconf.Index{vectorIndex}},
		}}
		gt.Array(t, firestore.IndexesToAdd(diff)).Length(1)
	})

	t.Run("existing collection missing the vector index", func(t *testing.T) {
		diff := &fireconf.DiffResult{Collections: []fireconf.CollectionDiff{
			{
				Name:            "research",
				Action:          fireconf.ActionModify,
				IndexesToAdd:    []fireconf.Index{vectorIndex},
				IndexesToDelete: []fireconf.Index{otherIndex},
			},
		}}
		pending := firestore.IndexesToAdd(diff)
		gt.Array(t, pending).Length(1).Required()
		gt.Value(t, pending[0].Fields[0].Path).Equal("Embedding")
	})

	t.Run("only unrelated indexes differ", func(t *testing.T) {
		diff := &fireconf.DiffResult{Collections: []fireconf.CollectionDiff{
			{Name: "research", Action: fireconf.ActionModify, IndexesToDelete: []fireconf.Index{otherIndex}},
			{Name: "legacy", Action: fireconf.ActionDelete, IndexesToDelete: []fireconf.Index{otherIndex}},
		}}
		gt.Array(t, firestore.IndexesToAdd(diff)).Length(0)
	})

	t.Run("no diff", func(t *testing.T) {
		gt.Array(t, firestore.IndexesToAdd(&fireconf.DiffResult{})).Length(0)
		gt.Array(t, firestore.IndexesToAdd(nil)).Length(0)
	})
}
