package firestore

import (
	"context"

	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
)

// IndexConfig returns the fireconf configuration declaring the vector index
// of the named research collection
func IndexConfig(collection string, dimension int) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: collection,
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{
								Path: embeddingField,
								Vector: &fireconf.VectorConfig{
									Dimension: dimension,
								},
							},
						},
					},
				},
			},
		},
	}
}

// PendingIndexes returns the indexes declared by cfg that do not exist yet.
// Indexes present in Firestore but absent from cfg are left alone.
func PendingIndexes(ctx context.Context, projectID, databaseID string, cfg *fireconf.Config) ([]fireconf.Index, error) {
	client, err := fireconf.New(ctx, projectID, databaseID, cfg, fireconf.WithLogger(logging.From(ctx)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create fireconf client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}
	defer func() { _ = client.Close() }()

	names := make([]string, 0, len(cfg.Collections))
	for _, col := range cfg.Collections {
		names = append(names, col.Name)
	}

	current, err := client.Import(ctx, names...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to import current indexes", goerr.V("collections", names))
	}

	diff, err := client.DiffConfigs(current)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to diff index configuration", goerr.V("collections", names))
	}

	return indexesToAdd(diff), nil
}

// MigrateIndexes applies cfg to Firestore. With dryRun, fireconf only logs
// the changes it would make.
func MigrateIndexes(ctx context.Context, projectID, databaseID string, cfg *fireconf.Config, dryRun bool) error {
	client, err := fireconf.New(ctx, projectID, databaseID, cfg,
		fireconf.WithLogger(logging.From(ctx)),
		fireconf.WithDryRun(dryRun))
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}
	defer func() { _ = client.Close() }()

	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to migrate indexes", goerr.V("dryRun", dryRun))
	}
	return nil
}

func indexesToAdd(diff *fireconf.DiffResult) []fireconf.Index {
	if diff == nil {
		return nil
	}

	var pending []fireconf.Index
	for _, col := range diff.Collections {
		if col.Action == fireconf.ActionDelete {
			continue
		}
		pending = append(pending, col.IndexesToAdd...)
	}
	return pending
}
