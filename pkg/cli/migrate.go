package cli

import (
	"context"

	gcfirestore "cloud.google.com/go/firestore"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/repository/firestore"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var collection string
	var dimension int
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate the Firestore vector index of the research collection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("HERA_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("HERA_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "collection",
				Usage:       "Collection holding research documents (collection prefix + index name)",
				Value:       model.DefaultIndexName,
				Sources:     cli.EnvVars("HERA_FIRESTORE_COLLECTION"),
				Destination: &collection,
			},
			&cli.IntFlag{
				Name:        "embedding-dimension",
				Usage:       "Embedding vector dimension",
				Value:       model.EmbeddingDimension,
				Sources:     cli.EnvVars("HERA_EMBEDDING_DIMENSION"),
				Destination: &dimension,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"collection", collection,
				"dimension", dimension,
				"dryRun", dryRun)

			indexConfig := firestore.IndexConfig(collection, dimension)

			if databaseID == "" {
				databaseID = gcfirestore.DefaultDatabaseID
			}

			pending, err := firestore.PendingIndexes(ctx, projectID, databaseID, indexConfig)
			if err != nil {
				return goerr.Wrap(err, "failed to check vector index")
			}
			if len(pending) == 0 {
				logger.Info("No changes required")
				return nil
			}
			for _, idx := range pending {
				for _, field := range idx.Fields {
					attrs := []any{"collection", collection, "field", field.Path}
					if field.Vector != nil {
						attrs = append(attrs, "dimension", field.Vector.Dimension)
					}
					logger.Info("Pending index", attrs...)
				}
			}

			if dryRun {
				logger.Info("Dry run mode - no changes applied")
				return nil
			}

			logger.Info("Applying migrations")
			if err := firestore.MigrateIndexes(ctx, projectID, databaseID, indexConfig, false); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")

			return nil
		},
	}
}
