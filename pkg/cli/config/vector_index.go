package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/repository/firestore"
	"github.com/hera-health/hera/pkg/repository/memory"
	"github.com/hera-health/hera/pkg/repository/milvus"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Vector index backend names
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendMilvus    = "milvus"
)

// VectorIndex holds CLI flags for the vector store backend
type VectorIndex struct {
	backend          string
	indexName        string
	projectID        string
	databaseID       string
	collectionPrefix string
	milvusAddress    string
	milvusToken      string `masq:"secret"`
	pollInterval     time.Duration
	pollTimeout      time.Duration
}

// Flags returns CLI flags for vector index configuration
func (x *VectorIndex) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vector-backend",
			Category:    "Vector Index",
			Usage:       "Vector store backend (memory, firestore, milvus)",
			Value:       BackendMemory,
			Sources:     cli.EnvVars("HERA_VECTOR_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "index-name",
			Category:    "Vector Index",
			Usage:       "Name of the research vector index",
			Value:       model.DefaultIndexName,
			Sources:     cli.EnvVars("HERA_INDEX_NAME"),
			Destination: &x.indexName,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Category:    "Vector Index",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("HERA_FIRESTORE_PROJECT_ID"),
			Destination: &x.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Category:    "Vector Index",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("HERA_FIRESTORE_DATABASE_ID"),
			Destination: &x.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Category:    "Vector Index",
			Usage:       "Prefix of Firestore collections holding indexes",
			Sources:     cli.EnvVars("HERA_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &x.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "milvus-address",
			Category:    "Vector Index",
			Usage:       "Milvus address (required when using milvus backend)",
			Sources:     cli.EnvVars("HERA_MILVUS_ADDRESS"),
			Destination: &x.milvusAddress,
		},
		&cli.StringFlag{
			Name:        "milvus-token",
			Category:    "Vector Index",
			Usage:       "Milvus API token",
			Sources:     cli.EnvVars("HERA_MILVUS_TOKEN"),
			Destination: &x.milvusToken,
		},
		&cli.DurationFlag{
			Name:        "index-ready-interval",
			Category:    "Vector Index",
			Usage:       "Polling interval while waiting for a new index",
			Value:       5 * time.Second,
			Sources:     cli.EnvVars("HERA_INDEX_READY_INTERVAL"),
			Destination: &x.pollInterval,
		},
		&cli.DurationFlag{
			Name:        "index-ready-timeout",
			Category:    "Vector Index",
			Usage:       "Maximum wait for a new index to become ready",
			Value:       2 * time.Minute,
			Sources:     cli.EnvVars("HERA_INDEX_READY_TIMEOUT"),
			Destination: &x.pollTimeout,
		},
	}
}

// LogAttrs returns log attributes for the vector index configuration
func (x *VectorIndex) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("backend", x.backend),
		slog.String("index", x.indexName),
		slog.String("project_id", x.projectID),
		slog.String("database_id", x.databaseID),
		slog.String("milvus_address", x.milvusAddress),
		slog.Duration("ready_interval", x.pollInterval),
		slog.Duration("ready_timeout", x.pollTimeout),
	}
}

// Backend returns the configured backend type
func (x *VectorIndex) Backend() string {
	return x.backend
}

// IndexName returns the research index name
func (x *VectorIndex) IndexName() string {
	return x.indexName
}

// ProjectID returns the Firestore project ID
func (x *VectorIndex) ProjectID() string {
	return x.projectID
}

// DatabaseID returns the Firestore database ID
func (x *VectorIndex) DatabaseID() string {
	return x.databaseID
}

// Collection returns the Firestore collection backing the index
func (x *VectorIndex) Collection() string {
	return x.collectionPrefix + x.indexName
}

// ResearchOptions returns the research options derived from the index settings
func (x *VectorIndex) ResearchOptions() []usecase.ResearchOption {
	return []usecase.ResearchOption{
		usecase.WithIndexName(x.indexName),
		usecase.WithIndexReadyPolling(x.pollInterval, x.pollTimeout),
	}
}

// Configure initializes and returns a vector store for the configured
// backend. dimension is the embedding width expected by existing indexes.
// The caller is responsible for calling Close() on the returned store.
func (x *VectorIndex) Configure(ctx context.Context, dimension int) (interfaces.VectorStore, error) {
	if x.indexName == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "index name is required")
	}

	switch x.backend {
	case BackendFirestore:
		if x.projectID == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
		}
		store, err := firestore.New(ctx, x.projectID, x.databaseID,
			firestore.WithCollectionPrefix(x.collectionPrefix),
			firestore.WithDimension(x.indexName, dimension))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore vector store")
		}
		logging.Default().Info("Using Firestore vector store",
			"project_id", x.projectID,
			"database_id", x.databaseID,
		)
		return store, nil

	case BackendMilvus:
		if x.milvusAddress == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "milvus-address is required when using milvus backend")
		}
		store, err := milvus.New(ctx, x.milvusAddress, x.milvusToken)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize milvus vector store")
		}
		logging.Default().Info("Using Milvus vector store", "address", x.milvusAddress)
		return store, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory vector store (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid vector backend", goerr.V("backend", x.backend))
	}
}
