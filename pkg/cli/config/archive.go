package config

import (
	"context"
	"log/slog"

	"github.com/hera-health/hera/pkg/service/archive"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Archive holds CLI flags for storing raw scraped content
type Archive struct {
	bucket string
	prefix string
}

// Flags returns CLI flags for archive configuration
func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Category:    "Archive",
			Usage:       "Cloud Storage bucket for raw scraped pages; archiving is disabled when empty",
			Sources:     cli.EnvVars("HERA_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Category:    "Archive",
			Usage:       "Object name prefix in the archive bucket",
			Value:       archive.DefaultPrefix,
			Sources:     cli.EnvVars("HERA_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

// LogAttrs returns log attributes for the archive configuration
func (x *Archive) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	}
}

// Configure returns the research option installing the archive and a
// function releasing it. Nothing is installed when no bucket is set.
func (x *Archive) Configure(ctx context.Context) ([]usecase.ResearchOption, func(), error) {
	if x.bucket == "" {
		return nil, func() {}, nil
	}

	gcs, err := archive.NewGCS(ctx, x.bucket, archive.WithPrefix(x.prefix))
	if err != nil {
		return nil, func() {}, goerr.Wrap(err, "failed to initialize archive", goerr.V("bucket", x.bucket))
	}

	closer := func() {
		if err := gcs.Close(); err != nil {
			logging.Default().Error("failed to close archive", "error", err.Error())
		}
	}
	return []usecase.ResearchOption{usecase.WithArchive(gcs)}, closer, nil
}
