package cli

import (
	"context"

	"github.com/hera-health/hera/pkg/usecase"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdInit() *cli.Command {
	var topics []string
	var deps providers

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "topic",
			Aliases:     []string{"t"},
			Usage:       "Topic to ingest; repeatable. The configured default topics are used when omitted",
			Destination: &topics,
		},
	}
	flags = append(flags, deps.Flags()...)

	return &cli.Command{
		Name:  "init",
		Usage: "Provision the vector index and ingest research for the given topics",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := deps.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if !uc.Research.IsServiceEnabled() {
				return goerr.Wrap(usecase.ErrServiceDisabled, "cannot initialize research database")
			}

			logger := logging.Default()
			if len(topics) == 0 {
				logger.Info("Initializing research database with default topics")
				err = uc.Research.InitializeResearchDatabase(ctx)
			} else {
				logger.Info("Initializing research database", "topics", topics)
				err = uc.Research.InitializeAll(ctx, topics)
			}
			if err != nil {
				return goerr.Wrap(err, "initialization failed")
			}

			logger.Info("Initialization completed")
			return nil
		},
	}
}
