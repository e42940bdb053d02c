package cli

import (
	"context"

	"github.com/hera-health/hera/pkg/cli/config"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var path string
	var topics []string

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the research configuration file and preview topic routing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to the research TOML file",
				Required:    true,
				Sources:     cli.EnvVars("HERA_CONFIG"),
				Destination: &path,
			},
			&cli.StringSliceFlag{
				Name:        "topic",
				Aliases:     []string{"t"},
				Usage:       "Topic whose routing is previewed; repeatable. Defaults to the configured topics",
				Destination: &topics,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			file, err := config.LoadResearchFile(path)
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			r, err := file.Router()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			logger.Info("Configuration validation passed",
				"routes", len(file.Routes),
				"topics", len(file.Topics),
				"thresholds", file.Thresholds != nil,
			)

			if len(topics) == 0 {
				topics = file.Topics
			}
			for _, topic := range topics {
				logger.Info("Topic routing",
					"topic", topic,
					"route", r.RouteName(topic),
					"urls", r.Route(topic),
				)
			}

			return nil
		},
	}
}
