package cli

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdSearch() *cli.Command {
	var topK int
	var smart bool
	var deps providers

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Aliases:     []string{"k"},
			Usage:       "Maximum number of results",
			Value:       usecase.DefaultTopK,
			Destination: &topK,
		},
		&cli.BoolFlag{
			Name:        "smart",
			Usage:       "Scrape curated sources first when the index has a knowledge gap",
			Destination: &smart,
		},
	}
	flags = append(flags, deps.Flags()...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search stored research and print the matches as JSON",
		ArgsUsage: "QUERY",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.Wrap(usecase.ErrEmptyQuery, "search requires a query argument")
			}

			uc, closer, err := deps.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if !uc.Research.IsServiceEnabled() {
				return goerr.Wrap(usecase.ErrServiceDisabled, "cannot search")
			}
			if err := uc.Research.EnsureIndex(ctx); err != nil {
				return goerr.Wrap(err, "failed to prepare research index")
			}

			var results []*model.SearchMatch
			if smart {
				results = uc.Research.SearchWithSmartScraping(ctx, query, topK)
			} else {
				results = uc.Research.Search(ctx, query, topK)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return goerr.Wrap(err, "failed to write results")
			}
			return nil
		},
	}
}
