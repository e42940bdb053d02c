package cli

import (
	"context"
	"log/slog"

	"github.com/hera-health/hera/pkg/cli/config"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// providers gathers the configuration of every external service the
// research use cases depend on
type providers struct {
	llm      config.LLM
	index    config.VectorIndex
	scraper  config.Scraper
	archive  config.Archive
	research config.Research
	chat     config.Chat
}

func (p *providers) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, p.llm.Flags()...)
	flags = append(flags, p.index.Flags()...)
	flags = append(flags, p.scraper.Flags()...)
	flags = append(flags, p.archive.Flags()...)
	flags = append(flags, p.research.Flags()...)
	flags = append(flags, p.chat.Flags()...)
	return flags
}

// Configure connects the providers and builds the use cases. Providers
// without credentials are left out, which puts research in disabled mode.
// The returned function releases every connection.
func (p *providers) Configure(ctx context.Context) (*usecase.UseCases, func(), error) {
	logger := logging.From(ctx)
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	researchOpts, err := p.research.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load research configuration")
	}

	llmClient, err := p.llm.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure LLM client")
	}
	if llmClient == nil {
		logger.Warn("LLM provider is not configured, research and chat are disabled")
	}

	source, scraperOpts, err := p.scraper.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure document source")
	}
	if source == nil {
		logger.Warn("Document source is not configured, research is disabled")
	}

	store, err := p.index.Configure(ctx, p.llm.Dimension())
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure vector store")
	}
	closers = append(closers, func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close vector store", "error", err.Error())
		}
	})

	archiveOpts, closeArchive, err := p.archive.Configure(ctx)
	if err != nil {
		closeAll()
		return nil, nil, goerr.Wrap(err, "failed to configure archive")
	}
	closers = append(closers, closeArchive)

	var opts []usecase.ResearchOption
	opts = append(opts, p.llm.ResearchOptions()...)
	opts = append(opts, p.index.ResearchOptions()...)
	opts = append(opts, scraperOpts...)
	opts = append(opts, archiveOpts...)
	opts = append(opts, researchOpts...)

	uc := usecase.New(store, llmClient, llmClient, source,
		usecase.WithResearchOptions(opts...),
		usecase.WithChatOptions(p.chat.Options()...))

	logger.Info("Providers configured",
		slog.Bool("research_enabled", uc.Research.IsServiceEnabled()),
		slog.Any("llm", slog.GroupValue(p.llm.LogAttrs()...)),
		slog.Any("index", slog.GroupValue(p.index.LogAttrs()...)),
		slog.Any("scraper", slog.GroupValue(p.scraper.LogAttrs()...)),
		slog.Any("archive", slog.GroupValue(p.archive.LogAttrs()...)),
		slog.Any("research", slog.GroupValue(p.research.LogAttrs()...)),
		slog.Any("chat", slog.GroupValue(p.chat.LogAttrs()...)))

	return uc, closeAll, nil
}
