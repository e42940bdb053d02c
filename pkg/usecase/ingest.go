package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ingest runs one pass of route, fetch, extract, embed and store for topic.
// Per-source failures are logged and skipped; an error is returned only when
// the pass as a whole cannot complete.
func (uc *ResearchUseCase) ingest(ctx context.Context, topic string) (*model.IngestResult, error) {
	result := &model.IngestResult{
		RunID: uuid.NewString(),
		Topic: topic,
		URLs:  uc.router.Route(topic),
	}
	logger := logging.From(ctx).With(
		slog.String("run_id", result.RunID),
		slog.String("topic", topic))
	ctx = logging.With(ctx, logger)

	var docs []*model.ResearchDocument
	for _, url := range result.URLs {
		if err := uc.scrapeLimiter.Wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "ingestion interrupted while waiting for source",
				goerr.V("topic", topic),
				goerr.V("url", url))
		}

		fetched, err := uc.source.Fetch(ctx, url, uc.fetchOptions)
		if err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "source skipped", goerr.V("url", url)), "failed to fetch source")
			continue
		}
		if fetched == nil || !fetched.Success {
			logger.Warn("source returned no content", slog.String("url", url))
			continue
		}
		result.Scraped++

		if err := uc.archive.Put(ctx, result.RunID, url, fetched.Markdown); err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "archive skipped", goerr.V("url", url)), "failed to archive source")
		}

		extracted := uc.extractor.Extract(fetched.Markdown, topic, url)
		logger.Debug("extracted documents", slog.String("url", url), slog.Int("count", len(extracted)))
		docs = append(docs, extracted...)
	}
	result.Extracted = len(docs)

	embedded := uc.embedder.EmbedBatch(ctx, docs)
	result.Embedded = len(embedded)
	if ctx.Err() != nil {
		return nil, goerr.Wrap(ctx.Err(), "ingestion interrupted while embedding", goerr.V("topic", topic))
	}

	stored, err := uc.index.Upsert(ctx, embedded)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store documents", goerr.V("topic", topic))
	}
	result.Stored = stored

	logger.Info("ingestion pass finished", slog.Any("result", result))
	return result, nil
}
