package usecase

import (
	"context"
	"log/slog"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// hasGap reports whether the index lacks a match for query whose similarity
// reaches minSimilarity. Only the top match is considered. Any failure counts
// as a gap so that callers fall back to fetching fresh documents.
func (uc *ResearchUseCase) hasGap(ctx context.Context, query string, minSimilarity float64) (gap bool) {
	defer func() {
		if r := recover(); r != nil {
			_ = errutil.Handle(ctx, goerr.New("panic in gap check", goerr.V("panic", r), goerr.V("query", query)), "gap check recovered")
			gap = true
		}
	}()

	vec := uc.embedder.Embed(ctx, query)
	if vec == nil {
		return true
	}

	matches := uc.index.Query(ctx, vec, model.GapCheckTopK, false)
	if len(matches) == 0 {
		return true
	}

	top := matches[0]
	if !top.HasScore() || top.Score < minSimilarity {
		logging.From(ctx).Debug("top match below threshold",
			slog.String("query", query),
			slog.Float64("score", top.Score),
			slog.Float64("threshold", minSimilarity))
		return true
	}
	return false
}
