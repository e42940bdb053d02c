package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/hera-health/hera/pkg/utils/logging"
)

// maxDrain bounds how much of an unread body is discarded before closing
const maxDrain = 64 << 10

// Close safely closes an io.Closer and logs any errors.
// It handles nil closers gracefully.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// DrainClose discards what is left of an HTTP response body and closes it,
// so the underlying connection can be reused.
func DrainClose(ctx context.Context, body io.ReadCloser) {
	if body == nil {
		return
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(body, maxDrain)); err != nil {
		logging.From(ctx).Debug("Failed to drain body", slog.Any("error", err))
	}
	Close(ctx, body)
}
