package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestFromFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.SetDefault(logger)

	logging.From(context.Background()).Info("hello")
	gt.String(t, buf.String()).Contains("hello")
}

func TestWithOverridesDefault(t *testing.T) {
	var defBuf, ctxBuf bytes.Buffer
	logging.SetDefault(slog.New(slog.NewJSONHandler(&defBuf, nil)))

	ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&ctxBuf, nil)))
	logging.From(ctx).Info("scoped")

	gt.String(t, ctxBuf.String()).Contains("scoped")
	gt.Value(t, defBuf.Len()).Equal(0)
}

func TestSetDefaultIgnoresNil(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	logging.SetDefault(logger)
	logging.SetDefault(nil)
	gt.Value(t, logging.Default()).Equal(logger)
}
