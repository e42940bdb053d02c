package safe_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hera-health/hera/pkg/utils/safe"
	"github.com/m-mizutani/gt"
)

type trackingBody struct {
	*strings.Reader
	closed   bool
	closeErr error
}

func (b *trackingBody) Close() error {
	b.closed = true
	return b.closeErr
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	t.Run("nil closer", func(t *testing.T) {
		safe.Close(ctx, nil)
	})

	t.Run("close error is swallowed", func(t *testing.T) {
		body := &trackingBody{Reader: strings.NewReader(""), closeErr: errors.New("boom")}
		safe.Close(ctx, body)
		gt.Bool(t, body.closed).True()
	})
}

func TestDrainClose(t *testing.T) {
	ctx := context.Background()

	t.Run("reads remaining body and closes", func(t *testing.T) {
		body := &trackingBody{Reader: strings.NewReader("unread payload")}
		safe.DrainClose(ctx, body)
		gt.Bool(t, body.closed).True()
		gt.Value(t, body.Len()).Equal(0)
	})

	t.Run("nil body", func(t *testing.T) {
		safe.DrainClose(ctx, nil)
	})
}
