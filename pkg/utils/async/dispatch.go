package async

import (
	"context"
	"time"

	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatch runs handler in a new goroutine detached from the request
// lifetime. The logger of ctx is carried over. Errors and panics are logged
// and reported, never propagated. A positive timeout bounds the handler.
func Dispatch(ctx context.Context, timeout time.Duration, handler func(ctx context.Context) error) {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	go func() {
		runCtx := bgCtx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(bgCtx, timeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(runCtx, goerr.New("panic in async handler", goerr.V("panic", r)), "async handler panicked")
			}
		}()

		if err := handler(runCtx); err != nil {
			_ = errutil.Handle(runCtx, err, "async handler failed")
		}
	}()
}
