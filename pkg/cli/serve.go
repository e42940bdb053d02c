package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	httpctrl "github.com/hera-health/hera/pkg/controller/http"
	"github.com/hera-health/hera/pkg/service/worker"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var initTimeout time.Duration
	var refreshInterval time.Duration
	var deps providers

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("HERA_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "initialize-timeout",
			Usage:       "Time budget of a bulk initialization started over HTTP",
			Value:       httpctrl.DefaultInitializeTimeout,
			Sources:     cli.EnvVars("HERA_INITIALIZE_TIMEOUT"),
			Destination: &initTimeout,
		},
		&cli.DurationFlag{
			Name:        "refresh-interval",
			Usage:       "Interval of background re-ingestion of default topics (0 disables)",
			Sources:     cli.EnvVars("HERA_REFRESH_INTERVAL"),
			Destination: &refreshInterval,
		},
	}

	// Add shared config flags
	flags = append(flags, deps.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := deps.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			// The index must exist before the first query
			if err := uc.Research.EnsureIndex(ctx); err != nil {
				return goerr.Wrap(err, "failed to prepare research index")
			}

			// Cancelled on every return path so an in-flight refresh does
			// not hold up shutdown
			workerCtx, cancelWorker := context.WithCancel(ctx)
			defer cancelWorker()

			if refreshInterval > 0 && uc.Research.IsServiceEnabled() {
				refresher := worker.NewResearchRefreshWorker(uc.Research, refreshInterval)
				refresher.Start(workerCtx)
				defer refresher.Stop()
			}

			httpHandler := httpctrl.New(uc.Research,
				httpctrl.WithChat(uc.Chat),
				httpctrl.WithInitializeTimeout(initTimeout))
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "research_enabled", uc.Research.IsServiceEnabled())
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
				cancelWorker()

				// Create shutdown context with timeout
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Attempt graceful shutdown
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
