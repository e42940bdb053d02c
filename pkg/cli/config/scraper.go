package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/service/ratelimit"
	"github.com/hera-health/hera/pkg/service/scraper"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Scraper modes
const (
	ScraperFirecrawl = "firecrawl"
	ScraperDirect    = "direct"
)

// Scraper holds CLI flags for the document source
type Scraper struct {
	mode      string
	apiKey    string `masq:"secret"`
	baseURL   string
	userAgent string
	timeout   time.Duration
	interval  time.Duration
}

// Flags returns CLI flags for scraper configuration
func (x *Scraper) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "scraper-mode",
			Category:    "Scraper",
			Usage:       "Document source (firecrawl, direct)",
			Value:       ScraperFirecrawl,
			Sources:     cli.EnvVars("HERA_SCRAPER_MODE"),
			Destination: &x.mode,
		},
		&cli.StringFlag{
			Name:        "firecrawl-api-key",
			Category:    "Scraper",
			Usage:       "Firecrawl API key; research features are disabled in firecrawl mode when empty",
			Sources:     cli.EnvVars("HERA_FIRECRAWL_API_KEY", "FIRECRAWL_API_KEY"),
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "firecrawl-base-url",
			Category:    "Scraper",
			Usage:       "Firecrawl compatible API endpoint",
			Value:       scraper.DefaultFirecrawlBaseURL,
			Sources:     cli.EnvVars("HERA_FIRECRAWL_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "scraper-user-agent",
			Category:    "Scraper",
			Usage:       "User-Agent sent by the direct fetcher",
			Value:       scraper.DefaultUserAgent,
			Sources:     cli.EnvVars("HERA_SCRAPER_USER_AGENT"),
			Destination: &x.userAgent,
		},
		&cli.DurationFlag{
			Name:        "scraper-timeout",
			Category:    "Scraper",
			Usage:       "Timeout of a single page fetch",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("HERA_SCRAPER_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.DurationFlag{
			Name:        "scraper-interval",
			Category:    "Scraper",
			Usage:       "Minimum spacing between page fetches",
			Value:       ratelimit.DefaultScrapeInterval,
			Sources:     cli.EnvVars("HERA_SCRAPER_INTERVAL"),
			Destination: &x.interval,
		},
	}
}

// LogAttrs returns log attributes for the scraper configuration
func (x *Scraper) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("mode", x.mode),
		slog.Bool("api_key_configured", x.apiKey != ""),
		slog.String("base_url", x.baseURL),
		slog.String("user_agent", x.userAgent),
		slog.Duration("timeout", x.timeout),
		slog.Duration("interval", x.interval),
	}
}

// Configure creates the document source and the limiter spacing its
// requests. The source is nil when firecrawl mode has no API key.
func (x *Scraper) Configure() (interfaces.DocumentSource, []usecase.ResearchOption, error) {
	limiter := ratelimit.New(x.interval)
	opts := []usecase.ResearchOption{usecase.WithScrapeLimiter(limiter)}
	httpClient := &http.Client{Timeout: x.timeout}

	switch x.mode {
	case ScraperFirecrawl:
		if x.apiKey == "" {
			return nil, opts, nil
		}
		return scraper.NewFirecrawl(x.apiKey,
			scraper.WithBaseURL(x.baseURL),
			scraper.WithHTTPClient(httpClient),
			scraper.WithBackoff(limiter)), opts, nil

	case ScraperDirect:
		directOpts := []scraper.DirectOption{scraper.WithDirectHTTPClient(httpClient)}
		if x.userAgent != "" {
			directOpts = append(directOpts, scraper.WithUserAgent(x.userAgent))
		}
		return scraper.NewDirect(directOpts...), opts, nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "invalid scraper mode", goerr.V("mode", x.mode))
	}
}
