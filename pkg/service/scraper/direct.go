package scraper

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultUserAgent identifies direct fetches
const DefaultUserAgent = "Mozilla/5.0 (compatible; hera-research/1.0)"

// Direct fetches pages itself and converts HTML to markdown. It is used when
// no scrape API is configured; pages that need JavaScript render poorly.
type Direct struct {
	httpClient *http.Client
	userAgent  string
}

var _ interfaces.DocumentSource = &Direct{}

// DirectOption is a functional option for Direct configuration
type DirectOption func(*Direct)

// WithDirectHTTPClient replaces the HTTP client
func WithDirectHTTPClient(c *http.Client) DirectOption {
	return func(d *Direct) {
		d.httpClient = c
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) DirectOption {
	return func(d *Direct) {
		d.userAgent = ua
	}
}

// NewDirect creates a new direct fetcher
func NewDirect(opts ...DirectOption) *Direct {
	d := &Direct{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads url and renders its content as markdown
func (d *Direct) Fetch(ctx context.Context, url string, opts model.FetchOptions) (*model.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch page", goerr.V("url", url))
	}
	defer safe.DrainClose(ctx, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, goerr.Wrap(ErrRateLimited, "page fetch throttled", goerr.V("url", url))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, goerr.Wrap(ErrUnexpectedStatus, "page fetch failed",
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read page", goerr.V("url", url))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") || strings.Contains(contentType, "text/markdown") {
		return &model.FetchResult{Success: true, Markdown: string(body)}, nil
	}

	markdown, err := HTMLToMarkdown(string(body), opts.ExcludeTags)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to convert page", goerr.V("url", url))
	}

	return &model.FetchResult{
		Success:  markdown != "",
		Markdown: markdown,
	}, nil
}
