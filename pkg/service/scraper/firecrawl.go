package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultFirecrawlBaseURL is the hosted Firecrawl API endpoint
const DefaultFirecrawlBaseURL = "https://api.firecrawl.dev"

const maxResponseSize = 8 << 20

// Backoffer is notified when the source asks the caller to slow down
type Backoffer interface {
	Backoff(d time.Duration)
}

// Firecrawl fetches pages through a Firecrawl compatible scrape API
type Firecrawl struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	backoff    Backoffer
}

var _ interfaces.DocumentSource = &Firecrawl{}

// FirecrawlOption is a functional option for Firecrawl configuration
type FirecrawlOption func(*Firecrawl)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) FirecrawlOption {
	return func(f *Firecrawl) {
		f.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) FirecrawlOption {
	return func(f *Firecrawl) {
		f.httpClient = c
	}
}

// WithBackoff registers the limiter to slow down on HTTP 429
func WithBackoff(b Backoffer) FirecrawlOption {
	return func(f *Firecrawl) {
		f.backoff = b
	}
}

// NewFirecrawl creates a new Firecrawl client
func NewFirecrawl(apiKey string, opts ...FirecrawlOption) *Firecrawl {
	f := &Firecrawl{
		apiKey:     apiKey,
		baseURL:    DefaultFirecrawlBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	WaitFor         int      `json:"waitFor,omitempty"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Fetch scrapes url and returns its markdown rendering
func (f *Firecrawl) Fetch(ctx context.Context, url string, opts model.FetchOptions) (*model.FetchResult, error) {
	body, err := json.Marshal(scrapeRequest{
		URL:             url,
		Formats:         opts.Formats,
		IncludeTags:     opts.IncludeTags,
		ExcludeTags:     opts.ExcludeTags,
		WaitFor:         opts.WaitFor,
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal scrape request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create scrape request", goerr.V("url", url))
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call scrape API", goerr.V("url", url))
	}
	defer safe.DrainClose(ctx, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp.Header.Get("Retry-After"))
		if f.backoff != nil {
			f.backoff.Backoff(wait)
		}
		return nil, goerr.Wrap(ErrRateLimited, "scrape API throttled",
			goerr.V("url", url),
			goerr.V("retry_after", wait.String()))
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, goerr.Wrap(ErrUnexpectedStatus, "scrape API returned error",
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(snippet)))
	}

	var out scrapeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode scrape response", goerr.V("url", url))
	}
	if !out.Success {
		return nil, goerr.Wrap(ErrScrapeFailed, "scrape was not successful",
			goerr.V("url", url),
			goerr.V("reason", out.Error))
	}

	return &model.FetchResult{
		Success:  true,
		Markdown: out.Data.Markdown,
	}, nil
}

func retryAfter(v string) time.Duration {
	if sec, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return 0
}
