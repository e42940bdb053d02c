package router

import (
	"net/url"
	"strings"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const pubmedSearch = "https://pubmed.ncbi.nlm.nih.gov/?term=" + model.QueryPlaceholder

// DefaultRoutes returns the built-in curated sources in priority order
func DefaultRoutes() []model.TopicRoute {
	return []model.TopicRoute{
		{
			Name:     "pcos",
			Keywords: []string{"pcos", "polycystic"},
			URLs: []string{
				pubmedSearch,
				"https://www.nichd.nih.gov/health/topics/pcos",
				"https://www.womenshealth.gov/a-z-topics/polycystic-ovary-syndrome",
			},
		},
		{
			Name:     "endometriosis",
			Keywords: []string{"endometriosis"},
			URLs: []string{
				pubmedSearch,
				"https://www.nichd.nih.gov/health/topics/endometri",
				"https://www.who.int/news-room/fact-sheets/detail/endometriosis",
			},
		},
		{
			Name:     "stress",
			Keywords: []string{"stress", "cortisol"},
			URLs: []string{
				pubmedSearch,
				"https://www.nimh.nih.gov/health/publications/so-stressed-out-fact-sheet",
			},
		},
		{
			Name:     "thyroid",
			Keywords: []string{"thyroid"},
			URLs: []string{
				pubmedSearch,
				"https://www.niddk.nih.gov/health-information/endocrine-diseases/hypothyroidism",
				"https://www.thyroid.org/thyroid-disease-pregnancy/",
			},
		},
	}
}

// DefaultFallback returns the generic sources used when no route matches
func DefaultFallback() []string {
	return []string{
		pubmedSearch,
		"https://www.womenshealth.gov/a-z-topics",
	}
}

// Router maps a topic to the source URLs to scrape for it
type Router struct {
	routes   []model.TopicRoute
	fallback []string
}

// Option is a functional option for Router configuration
type Option func(*Router)

// WithRoutes replaces the built-in routes. Order is priority order.
func WithRoutes(routes []model.TopicRoute) Option {
	return func(r *Router) {
		r.routes = routes
	}
}

// WithFallback replaces the generic sources
func WithFallback(urls []string) Option {
	return func(r *Router) {
		r.fallback = urls
	}
}

// New creates a Router and validates its routes
func New(opts ...Option) (*Router, error) {
	r := &Router{
		routes:   DefaultRoutes(),
		fallback: DefaultFallback(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range r.routes {
		if err := r.routes[i].Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid topic route", goerr.V("position", i))
		}
	}
	if len(r.fallback) == 0 {
		return nil, goerr.New("fallback sources are required")
	}

	return r, nil
}

// Route returns the URLs for topic. The first route whose keyword occurs in
// the lower-cased topic wins; otherwise the fallback sources are returned.
func (r *Router) Route(topic string) []string {
	lower := strings.ToLower(topic)

	urls := r.fallback
	for i := range r.routes {
		if r.routes[i].Matches(lower) {
			urls = r.routes[i].URLs
			break
		}
	}

	escaped := url.QueryEscape(strings.TrimSpace(topic))
	result := make([]string, len(urls))
	for i, u := range urls {
		result[i] = strings.ReplaceAll(u, model.QueryPlaceholder, escaped)
	}
	return result
}

// RouteName returns the name of the matching route, or "fallback"
func (r *Router) RouteName(topic string) string {
	lower := strings.ToLower(topic)
	for i := range r.routes {
		if r.routes[i].Matches(lower) {
			return r.routes[i].Name
		}
	}
	return "fallback"
}
