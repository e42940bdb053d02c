package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// QueryPlaceholder is replaced with the query-escaped topic in route URLs
const QueryPlaceholder = "{query}"

// TopicRoute maps topic keywords to curated source URLs
type TopicRoute struct {
	Name     string
	Keywords []string // Lower-case substrings matched against the topic
	URLs     []string // May contain QueryPlaceholder
}

// Validate checks if the TopicRoute is valid
func (r *TopicRoute) Validate() error {
	if r.Name == "" {
		return goerr.New("route name is required")
	}
	if len(r.Keywords) == 0 {
		return goerr.New("route requires at least one keyword", goerr.V("name", r.Name))
	}
	for _, kw := range r.Keywords {
		if strings.TrimSpace(kw) == "" {
			return goerr.New("route keyword must not be empty", goerr.V("name", r.Name))
		}
	}
	if len(r.URLs) == 0 {
		return goerr.New("route requires at least one URL", goerr.V("name", r.Name))
	}
	return nil
}

// Matches reports whether the lower-cased topic contains one of the keywords
func (r *TopicRoute) Matches(lowerTopic string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowerTopic, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
