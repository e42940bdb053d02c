package extractor

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hera-health/hera/pkg/domain/model"
)

// DefaultTitle is used when no line of a section qualifies as a title
const DefaultTitle = "Research Article"

const (
	minSectionLength = 100
	minTitleLength   = 20
	maxTitleLength   = 200
)

// defaultMarkers are the case-sensitive tokens that identify research sections
var defaultMarkers = []string{"Abstract", "PMID", "DOI", "Journal"}

var (
	sectionSplitter = regexp.MustCompile(`\n{2,}`)
	yearPattern     = regexp.MustCompile(`\b20\d{2}\b`)
)

// sourceLabels maps host suffixes to display labels. Order matters: the first
// matching suffix wins, so more specific hosts come first.
var sourceLabels = []struct {
	suffix string
	label  string
}{
	{"pubmed.ncbi.nlm.nih.gov", "PubMed"},
	{"ncbi.nlm.nih.gov", "PubMed Central"},
	{"nih.gov", "NIH"},
	{"womenshealth.gov", "Office on Women's Health"},
	{"who.int", "WHO"},
	{"acog.org", "ACOG"},
	{"endocrine.org", "Endocrine Society"},
	{"thyroid.org", "American Thyroid Association"},
	{"mayoclinic.org", "Mayo Clinic"},
	{"clevelandclinic.org", "Cleveland Clinic"},
}

// Extractor splits rendered page text into sections and keeps those that
// look like research content
type Extractor struct {
	markers []string
}

// Option is a functional option for Extractor configuration
type Option func(*Extractor)

// WithMarkers replaces the tokens that identify research sections
func WithMarkers(markers ...string) Option {
	return func(x *Extractor) {
		x.markers = markers
	}
}

// New creates a marker based Extractor
func New(opts ...Option) *Extractor {
	x := &Extractor{
		markers: defaultMarkers,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract returns one document per qualifying section of rawText. It performs
// no I/O and returns an empty list when no section qualifies.
func (x *Extractor) Extract(rawText, topic, sourceURL string) []*model.ResearchDocument {
	text := strings.ReplaceAll(rawText, "\r\n", "\n")
	sections := sectionSplitter.Split(text, -1)
	source := SourceLabel(sourceURL)

	docs := make([]*model.ResearchDocument, 0)
	for i, section := range sections {
		content := strings.TrimSpace(section)
		if utf8.RuneCountInString(content) <= minSectionLength {
			continue
		}
		if !x.hasMarker(content) {
			continue
		}

		var topics []string
		if topic != "" {
			topics = []string{topic}
		}

		docs = append(docs, &model.ResearchDocument{
			ID:            model.NewDocumentID(sourceURL, i, content),
			Title:         extractTitle(content),
			Content:       content,
			URL:           sourceURL,
			Source:        source,
			Topics:        topics,
			PublishedDate: yearPattern.FindString(content),
		})
	}

	return docs
}

func (x *Extractor) hasMarker(content string) bool {
	for _, m := range x.markers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		n := utf8.RuneCountInString(trimmed)
		if n <= minTitleLength || n >= maxTitleLength {
			continue
		}

		title := strings.TrimSpace(strings.NewReplacer("#", "", "*", "", "_", "").Replace(trimmed))
		if title != "" {
			return title
		}
	}
	return DefaultTitle
}

// SourceLabel derives a human readable origin label from a URL. Unknown hosts
// are returned without the leading "www.".
func SourceLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}

	host := strings.ToLower(u.Hostname())
	for _, s := range sourceLabels {
		if host == s.suffix || strings.HasSuffix(host, "."+s.suffix) {
			return s.label
		}
	}
	return strings.TrimPrefix(host, "www.")
}
