package usecase_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/repository/memory"
	"github.com/m-mizutani/gollem"
)

const testDim = 4

// topicVector maps text to a unit vector by keyword so that similarity is
// predictable in tests
func topicVector(text string) []float64 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "pcos"):
		return []float64{1, 0, 0, 0}
	case strings.Contains(lower, "thyroid"):
		return []float64{0, 1, 0, 0}
	case strings.Contains(lower, "cortisol"), strings.Contains(lower, "stress"):
		return []float64{0, 0, 1, 0}
	default:
		return []float64{0, 0, 0, 1}
	}
}

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateFn func(ctx context.Context, input []gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, input)
	}
	return &gollem.Response{
		Texts: []string{"This is a test response from the assistant."},
	}, nil
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.Generate(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return s.Stream(ctx, input)
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn        func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
	generateEmbeddingFn func(ctx context.Context, dimension int, input []string) ([][]float64, error)
	embeddingCalls      atomic.Int32
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	c.embeddingCalls.Add(1)
	if c.generateEmbeddingFn != nil {
		return c.generateEmbeddingFn(ctx, dimension, input)
	}
	if strings.Contains(input[0], "FAIL_EMBED") {
		return nil, errors.New("embedding provider unavailable")
	}
	return [][]float64{topicVector(input[0])}, nil
}

// fakeSource serves fixed markdown per URL prefix and records fetches
type fakeSource struct {
	mu      sync.Mutex
	pages   map[string]string // case-insensitive URL prefix to markdown
	fetched []string
	fetchFn func(ctx context.Context, url string) (*model.FetchResult, error)
}

func (s *fakeSource) Fetch(ctx context.Context, url string, opts model.FetchOptions) (*model.FetchResult, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, url)
	s.mu.Unlock()

	if s.fetchFn != nil {
		return s.fetchFn(ctx, url)
	}
	return s.serve(url)
}

func (s *fakeSource) serve(url string) (*model.FetchResult, error) {
	for prefix, md := range s.pages {
		if strings.HasPrefix(strings.ToLower(url), strings.ToLower(prefix)) {
			return &model.FetchResult{Success: true, Markdown: md}, nil
		}
	}
	return nil, errors.New("page not found")
}

func (s *fakeSource) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

// countingLimiter records Wait calls without sleeping
type countingLimiter struct {
	calls atomic.Int32
	err   error
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls.Add(1)
	if l.err != nil {
		return l.err
	}
	return ctx.Err()
}

// faultyStore wraps the memory store with injectable failures
type faultyStore struct {
	*memory.VectorStore
	queryErr    error
	queryPanic  bool
	upsertErr   error
	hasIndexErr error
	nanScores   bool
}

func (s *faultyStore) HasIndex(ctx context.Context, name string) (bool, error) {
	if s.hasIndexErr != nil {
		return false, s.hasIndexErr
	}
	return s.VectorStore.HasIndex(ctx, name)
}

func (s *faultyStore) Upsert(ctx context.Context, index string, records []*model.VectorRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.VectorStore.Upsert(ctx, index, records)
}

func (s *faultyStore) Query(ctx context.Context, index string, vector []float32, topK int, includeMetadata bool) ([]*model.SearchMatch, error) {
	if s.queryPanic {
		panic("vector index exploded")
	}
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	matches, err := s.VectorStore.Query(ctx, index, vector, topK, includeMetadata)
	if s.nanScores {
		for _, m := range matches {
			m.Score = math.NaN()
		}
	}
	return matches, err
}

// researchSection builds a markdown section that passes extraction
func researchSection(title, body string) string {
	return "## " + title + "\nAbstract: " + body + " " + strings.Repeat("Findings were consistent across cohorts. ", 3)
}

func researchPage(sections ...string) string {
	return strings.Join(sections, "\n\n")
}

func storeRecord(id string, vec []float32, title string) *model.VectorRecord {
	return &model.VectorRecord{
		ID:     model.DocumentID(id),
		Values: vec,
		Metadata: model.Metadata{
			Title:   title,
			Content: "Abstract: " + title,
			URL:     "https://pubmed.ncbi.nlm.nih.gov/" + id,
			Source:  "PubMed",
			Topics:  "seed",
		},
	}
}
