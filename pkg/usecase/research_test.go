package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/repository/memory"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/m-mizutani/gt"
)

const (
	pubmedPrefix = "https://pubmed.ncbi.nlm.nih.gov/"
	pubmedPCOS   = pubmedPrefix + "?term=pcos"
	nichdPCOS    = "https://www.nichd.nih.gov/health/topics/pcos"
	thyroidOrg   = "https://www.thyroid.org/"
)

var (
	vecPCOS  = []float32{1, 0, 0, 0}
	vecOther = []float32{0, 0, 0, 1}
)

func defaultPages() map[string]string {
	return map[string]string{
		pubmedPCOS: researchPage(
			researchSection("Dietary patterns in women with PCOS", "Low glycemic diets improved PCOS outcomes in a 2021 trial."),
			"Navigation links and cookie banner",
			researchSection("Metformin and lifestyle change in PCOS", "PMID 12345. Lifestyle programs reduced PCOS symptoms."),
		),
		nichdPCOS: researchPage(
			researchSection("PCOS overview from the NICHD", "Abstract: PCOS affects hormone levels in women of reproductive age."),
		),
		thyroidOrg: researchPage(
			researchSection("Thyroid disease during pregnancy", "Thyroid hormone needs rise early in pregnancy according to a 2019 review."),
		),
	}
}

type testEnv struct {
	uc     *usecase.ResearchUseCase
	store  *faultyStore
	llm    *mockLLMClient
	source *fakeSource
	scrape *countingLimiter
}

func newTestEnv(t *testing.T, opts ...usecase.ResearchOption) *testEnv {
	t.Helper()

	env := &testEnv{
		store:  &faultyStore{VectorStore: memory.New()},
		llm:    &mockLLMClient{},
		source: &fakeSource{pages: defaultPages()},
		scrape: &countingLimiter{},
	}
	base := []usecase.ResearchOption{
		usecase.WithEmbeddingDimension(testDim),
		usecase.WithEmbeddingLimiter(&countingLimiter{}),
		usecase.WithScrapeLimiter(env.scrape),
		usecase.WithIndexReadyPolling(time.Millisecond, time.Second),
	}
	env.uc = usecase.NewResearchUseCase(env.store, env.llm, env.source, append(base, opts...)...)
	gt.NoError(t, env.uc.EnsureIndex(context.Background())).Required()
	return env
}

func (e *testEnv) seed(t *testing.T, records ...*model.VectorRecord) {
	t.Helper()
	gt.NoError(t, e.store.VectorStore.Upsert(context.Background(), model.DefaultIndexName, records)).Required()
}

func seedRecords(n int, vec []float32) []*model.VectorRecord {
	records := make([]*model.VectorRecord, n)
	for i := range records {
		records[i] = storeRecord("seed_"+string(rune('a'+i)), vec, "Seeded research article number "+string(rune('A'+i)))
	}
	return records
}

func TestResearchUseCase_DisabledMode(t *testing.T) {
	cases := map[string]func(llm *mockLLMClient, src *fakeSource) *usecase.ResearchUseCase{
		"no vector store": func(llm *mockLLMClient, src *fakeSource) *usecase.ResearchUseCase {
			return usecase.NewResearchUseCase(nil, llm, src)
		},
		"no embedding provider": func(llm *mockLLMClient, src *fakeSource) *usecase.ResearchUseCase {
			return usecase.NewResearchUseCase(memory.New(), nil, src)
		},
		"no document source": func(llm *mockLLMClient, src *fakeSource) *usecase.ResearchUseCase {
			return usecase.NewResearchUseCase(memory.New(), llm, nil)
		},
	}

	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			llm := &mockLLMClient{}
			src := &fakeSource{pages: defaultPages()}
			uc := build(llm, src)

			gt.Bool(t, uc.IsServiceEnabled()).False()
			gt.NoError(t, uc.EnsureIndex(ctx))
			gt.Array(t, uc.Search(ctx, "PCOS diet", 5)).Length(0)
			gt.Array(t, uc.SearchWithSmartScraping(ctx, "PCOS diet", 5)).Length(0)
			gt.Bool(t, uc.HasKnowledgeGaps(ctx, "PCOS diet", 0)).False()

			result, err := uc.IngestTopic(ctx, "PCOS diet")
			gt.NoError(t, err)
			gt.Value(t, result).Nil()
			gt.NoError(t, uc.InitializeAll(ctx, []string{"PCOS diet"}))
			gt.NoError(t, uc.InitializeResearchDatabase(ctx))

			gt.Value(t, llm.embeddingCalls.Load()).Equal(int32(0))
			gt.Array(t, src.Fetched()).Length(0)
		})
	}
}

func TestResearchUseCase_SmartSearchOnEmptyIndex(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	results := env.uc.SearchWithSmartScraping(ctx, "PCOS diet", 5)

	gt.Array(t, results).Length(3)
	gt.Number(t, results[0].Score).GreaterOrEqual(0.99)
	for _, r := range results {
		gt.Value(t, r.Metadata).NotNil()
		gt.String(t, r.Metadata.Content).Contains("PCOS")
		gt.Value(t, r.Metadata.Topics).Equal("PCOS diet")
	}

	fetched := env.source.Fetched()
	gt.Array(t, fetched).Length(3)
	gt.Value(t, fetched[0]).Equal("https://pubmed.ncbi.nlm.nih.gov/?term=PCOS+diet")
	gt.Value(t, env.scrape.calls.Load()).Equal(int32(3))
}

func TestResearchUseCase_SmartSearchConfidentMatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t, storeRecord("pcos_seed", vecPCOS, "Insulin resistance in PCOS"))

	results := env.uc.SearchWithSmartScraping(ctx, "pcos insulin", 5)

	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].ID).Equal(model.DocumentID("pcos_seed"))
	gt.Array(t, env.source.Fetched()).Length(0)
}

func TestResearchUseCase_ScrapeDecision(t *testing.T) {
	testCases := []struct {
		name        string
		seeds       []*model.VectorRecord
		topK        int
		wantScraped bool
	}{
		{
			name:        "empty index",
			topK:        5,
			wantScraped: true,
		},
		{
			name:        "single unrelated match",
			seeds:       seedRecords(1, vecOther),
			topK:        5,
			wantScraped: true,
		},
		{
			name:        "partial unrelated matches",
			seeds:       seedRecords(3, vecOther),
			topK:        5,
			wantScraped: false,
		},
		{
			name:        "full unrelated matches",
			seeds:       seedRecords(5, vecOther),
			topK:        5,
			wantScraped: false,
		},
		{
			name:        "single confident match",
			seeds:       seedRecords(1, vecPCOS),
			topK:        5,
			wantScraped: false,
		},
		{
			name:        "non-positive topK uses default",
			seeds:       seedRecords(5, vecOther),
			topK:        0,
			wantScraped: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			if len(tc.seeds) > 0 {
				env.seed(t, tc.seeds...)
			}

			results := env.uc.SearchWithSmartScraping(ctx, "pcos nutrition", tc.topK)

			gt.Value(t, len(env.source.Fetched()) > 0).Equal(tc.wantScraped)
			if !tc.wantScraped {
				gt.Array(t, results).Length(len(tc.seeds))
			}
		})
	}
}

func TestResearchUseCase_MoreDataNeverTriggersScraping(t *testing.T) {
	// Once a state serves without scraping, adding matches keeps it that way
	for _, vec := range [][]float32{vecOther, vecPCOS} {
		scraped := true
		for n := 0; n <= 6; n++ {
			env := newTestEnv(t)
			if n > 0 {
				env.seed(t, seedRecords(n, vec)...)
			}
			env.uc.SearchWithSmartScraping(context.Background(), "pcos", 5)

			now := len(env.source.Fetched()) > 0
			if !scraped {
				gt.Bool(t, now).False()
			}
			scraped = now
		}
	}
}

func TestResearchUseCase_SearchDefaultsTopK(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, seedRecords(7, vecPCOS)...)

	results := env.uc.Search(context.Background(), "pcos", 0)
	gt.Array(t, results).Length(usecase.DefaultTopK)

	results = env.uc.Search(context.Background(), "pcos", 2)
	gt.Array(t, results).Length(2)
}

func TestResearchUseCase_KnowledgeGap(t *testing.T) {
	ctx := context.Background()

	t.Run("empty index is a gap", func(t *testing.T) {
		env := newTestEnv(t)
		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "pcos", 0)).True()
	})

	t.Run("thresholds are compared against the top match", func(t *testing.T) {
		env := newTestEnv(t)
		// cosine similarity 0.8 against the PCOS query vector
		env.seed(t, storeRecord("partial", []float32{0.8, 0.6, 0, 0}, "Partially related research"))

		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "pcos", model.GapThresholdLoose)).False()
		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "pcos", model.GapThresholdStrict)).True()
		// zero falls back to the loose threshold
		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "pcos", 0)).False()
	})

	t.Run("embedding failure is a gap", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, seedRecords(1, vecOther)...)
		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "FAIL_EMBED", 0)).True()
	})

	t.Run("missing score is a gap", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, seedRecords(1, vecPCOS)...)
		env.store.nanScores = true
		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "pcos", 0)).True()
	})

	t.Run("query failure is a gap", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, seedRecords(1, vecPCOS)...)
		env.store.queryErr = errors.New("index unavailable")
		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "pcos", 0)).True()
	})

	t.Run("panic is a gap", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.queryPanic = true
		gt.Bool(t, env.uc.HasKnowledgeGaps(ctx, "pcos", 0)).True()
	})
}

func TestResearchUseCase_SmartSearchNeverFails(t *testing.T) {
	ctx := context.Background()

	t.Run("store panics", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.queryPanic = true

		results := env.uc.SearchWithSmartScraping(ctx, "pcos", 5)
		gt.Bool(t, results != nil).True()
		gt.Array(t, results).Length(0)
	})

	t.Run("upsert fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.upsertErr = errors.New("write rejected")

		results := env.uc.SearchWithSmartScraping(ctx, "pcos", 5)
		gt.Array(t, results).Length(0)
		gt.Number(t, len(env.source.Fetched())).GreaterOrEqual(1)
	})

	t.Run("upsert fails with partial matches", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, seedRecords(1, vecOther)...)
		env.store.upsertErr = errors.New("write rejected")

		results := env.uc.SearchWithSmartScraping(ctx, "pcos", 5)
		gt.Array(t, results).Length(1)
	})

	t.Run("embedding provider fails", func(t *testing.T) {
		env := newTestEnv(t)
		results := env.uc.SearchWithSmartScraping(ctx, "FAIL_EMBED pcos", 5)
		gt.Array(t, results).Length(0)
	})

	t.Run("every source fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.source.fetchFn = func(ctx context.Context, url string) (*model.FetchResult, error) {
			return nil, errors.New("connection refused")
		}

		results := env.uc.SearchWithSmartScraping(ctx, "pcos", 5)
		gt.Array(t, results).Length(0)
		gt.Array(t, env.source.Fetched()).Length(3)
	})

	t.Run("no source reachable keeps the stored match", func(t *testing.T) {
		env := newTestEnv(t)
		seeds := seedRecords(1, vecOther)
		env.seed(t, seeds...)
		env.source.fetchFn = func(ctx context.Context, url string) (*model.FetchResult, error) {
			return nil, errors.New("connection refused")
		}

		results := env.uc.SearchWithSmartScraping(ctx, "pcos", 5)
		gt.Array(t, env.source.Fetched()).Length(3)
		gt.Array(t, results).Length(1).Required()
		gt.Value(t, results[0].ID).Equal(seeds[0].ID)
	})

	t.Run("source reports no content", func(t *testing.T) {
		env := newTestEnv(t)
		env.source.fetchFn = func(ctx context.Context, url string) (*model.FetchResult, error) {
			return &model.FetchResult{Success: false}, nil
		}

		results := env.uc.SearchWithSmartScraping(ctx, "pcos", 5)
		gt.Array(t, results).Length(0)
	})
}

func TestResearchUseCase_SharedIngestionOutlivesStartingCaller(t *testing.T) {
	env := newTestEnv(t)
	started := make(chan struct{})
	var startOnce sync.Once
	env.source.fetchFn = func(ctx context.Context, url string) (*model.FetchResult, error) {
		startOnce.Do(func() { close(started) })
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
		return env.source.serve(url)
	}

	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	first := make(chan []*model.SearchMatch, 1)
	go func() {
		first <- env.uc.SearchWithSmartScraping(shortCtx, "pcos", 5)
	}()

	<-started
	results := env.uc.SearchWithSmartScraping(context.Background(), "pcos", 5)
	gt.Array(t, results).Longer(0)
	// one pass served both callers
	gt.Array(t, env.source.Fetched()).Length(3)

	// the caller whose deadline passed falls back to what was stored before
	gt.Array(t, <-first).Length(0)
}

func TestResearchUseCase_IngestTopic(t *testing.T) {
	ctx := context.Background()

	t.Run("stored documents are searchable", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.uc.IngestTopic(ctx, "thyroid health women")
		gt.NoError(t, err).Required()
		gt.Value(t, result.Topic).Equal("thyroid health women")
		gt.String(t, result.RunID).NotEqual("")
		gt.Value(t, result.Stored).Equal(1)
		gt.Value(t, result.Embedded).Equal(result.Stored)

		matches := env.uc.Search(ctx, "thyroid", 5)
		gt.Array(t, matches).Length(1)
		gt.Number(t, matches[0].Score).GreaterOrEqual(0.99)
		gt.Value(t, matches[0].Metadata.Source).Equal("American Thyroid Association")
		gt.Value(t, matches[0].Metadata.PublishedDate).Equal("2019")
		gt.Value(t, matches[0].Metadata.Topics).Equal("thyroid health women")
	})

	t.Run("documents without embedding are not stored", func(t *testing.T) {
		env := newTestEnv(t)
		env.source.pages = map[string]string{
			pubmedPrefix: researchPage(
				researchSection("PCOS and gut microbiome research", "Microbiome diversity was lower in PCOS cohorts."),
				researchSection("PCOS sleep quality observations", "FAIL_EMBED Sleep disruption was common in PCOS."),
			),
		}

		result, err := env.uc.IngestTopic(ctx, "pcos")
		gt.NoError(t, err).Required()
		gt.Value(t, result.Extracted).Equal(2)
		gt.Value(t, result.Embedded).Equal(1)
		gt.Value(t, result.Stored).Equal(1)
		gt.Value(t, env.store.Len(model.DefaultIndexName)).Equal(1)
	})

	t.Run("re-ingesting is idempotent", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.IngestTopic(ctx, "pcos")
		gt.NoError(t, err).Required()
		first := env.store.Len(model.DefaultIndexName)

		_, err = env.uc.IngestTopic(ctx, "pcos")
		gt.NoError(t, err).Required()
		gt.Value(t, env.store.Len(model.DefaultIndexName)).Equal(first)
	})

	t.Run("limiter failure aborts the pass", func(t *testing.T) {
		env := newTestEnv(t)
		env.scrape.err = context.Canceled

		_, err := env.uc.IngestTopic(ctx, "pcos")
		gt.Error(t, err).Is(context.Canceled)
		gt.Array(t, env.source.Fetched()).Length(0)
	})

	t.Run("raw content is archived", func(t *testing.T) {
		arc := &recordingArchive{}
		env := newTestEnv(t, usecase.WithArchive(arc))

		result, err := env.uc.IngestTopic(ctx, "pcos")
		gt.NoError(t, err).Required()
		gt.Array(t, arc.urls).Length(result.Scraped)
		for _, id := range arc.runIDs {
			gt.Value(t, id).Equal(result.RunID)
		}
	})
}

func TestResearchUseCase_ConcurrentIngestionIsShared(t *testing.T) {
	env := newTestEnv(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	pages := defaultPages()
	env.source.fetchFn = func(ctx context.Context, url string) (*model.FetchResult, error) {
		if strings.HasPrefix(url, pubmedPrefix) {
			once.Do(func() { close(started) })
			<-release
			return &model.FetchResult{Success: true, Markdown: pages[pubmedPCOS]}, nil
		}
		return nil, errors.New("not found")
	}

	var wg sync.WaitGroup
	results := make([]*model.IngestResult, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = env.uc.IngestTopic(context.Background(), "PCOS diet")
	}()

	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = env.uc.IngestTopic(context.Background(), "  pcos   DIET ")
	}()
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	var pubmedFetches int
	for _, url := range env.source.Fetched() {
		if strings.HasPrefix(url, pubmedPrefix) {
			pubmedFetches++
		}
	}
	gt.Value(t, pubmedFetches).Equal(1)
	gt.Value(t, results[0]).NotNil()
	gt.Value(t, results[1]).NotNil()
	gt.Value(t, results[0].RunID).Equal(results[1].RunID)
}

func TestResearchUseCase_InitializeAll(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests every topic", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.uc.InitializeAll(ctx, []string{"PCOS nutrition", "thyroid health women"})
		gt.NoError(t, err).Required()

		matches := env.uc.Search(ctx, "thyroid", 1)
		gt.Array(t, matches).Length(1)
		gt.Value(t, matches[0].Metadata.TopicList()).Equal([]string{"thyroid health women"})

		matches = env.uc.Search(ctx, "pcos", 1)
		gt.Array(t, matches).Length(1)
		gt.Value(t, matches[0].Metadata.Topics).Equal("PCOS nutrition")
	})

	t.Run("default topics", func(t *testing.T) {
		env := newTestEnv(t, usecase.WithDefaultTopics([]string{"thyroid health women"}))

		gt.NoError(t, env.uc.InitializeResearchDatabase(ctx)).Required()
		gt.Value(t, env.store.Len(model.DefaultIndexName)).Equal(1)
	})

	t.Run("topic failures are skipped", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.upsertErr = errors.New("write rejected")

		err := env.uc.InitializeAll(ctx, []string{"PCOS nutrition", "thyroid health women"})
		gt.NoError(t, err)
		gt.Number(t, len(env.source.Fetched())).GreaterOrEqual(4)
	})

	t.Run("index failure is returned", func(t *testing.T) {
		store := &faultyStore{VectorStore: memory.New(), hasIndexErr: errors.New("permission denied")}
		uc := usecase.NewResearchUseCase(store, &mockLLMClient{}, &fakeSource{},
			usecase.WithEmbeddingDimension(testDim),
			usecase.WithScrapeLimiter(&countingLimiter{}))

		err := uc.InitializeAll(ctx, []string{"pcos"})
		gt.Value(t, err).NotNil()
	})

	t.Run("cancellation stops the run", func(t *testing.T) {
		env := newTestEnv(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := env.uc.InitializeAll(cctx, []string{"pcos", "thyroid"})
		gt.Error(t, err).Is(context.Canceled)
		gt.Array(t, env.source.Fetched()).Length(0)
	})
}

func TestNormalizeQuery(t *testing.T) {
	gt.Value(t, usecase.NormalizeQuery("  PCOS\tDiet  tips ")).Equal("pcos diet tips")
	gt.Value(t, usecase.NormalizeQuery("")).Equal("")
}

// recordingArchive keeps the keys of archived content
type recordingArchive struct {
	mu     sync.Mutex
	runIDs []string
	urls   []string
}

var _ interfaces.Archive = (*recordingArchive)(nil)

func (a *recordingArchive) Put(ctx context.Context, runID, url, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runIDs = append(a.runIDs, runID)
	a.urls = append(a.urls, url)
	return nil
}
