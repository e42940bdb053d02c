package usecase_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

// promptRecorder captures the prompt sent to the chat model
type promptRecorder struct {
	mu     sync.Mutex
	prompt string
}

func (r *promptRecorder) client(reply string) *mockLLMClient {
	return &mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return &mockLLMSession{
				generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
					r.mu.Lock()
					defer r.mu.Unlock()
					for _, in := range input {
						if text, ok := in.(gollem.Text); ok {
							r.prompt = string(text)
						}
					}
					return &gollem.Response{Texts: []string{reply}}, nil
				},
			}, nil
		},
	}
}

func (r *promptRecorder) Prompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prompt
}

func TestChatUseCase_Respond(t *testing.T) {
	ctx := context.Background()

	t.Run("grounds the answer on research", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, storeRecord("pcos_seed", vecPCOS, "Insulin resistance in PCOS"))

		rec := &promptRecorder{}
		chat := usecase.NewChatUseCase(rec.client("Eat more fiber."), env.uc)

		resp, err := chat.Respond(ctx, "What should I eat with PCOS?")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.Text).Equal("Eat more fiber.")
		gt.Bool(t, resp.Fallback).False()
		gt.Array(t, resp.Sources).Length(1)
		gt.Value(t, resp.Sources[0].ID).Equal(model.DocumentID("pcos_seed"))

		prompt := rec.Prompt()
		gt.String(t, prompt).Contains("[1] Insulin resistance in PCOS (PubMed)")
		gt.String(t, prompt).Contains("What should I eat with PCOS?")
		gt.String(t, prompt).NotContains("No research information")
	})

	t.Run("research disabled", func(t *testing.T) {
		rec := &promptRecorder{}
		research := usecase.NewResearchUseCase(nil, nil, nil)
		chat := usecase.NewChatUseCase(rec.client("General advice."), research)

		resp, err := chat.Respond(ctx, "How does stress affect my cycle?")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.Text).Equal("General advice.")
		gt.Array(t, resp.Sources).Length(0)
		gt.String(t, rec.Prompt()).Contains("No research information is available")
	})

	t.Run("empty message", func(t *testing.T) {
		chat := usecase.NewChatUseCase(&mockLLMClient{}, nil)

		_, err := chat.Respond(ctx, "   ")
		gt.Error(t, err).Is(usecase.ErrEmptyMessage)
	})

	t.Run("no chat model configured", func(t *testing.T) {
		chat := usecase.NewChatUseCase(nil, nil)

		resp, err := chat.Respond(ctx, "hello")
		gt.NoError(t, err).Required()
		gt.Bool(t, resp.Fallback).True()
		gt.Value(t, resp.Text).Equal(usecase.FallbackResponse)
	})

	t.Run("generation error falls back", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
						return nil, errors.New("model overloaded")
					},
				}, nil
			},
		}
		chat := usecase.NewChatUseCase(llm, nil)

		resp, err := chat.Respond(ctx, "hello")
		gt.NoError(t, err).Required()
		gt.Bool(t, resp.Fallback).True()
	})

	t.Run("empty model output falls back", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
						return &gollem.Response{}, nil
					},
				}, nil
			},
		}
		chat := usecase.NewChatUseCase(llm, nil)

		resp, err := chat.Respond(ctx, "hello")
		gt.NoError(t, err).Required()
		gt.Bool(t, resp.Fallback).True()
	})

	t.Run("session panic falls back", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				panic("session pool corrupted")
			},
		}
		chat := usecase.NewChatUseCase(llm, nil)

		resp, err := chat.Respond(ctx, "hello")
		gt.NoError(t, err).Required()
		gt.Bool(t, resp.Fallback).True()
	})

	t.Run("timeout falls back", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
						<-ctx.Done()
						time.Sleep(10 * time.Millisecond)
						return &gollem.Response{Texts: []string{"too late"}}, nil
					},
				}, nil
			},
		}
		chat := usecase.NewChatUseCase(llm, nil, usecase.WithChatTimeout(50*time.Millisecond))

		start := time.Now()
		resp, err := chat.Respond(ctx, "hello")
		gt.NoError(t, err).Required()
		gt.Bool(t, resp.Fallback).True()
		gt.Value(t, resp.Text).Equal(usecase.FallbackResponse)
		gt.Bool(t, time.Since(start) < time.Second).True()
	})
}

func TestBuildChatPrompt(t *testing.T) {
	sources := []*model.SearchMatch{
		{
			ID:    "doc_1",
			Score: 0.91,
			Metadata: &model.Metadata{
				Title:         "Cortisol rhythms in working women",
				Content:       "Abstract: Evening cortisol was elevated.",
				URL:           "https://pubmed.ncbi.nlm.nih.gov/1",
				Source:        "PubMed",
				PublishedDate: "2022",
			},
		},
		{ID: "doc_no_meta", Score: math.NaN()},
		{
			ID: "doc_2",
			Metadata: &model.Metadata{
				Title:   "Stress fact sheet",
				Content: "Stress affects sleep.",
			},
		},
	}

	prompt := usecase.BuildChatPrompt("Why am I always tired?", sources)

	gt.String(t, prompt).Contains("[1] Cortisol rhythms in working women (PubMed, 2022)\nURL: https://pubmed.ncbi.nlm.nih.gov/1\nAbstract: Evening cortisol was elevated.")
	gt.String(t, prompt).Contains("[2] Stress fact sheet\nStress affects sleep.")
	gt.String(t, prompt).NotContains("[3]")
	gt.Bool(t, strings.HasSuffix(prompt, "## Question\n\nWhy am I always tired?\n")).True()

	empty := usecase.BuildChatPrompt("hi", nil)
	gt.String(t, empty).Contains("No research information is available")
}
