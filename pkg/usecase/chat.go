package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// Defaults of the chat path
const (
	DefaultChatTimeout = 10 * time.Second
	DefaultChatTopK    = 3
)

// FallbackResponse is returned when an answer cannot be generated in time
const FallbackResponse = "I'm sorry, I'm having trouble answering right now. Please try again in a moment. " +
	"If you have an urgent health concern, please contact a healthcare provider."

// noResearchNote grounds the model when retrieval found nothing
const noResearchNote = "No research information is available for this question. " +
	"Answer from general, well-established knowledge, say that no specific studies were found, " +
	"and recommend consulting a healthcare provider for personal advice."

const chatSystemPrompt = `You are a supportive women's health assistant.
Answer clearly and kindly. Base your answer on the research context when it is relevant and cite sources by their number, like [1].
Do not diagnose. Recommend consulting a healthcare provider for personal medical decisions.`

// ChatUseCase answers user messages with an LLM grounded on research
// retrieval. Generation is bounded by a timeout with a canned fallback.
type ChatUseCase struct {
	llmClient gollem.LLMClient
	research  *ResearchUseCase
	timeout   time.Duration
	topK      int
}

// ChatOption is a functional option for ChatUseCase
type ChatOption func(*ChatUseCase)

// WithChatTimeout overrides the response timeout
func WithChatTimeout(d time.Duration) ChatOption {
	return func(uc *ChatUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

// WithChatTopK overrides how many research matches ground an answer
func WithChatTopK(k int) ChatOption {
	return func(uc *ChatUseCase) {
		if k > 0 {
			uc.topK = k
		}
	}
}

// NewChatUseCase creates a ChatUseCase. research may be disabled or nil.
func NewChatUseCase(llmClient gollem.LLMClient, research *ResearchUseCase, opts ...ChatOption) *ChatUseCase {
	uc := &ChatUseCase{
		llmClient: llmClient,
		research:  research,
		timeout:   DefaultChatTimeout,
		topK:      DefaultChatTopK,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type chatResult struct {
	resp *model.ChatResponse
	err  error
}

// Respond answers message. Errors, panics and timeouts yield the fallback
// response instead of an error; only invalid input is reported as an error.
func (uc *ChatUseCase) Respond(ctx context.Context, message string) (*model.ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, goerr.Wrap(ErrEmptyMessage, "cannot respond")
	}
	if uc.llmClient == nil {
		return fallback(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	done := make(chan chatResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- chatResult{err: goerr.New("panic in response generation", goerr.V("panic", r))}
			}
		}()
		resp, err := uc.generate(ctx, message)
		done <- chatResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		logging.From(ctx).Warn("response generation timed out", slog.Duration("timeout", uc.timeout))
		return fallback(), nil
	case res := <-done:
		if res.err != nil {
			_ = errutil.Handle(ctx, res.err, "failed to generate response")
			return fallback(), nil
		}
		return res.resp, nil
	}
}

func (uc *ChatUseCase) generate(ctx context.Context, message string) (*model.ChatResponse, error) {
	var sources []*model.SearchMatch
	if uc.research != nil && uc.research.IsServiceEnabled() {
		sources = uc.research.SearchWithSmartScraping(ctx, message, uc.topK)
	}

	session, err := uc.llmClient.NewSession(ctx, gollem.WithSessionSystemPrompt(chatSystemPrompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(buildChatPrompt(message, sources))})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.Wrap(ErrEmptyLLMResponse, "no text in LLM response")
	}

	return &model.ChatResponse{
		Text:    strings.Join(resp.Texts, "\n"),
		Sources: sources,
	}, nil
}

func buildChatPrompt(message string, sources []*model.SearchMatch) string {
	var sb strings.Builder

	sb.WriteString("## Research context\n\n")
	n := 0
	for _, s := range sources {
		if s == nil || s.Metadata == nil {
			continue
		}
		n++
		fmt.Fprintf(&sb, "[%d] %s", n, s.Metadata.Title)
		if s.Metadata.Source != "" || s.Metadata.PublishedDate != "" {
			fmt.Fprintf(&sb, " (%s", s.Metadata.Source)
			if s.Metadata.PublishedDate != "" {
				fmt.Fprintf(&sb, ", %s", s.Metadata.PublishedDate)
			}
			sb.WriteString(")")
		}
		sb.WriteString("\n")
		if s.Metadata.URL != "" {
			fmt.Fprintf(&sb, "URL: %s\n", s.Metadata.URL)
		}
		sb.WriteString(s.Metadata.Content)
		sb.WriteString("\n\n")
	}
	if n == 0 {
		sb.WriteString(noResearchNote)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Question\n\n")
	sb.WriteString(message)
	sb.WriteString("\n")

	return sb.String()
}

func fallback() *model.ChatResponse {
	return &model.ChatResponse{
		Text:     FallbackResponse,
		Fallback: true,
	}
}
