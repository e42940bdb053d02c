package usecase

import (
	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/m-mizutani/gollem"
)

type UseCases struct {
	Research *ResearchUseCase
	Chat     *ChatUseCase

	researchOpts []ResearchOption
	chatOpts     []ChatOption
}

type Option func(*UseCases)

func WithResearchOptions(opts ...ResearchOption) Option {
	return func(uc *UseCases) {
		uc.researchOpts = append(uc.researchOpts, opts...)
	}
}

func WithChatOptions(opts ...ChatOption) Option {
	return func(uc *UseCases) {
		uc.chatOpts = append(uc.chatOpts, opts...)
	}
}

// New wires the use cases. embedClient provides embeddings and chatClient
// generates answers; they may be the same client. Any nil provider disables
// the features that depend on it.
func New(store interfaces.VectorStore, embedClient, chatClient gollem.LLMClient, source interfaces.DocumentSource, opts ...Option) *UseCases {
	uc := &UseCases{}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Research = NewResearchUseCase(store, embedClient, source, uc.researchOpts...)
	uc.Chat = NewChatUseCase(chatClient, uc.Research, uc.chatOpts...)

	return uc
}
