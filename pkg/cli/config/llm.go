package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/service/ratelimit"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

// LLM provider names
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultOpenAIEmbeddingModel produces model.EmbeddingDimension wide vectors
const DefaultOpenAIEmbeddingModel = "text-embedding-3-small"

// LLM holds configuration for the LLM client used for embeddings and chat
type LLM struct {
	provider          string
	openaiAPIKey      string `masq:"secret"`
	geminiProjectID   string
	geminiLocation    string
	chatModel         string
	embeddingModel    string
	dimension         int
	embeddingInterval time.Duration
}

// Flags returns CLI flags for LLM configuration
func (x *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Category:    "LLM",
			Usage:       "LLM provider (openai, gemini)",
			Value:       ProviderOpenAI,
			Sources:     cli.EnvVars("HERA_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Category:    "LLM",
			Usage:       "OpenAI API key; research features are disabled when empty",
			Sources:     cli.EnvVars("HERA_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Category:    "LLM",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("HERA_GEMINI_PROJECT"),
			Destination: &x.geminiProjectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Category:    "LLM",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("HERA_GEMINI_LOCATION"),
			Destination: &x.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "chat-model",
			Category:    "LLM",
			Usage:       "Model generating chat answers (provider default when empty)",
			Sources:     cli.EnvVars("HERA_CHAT_MODEL"),
			Destination: &x.chatModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Category:    "LLM",
			Usage:       "Embedding model (provider default when empty)",
			Sources:     cli.EnvVars("HERA_EMBEDDING_MODEL"),
			Destination: &x.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Category:    "LLM",
			Usage:       "Embedding vector dimension; must match the vector index",
			Value:       model.EmbeddingDimension,
			Sources:     cli.EnvVars("HERA_EMBEDDING_DIMENSION"),
			Destination: &x.dimension,
		},
		&cli.DurationFlag{
			Name:        "embedding-interval",
			Category:    "LLM",
			Usage:       "Minimum spacing between embedding requests",
			Value:       ratelimit.DefaultEmbeddingInterval,
			Sources:     cli.EnvVars("HERA_EMBEDDING_INTERVAL"),
			Destination: &x.embeddingInterval,
		},
	}
}

// LogAttrs returns log attributes for the LLM configuration
func (x *LLM) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("provider", x.provider),
		slog.Bool("openai_configured", x.openaiAPIKey != ""),
		slog.String("gemini_project", x.geminiProjectID),
		slog.String("gemini_location", x.geminiLocation),
		slog.String("chat_model", x.chatModel),
		slog.String("embedding_model", x.embeddingModel),
		slog.Int("dimension", x.dimension),
		slog.Duration("embedding_interval", x.embeddingInterval),
	}
}

// Dimension returns the configured embedding dimension
func (x *LLM) Dimension() int {
	return x.dimension
}

// ResearchOptions returns the research options derived from the LLM settings
func (x *LLM) ResearchOptions() []usecase.ResearchOption {
	return []usecase.ResearchOption{
		usecase.WithEmbeddingDimension(x.dimension),
		usecase.WithEmbeddingLimiter(ratelimit.New(x.embeddingInterval)),
	}
}

// Configure creates the LLM client for the configured provider.
// Returns nil if the provider credentials are not configured.
func (x *LLM) Configure(ctx context.Context) (gollem.LLMClient, error) {
	if x.dimension <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "embedding dimension must be positive", goerr.V("dimension", x.dimension))
	}

	switch x.provider {
	case ProviderOpenAI:
		if x.openaiAPIKey == "" {
			return nil, nil
		}
		embeddingModel := x.embeddingModel
		if embeddingModel == "" {
			embeddingModel = DefaultOpenAIEmbeddingModel
		}
		opts := []openai.Option{openai.WithEmbeddingModel(embeddingModel)}
		if x.chatModel != "" {
			opts = append(opts, openai.WithModel(x.chatModel))
		}
		client, err := openai.New(ctx, x.openaiAPIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	case ProviderGemini:
		if x.geminiProjectID == "" {
			return nil, nil
		}
		var opts []gemini.Option
		if x.embeddingModel != "" {
			opts = append(opts, gemini.WithEmbeddingModel(x.embeddingModel))
		}
		if x.chatModel != "" {
			opts = append(opts, gemini.WithModel(x.chatModel))
		}
		client, err := gemini.New(ctx, x.geminiProjectID, x.geminiLocation, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "unknown LLM provider", goerr.V("provider", x.provider))
	}
}
