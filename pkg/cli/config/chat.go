package config

import (
	"log/slog"
	"time"

	"github.com/hera-health/hera/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Chat holds CLI flags for the chat endpoint
type Chat struct {
	timeout time.Duration
	topK    int
}

// Flags returns CLI flags for chat configuration
func (x *Chat) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "chat-timeout",
			Category:    "Chat",
			Usage:       "Time budget of one answer before the fallback response is sent",
			Value:       usecase.DefaultChatTimeout,
			Sources:     cli.EnvVars("HERA_CHAT_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.IntFlag{
			Name:        "chat-top-k",
			Category:    "Chat",
			Usage:       "Number of research documents grounding an answer",
			Value:       usecase.DefaultChatTopK,
			Sources:     cli.EnvVars("HERA_CHAT_TOP_K"),
			Destination: &x.topK,
		},
	}
}

// LogAttrs returns log attributes for the chat configuration
func (x *Chat) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Duration("timeout", x.timeout),
		slog.Int("top_k", x.topK),
	}
}

// Options returns the chat options
func (x *Chat) Options() []usecase.ChatOption {
	return []usecase.ChatOption{
		usecase.WithChatTimeout(x.timeout),
		usecase.WithChatTopK(x.topK),
	}
}
