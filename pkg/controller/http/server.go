package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/hera-health/hera/pkg/utils/logging"
)

// DefaultInitializeTimeout bounds a bulk initialization started over HTTP
const DefaultInitializeTimeout = 30 * time.Minute

// maxRequestBodySize limits JSON request bodies
const maxRequestBodySize = 1 << 20

// ResearchUseCase is the research retrieval surface served over HTTP
type ResearchUseCase interface {
	IsServiceEnabled() bool
	Search(ctx context.Context, query string, topK int) []*model.SearchMatch
	SearchWithSmartScraping(ctx context.Context, query string, topK int) []*model.SearchMatch
	HasKnowledgeGaps(ctx context.Context, query string, minSimilarity float64) bool
	InitializeResearchDatabase(ctx context.Context) error
	InitializeAll(ctx context.Context, topics []string) error
}

// ChatUseCase answers user messages
type ChatUseCase interface {
	Respond(ctx context.Context, message string) (*model.ChatResponse, error)
}

type Server struct {
	router            *chi.Mux
	research          ResearchUseCase
	chat              ChatUseCase
	initializeTimeout time.Duration
}

type Options func(*Server)

// WithChat enables the chat endpoint
func WithChat(chat ChatUseCase) Options {
	return func(s *Server) {
		s.chat = chat
	}
}

func WithInitializeTimeout(d time.Duration) Options {
	return func(s *Server) {
		s.initializeTimeout = d
	}
}

func New(research ResearchUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:            r,
		research:          research,
		initializeTimeout: DefaultInitializeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api/research", func(r chi.Router) {
		r.Get("/status", researchStatusHandler(s.research))
		r.Post("/search", researchSearchHandler(s.research.Search))
		r.Post("/smart-search", researchSearchHandler(s.research.SearchWithSmartScraping))
		r.Post("/gaps", researchGapsHandler(s.research))
		r.Post("/initialize", researchInitializeHandler(s.research, s.initializeTimeout))
	})

	// Chat endpoint (if configured)
	if s.chat != nil {
		r.Post("/api/chat", chatHandler(s.chat))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}

// readJSON decodes a size limited JSON request body into v
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(body).Decode(v)
}
