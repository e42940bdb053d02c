package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/hera-health/hera/pkg/utils/async"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type searchResponse struct {
	Results []*model.SearchMatch `json:"results"`
}

// gapsRequest carries an optional similarity bar; zero means the service default
type gapsRequest struct {
	Query         string  `json:"query"`
	MinSimilarity float64 `json:"minSimilarity,omitempty"`
}

type gapsResponse struct {
	HasGaps bool `json:"hasGaps"`
}

type initializeRequest struct {
	Topics []string `json:"topics,omitempty"`
}

type statusResponse struct {
	Enabled bool `json:"enabled"`
}

type searchFunc func(ctx context.Context, query string, topK int) []*model.SearchMatch

func researchStatusHandler(research ResearchUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, statusResponse{Enabled: research.IsServiceEnabled()})
	}
}

// researchSearchHandler serves both plain and smart search, which share the
// request and response shape
func researchSearchHandler(search searchFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := readJSON(w, r, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid search request"), http.StatusBadRequest)
			return
		}
		query := strings.TrimSpace(req.Query)
		if query == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(usecase.ErrEmptyQuery, "invalid search request"), http.StatusBadRequest)
			return
		}

		results := search(r.Context(), query, req.TopK)
		if results == nil {
			results = []*model.SearchMatch{}
		}
		writeJSON(r.Context(), w, http.StatusOK, searchResponse{Results: results})
	}
}

func researchGapsHandler(research ResearchUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gapsRequest
		if err := readJSON(w, r, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid gap request"), http.StatusBadRequest)
			return
		}
		query := strings.TrimSpace(req.Query)
		if query == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(usecase.ErrEmptyQuery, "invalid gap request"), http.StatusBadRequest)
			return
		}

		if req.MinSimilarity < 0 || req.MinSimilarity > 1 {
			errutil.HandleHTTP(r.Context(), w, goerr.New("minSimilarity must be within [0, 1]",
				goerr.V("minSimilarity", req.MinSimilarity)), http.StatusBadRequest)
			return
		}

		hasGaps := research.HasKnowledgeGaps(r.Context(), query, req.MinSimilarity)
		writeJSON(r.Context(), w, http.StatusOK, gapsResponse{HasGaps: hasGaps})
	}
}

// researchInitializeHandler starts a bulk initialization in the background
// and answers immediately with 202
func researchInitializeHandler(research ResearchUseCase, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !research.IsServiceEnabled() {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(usecase.ErrServiceDisabled, "cannot initialize"), http.StatusServiceUnavailable)
			return
		}

		var req initializeRequest
		if r.ContentLength != 0 {
			if err := readJSON(w, r, &req); err != nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid initialize request"), http.StatusBadRequest)
				return
			}
		}

		topics := req.Topics
		async.Dispatch(r.Context(), timeout, func(ctx context.Context) error {
			if len(topics) == 0 {
				return research.InitializeResearchDatabase(ctx)
			}
			return research.InitializeAll(ctx, topics)
		})

		writeJSON(r.Context(), w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
