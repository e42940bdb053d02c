package http

import (
	"errors"
	"net/http"

	"github.com/hera-health/hera/pkg/usecase"
	"github.com/hera-health/hera/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

type chatRequest struct {
	Message string `json:"message"`
}

func chatHandler(chat ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := readJSON(w, r, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid chat request"), http.StatusBadRequest)
			return
		}

		resp, err := chat.Respond(r.Context(), req.Message)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, usecase.ErrEmptyMessage) {
				status = http.StatusBadRequest
			}
			errutil.HandleHTTP(r.Context(), w, err, status)
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, resp)
	}
}
