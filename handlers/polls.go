// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vocaltworld/micropoll/middleware"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/voting"
)

type PollHandler struct {
	polls store.PollStore
}

func NewPollHandler(polls store.PollStore) *PollHandler {
	return &PollHandler{polls: polls}
}

// GetPoll handles GET /polls/{id}. Inactive polls are returned with
// active=false so the vote page can say the poll is closed.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, voting.CodeInvalidPoll, "id is required")
		return
	}

	poll, err := h.polls.GetPoll(r.Context(), id)
	if errors.Is(err, store.ErrPollNotFound) {
		middleware.CodedErrorResponse(w, http.StatusNotFound, voting.CodeInvalidPoll, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to get poll", "error", err, "poll_id", id)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll.Public())
}
