// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vocaltworld/micropoll/middleware"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/voting"
)

type VoteHandler struct {
	recorder *voting.Recorder
}

func NewVoteHandler(recorder *voting.Recorder) *VoteHandler {
	return &VoteHandler{recorder: recorder}
}

// SubmitVote handles POST /vote
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := middleware.ParseJSONBody(r, &body); err != nil {
		writeBodyError(w, err)
		return
	}
	params := models.ResolveVoteParams(body)

	out, err := h.recorder.RecordVote(r.Context(), voting.Request{
		Token:  params.Token,
		Choice: params.Choice,
		PollID: params.PollID,
	})
	if err != nil {
		if code := voting.Code(err); code != voting.CodeStorageError {
			slog.Info("vote rejected", "code", code, "error", err)
		}
		writeVotingError(w, err)
		return
	}

	if !out.Accepted {
		slog.Info("vote already recorded", "poll_id", out.PollID)
		middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{Accepted: false, Reason: out.Reason})
		return
	}

	slog.Info("vote recorded", "poll_id", out.PollID, "choice", out.Choice)
	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{Accepted: true})
}
