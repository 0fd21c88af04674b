// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/middleware"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/voting"
)

// AdminHandler serves the dashboard endpoints. Routes are wrapped with
// middleware.RequireAdminKey by the router.
type AdminHandler struct {
	store store.Store
}

func NewAdminHandler(s store.Store) *AdminHandler {
	return &AdminHandler{store: s}
}

// ListPolls handles GET /admin/polls
func (h *AdminHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.store.ListPolls(r.Context())
	if err != nil {
		slog.Error("failed to list polls", "error", err)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	items := make([]models.PollListItem, 0, len(polls))
	for _, p := range polls {
		items = append(items, models.PollListItem{Poll: p, Label: p.DisplayLabel()})
	}
	middleware.JSONResponse(w, http.StatusOK, models.PollListResponse{Polls: items})
}

// CreatePoll handles POST /admin/polls
func (h *AdminHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, CodeInvalidRequest, "question is required")
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		generated, err := auth.GenerateID(8)
		if err != nil {
			slog.Error("failed to generate poll ID", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}
		id = generated
	}

	poll := models.Poll{
		ID:            id,
		Question:      req.Question,
		OptionYes:     defaultLabel(req.OptionYes, "Yes"),
		OptionNo:      defaultLabel(req.OptionNo, "No"),
		Active:        req.Active == nil || *req.Active,
		CampaignKey:   strings.TrimSpace(req.CampaignKey),
		CampaignLabel: strings.TrimSpace(req.CampaignLabel),
		CreatedAt:     time.Now().UTC(),
	}

	err := h.store.CreatePoll(r.Context(), poll)
	if errors.Is(err, store.ErrPollExists) {
		middleware.CodedErrorResponse(w, http.StatusConflict, CodePollExists, "Poll already exists")
		return
	}
	if err != nil {
		slog.Error("failed to create poll", "error", err, "poll_id", id)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	slog.Info("poll created", "poll_id", id, "active", poll.Active)
	middleware.JSONResponse(w, http.StatusCreated, poll)
}

// SetActive handles POST /admin/polls/{id}/active
func (h *AdminHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.SetActiveRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Active == nil {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, CodeInvalidRequest, "active is required")
		return
	}

	err := h.store.SetPollActive(r.Context(), id, *req.Active)
	if errors.Is(err, store.ErrPollNotFound) {
		middleware.CodedErrorResponse(w, http.StatusNotFound, voting.CodeInvalidPoll, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to update poll", "error", err, "poll_id", id)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	poll, err := h.store.GetPoll(r.Context(), id)
	if err != nil {
		slog.Error("failed to reload poll", "error", err, "poll_id", id)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	slog.Info("poll active flag changed", "poll_id", id, "active", poll.Active)
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// GetResults handles GET /admin/polls/{id}/results. Rows are capped at
// store.DefaultResultsLimit; stats count every vote.
func (h *AdminHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	limit := store.DefaultResultsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			middleware.CodedErrorResponse(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, store.DefaultResultsLimit)
	}

	if _, err := h.store.GetPoll(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrPollNotFound) {
			middleware.CodedErrorResponse(w, http.StatusNotFound, voting.CodeInvalidPoll, "Poll not found")
			return
		}
		slog.Error("failed to get poll", "error", err, "poll_id", id)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	rows, err := h.store.ListVotes(r.Context(), id, limit)
	if err != nil {
		slog.Error("failed to list votes", "error", err, "poll_id", id)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	tally, err := h.store.CountVotes(r.Context(), id)
	if err != nil {
		slog.Error("failed to count votes", "error", err, "poll_id", id)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
		return
	}

	if rows == nil {
		rows = []models.VoteRecord{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.PollResultsResponse{
		PollID: id,
		Rows:   rows,
		Stats:  tally,
	})
}

func defaultLabel(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
