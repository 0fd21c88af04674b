// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vocaltworld/micropoll/cliparse"
	"github.com/vocaltworld/micropoll/middleware"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/voting"
)

type LinkHandler struct {
	polls  store.PollStore
	issuer *voting.Issuer
	cfg    cliparse.Config
}

func NewLinkHandler(polls store.PollStore, issuer *voting.Issuer, cfg cliparse.Config) *LinkHandler {
	return &LinkHandler{polls: polls, issuer: issuer, cfg: cfg}
}

// IssueLink handles GET /link and POST /link. A GET without format=json
// redirects the recipient to the vote page.
func (h *LinkHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Method == http.MethodPost {
		if err := middleware.ParseJSONBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
			writeBodyError(w, err)
			return
		}
	}
	params := models.ResolveLinkParams(body, r.URL.Query())

	if params.PollID == "" {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, voting.CodeInvalidPoll, "question_id is required")
		return
	}

	if _, err := voting.ValidateRecipient(params.Email); err != nil {
		writeVotingError(w, err)
		return
	}

	base, ok := h.redirectBase(params.RedirectBase)
	if !ok {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, CodeInvalidRedirectBase, "redirect_base is not allowed")
		return
	}

	poll, err := h.polls.GetPoll(r.Context(), params.PollID)
	if errors.Is(err, store.ErrPollNotFound) || (err == nil && !poll.Active) {
		writeVotingError(w, fmt.Errorf("%w: %s", voting.ErrInvalidPoll, params.PollID))
		return
	}
	if err != nil {
		writeVotingError(w, fmt.Errorf("%w: %w", voting.ErrStorage, err))
		return
	}

	link, err := h.issuer.IssueLink(poll.ID, params.Email, -1)
	if err != nil {
		writeVotingError(w, err)
		return
	}
	voteURL := voting.VoteURL(base, link.PollID, link.Token)

	slog.Info("vote link issued",
		"poll_id", link.PollID,
		"expires", humanize.Time(link.ExpiresAt),
		"json", params.WantsJSON() || r.Method == http.MethodPost,
	)

	if r.Method == http.MethodGet && !params.WantsJSON() {
		http.Redirect(w, r, voteURL, http.StatusFound)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.LinkResponse{
		OK:        true,
		Token:     link.Token,
		PollID:    link.PollID,
		Exp:       link.ExpiresAt.UnixMilli(),
		ExpiresAt: link.ExpiresAt.UTC(),
		URL:       voteURL,
	})
}

// redirectBase returns the requested base when it is on the allowlist, or
// the default base when none was requested
func (h *LinkHandler) redirectBase(requested string) (string, bool) {
	if requested == "" {
		return h.cfg.DefaultRedirectBase(), true
	}
	requested = strings.TrimRight(requested, "/")
	allowed := slices.ContainsFunc(h.cfg.RedirectBases, func(b string) bool {
		return strings.TrimRight(b, "/") == requested
	})
	return requested, allowed
}
