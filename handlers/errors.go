// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/middleware"
	"github.com/vocaltworld/micropoll/voting"
)

// Codes added at the HTTP boundary
const (
	CodeInvalidToken        = "invalid_token"
	CodeInvalidRequest      = "invalid_request"
	CodeInvalidRedirectBase = "invalid_redirect_base"
	CodePollExists          = "poll_exists"
	CodeBodyTooLarge        = "body_too_large"
)

// MsgInvalidLink is the only text a voter sees for token problems
const MsgInvalidLink = "link invalid or expired"

// writeBodyError answers a request whose JSON body could not be decoded
func writeBodyError(w http.ResponseWriter, err error) {
	if middleware.IsBodyTooLarge(err) {
		middleware.CodedErrorResponse(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "Request body too large")
		return
	}
	middleware.CodedErrorResponse(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid JSON")
}

// writeVotingError maps a voting or auth error onto status, code and message.
// Malformed and forged tokens share one response so a caller cannot tell
// them apart.
func writeVotingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMalformedToken), errors.Is(err, auth.ErrBadSignature):
		middleware.CodedErrorResponse(w, http.StatusUnauthorized, CodeInvalidToken, MsgInvalidLink)
	case errors.Is(err, auth.ErrMalformedPayload):
		middleware.CodedErrorResponse(w, http.StatusUnauthorized, voting.CodeMalformedPayload, MsgInvalidLink)
	case errors.Is(err, voting.ErrTokenExpired):
		middleware.CodedErrorResponse(w, http.StatusUnauthorized, voting.CodeTokenExpired, MsgInvalidLink)
	case errors.Is(err, voting.ErrPollMismatch):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, voting.CodePollMismatch, "Token does not belong to this poll")
	case errors.Is(err, voting.ErrInvalidChoice):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, voting.CodeInvalidChoice, "choice must be 1 or 2")
	case errors.Is(err, voting.ErrInvalidRecipient):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, voting.CodeInvalidRecipient, "A valid email is required")
	case errors.Is(err, voting.ErrInvalidPoll):
		middleware.CodedErrorResponse(w, http.StatusNotFound, voting.CodeInvalidPoll, "Poll not available")
	default:
		slog.Error("voting request failed", "error", err)
		middleware.CodedErrorResponse(w, http.StatusInternalServerError, voting.CodeStorageError, "Storage error")
	}
}
