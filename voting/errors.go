// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"errors"

	"github.com/vocaltworld/micropoll/auth"
)

var (
	ErrTokenExpired     = errors.New("token expired")
	ErrPollMismatch     = errors.New("token issued for a different poll")
	ErrInvalidChoice    = errors.New("invalid choice")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidPoll      = errors.New("invalid poll")
	ErrStorage          = errors.New("storage error")
)

// Wire codes for the error taxonomy
const (
	CodeMalformedToken   = "malformed_token"
	CodeBadSignature     = "bad_signature"
	CodeMalformedPayload = "malformed_payload"
	CodeTokenExpired     = "token_expired"
	CodePollMismatch     = "poll_mismatch"
	CodeInvalidChoice    = "invalid_choice"
	CodeInvalidRecipient = "invalid_recipient"
	CodeInvalidPoll      = "invalid_poll"
	CodeStorageError     = "storage_error"
)

var codes = []struct {
	err  error
	code string
}{
	{auth.ErrMalformedToken, CodeMalformedToken},
	{auth.ErrBadSignature, CodeBadSignature},
	{auth.ErrMalformedPayload, CodeMalformedPayload},
	{ErrTokenExpired, CodeTokenExpired},
	{ErrPollMismatch, CodePollMismatch},
	{ErrInvalidChoice, CodeInvalidChoice},
	{ErrInvalidRecipient, CodeInvalidRecipient},
	{ErrInvalidPoll, CodeInvalidPoll},
	{ErrStorage, CodeStorageError},
}

// Code maps err onto its taxonomy code. Unclassified errors return "".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// IsInvalidLink reports whether err should be shown to a voter as the
// generic "link invalid or expired" message.
func IsInvalidLink(err error) bool {
	return errors.Is(err, auth.ErrMalformedToken) ||
		errors.Is(err, auth.ErrBadSignature) ||
		errors.Is(err, auth.ErrMalformedPayload) ||
		errors.Is(err, ErrTokenExpired)
}

// FromCode is the inverse of Code, for clients reading a wire error.
// Unknown codes return nil.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
