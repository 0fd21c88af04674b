// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrBadSignature     = errors.New("bad token signature")
	ErrMalformedPayload = errors.New("malformed token payload")
)

const tokenSeparator = "."

// Payload is the signed content of a vote token. Field names are kept short
// because the token travels in email links.
type Payload struct {
	Email  string `json:"e"`
	PollID string `json:"q"`
	Expiry int64  `json:"exp"` // Unix milliseconds
}

// NewPayload builds a payload with a normalized email and an expiry truncated
// to the millisecond precision the wire format carries.
func NewPayload(email, pollID string, expiresAt time.Time) Payload {
	return Payload{
		Email:  NormalizeEmail(email),
		PollID: strings.TrimSpace(pollID),
		Expiry: expiresAt.UnixMilli(),
	}
}

// ExpiresAt returns the absolute expiry instant
func (p Payload) ExpiresAt() time.Time {
	return time.UnixMilli(p.Expiry)
}

// Expired reports whether the token is past its expiry at now
func (p Payload) Expired(now time.Time) bool {
	return now.UnixMilli() > p.Expiry
}

// Sign encodes the payload and appends a hex HMAC-SHA256 over the encoded
// segment.
func Sign(p Payload, secret []byte) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode token payload: %w", err)
	}
	segment := base64.RawURLEncoding.EncodeToString(raw)
	return segment + tokenSeparator + signature(segment, secret), nil
}

// Verify checks the token signature and decodes its payload. Expiry is left
// to the caller.
func Verify(token string, secret []byte) (Payload, error) {
	parts := strings.Split(strings.TrimSpace(token), tokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Payload{}, ErrMalformedToken
	}
	segment, sig := parts[0], parts[1]

	expected := signature(segment, secret)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return Payload{}, ErrBadSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Email == "" || p.PollID == "" || p.Expiry == 0 {
		return Payload{}, fmt.Errorf("%w: missing fields", ErrMalformedPayload)
	}

	return p, nil
}

func signature(segment string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(segment))
	return hex.EncodeToString(h.Sum(nil))
}
