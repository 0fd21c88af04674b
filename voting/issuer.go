// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/clock"
)

// DefaultWindow is the validity of a vote link when none is configured
const DefaultWindow = 7 * 24 * time.Hour

// Link is a freshly signed vote credential
type Link struct {
	Token     string
	PollID    string
	ExpiresAt time.Time
}

// Issuer signs vote links. It keeps no state between calls: issuing twice
// for the same voter yields two independently valid tokens.
type Issuer struct {
	secret []byte
	window time.Duration
	clock  clock.Clock
}

// NewIssuer creates an issuer. A non-positive window selects DefaultWindow.
func NewIssuer(secret []byte, window time.Duration, clk clock.Clock) *Issuer {
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Issuer{secret: secret, window: window, clock: clk}
}

// IssueLink signs a token for email on pollID valid for window. A negative
// window uses the issuer default; zero yields a token that expires at
// issuance.
func (i *Issuer) IssueLink(pollID, email string, window time.Duration) (Link, error) {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return Link{}, fmt.Errorf("%w: poll id is required", ErrInvalidPoll)
	}

	normalized, err := ValidateRecipient(email)
	if err != nil {
		return Link{}, err
	}

	if window < 0 {
		window = i.window
	}

	p := auth.NewPayload(normalized, pollID, i.clock.Now().Add(window))
	token, err := auth.Sign(p, i.secret)
	if err != nil {
		return Link{}, err
	}

	return Link{Token: token, PollID: pollID, ExpiresAt: p.ExpiresAt()}, nil
}

// ValidateRecipient normalizes email and rejects addresses that cannot be a
// real recipient, including unrendered mail-merge placeholders.
func ValidateRecipient(email string) (string, error) {
	e := auth.NormalizeEmail(email)
	switch {
	case e == "":
		return "", fmt.Errorf("%w: email is required", ErrInvalidRecipient)
	case len(e) > auth.MaxEmailLength:
		return "", fmt.Errorf("%w: email too long", ErrInvalidRecipient)
	case !strings.Contains(e, "@"):
		return "", fmt.Errorf("%w: email has no @", ErrInvalidRecipient)
	case HasTemplateMarkers(e):
		return "", fmt.Errorf("%w: unrendered template placeholder", ErrInvalidRecipient)
	}
	return e, nil
}

// HasTemplateMarkers reports leftover mail-merge syntax such as {{ email }}
func HasTemplateMarkers(s string) bool {
	for _, m := range []string{"{{", "}}", "{%", "%}"} {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// VoteURL builds the vote page address carrying token
func VoteURL(base, pollID, token string) string {
	return strings.TrimRight(base, "/") + "/poll/" + url.PathEscape(pollID) + "?token=" + url.QueryEscape(token)
}
