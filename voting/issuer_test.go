// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/clock"
)

var testSecret = []byte("issuer-secret")

func TestIssueLink(t *testing.T) {
	now := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer := NewIssuer(testSecret, 0, clock.Fake(now))

	link, err := issuer.IssueLink("P1", "  Voter@Example.com ", -1)
	require.NoError(t, err)

	assert.Equal(t, "P1", link.PollID)
	assert.True(t, link.ExpiresAt.Equal(now.Add(DefaultWindow)), "default window is 7 days")

	p, err := auth.Verify(link.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "voter@example.com", p.Email)
	assert.Equal(t, "P1", p.PollID)
	assert.True(t, p.ExpiresAt().Equal(link.ExpiresAt))
}

func TestIssueLinkExplicitWindow(t *testing.T) {
	now := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer := NewIssuer(testSecret, time.Hour, clock.Fake(now))

	link, err := issuer.IssueLink("P1", "a@b.com", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, link.ExpiresAt.Equal(now.Add(10*time.Minute)))

	link, err = issuer.IssueLink("P1", "a@b.com", -1)
	require.NoError(t, err)
	assert.True(t, link.ExpiresAt.Equal(now.Add(time.Hour)), "negative window uses issuer default")

	link, err = issuer.IssueLink("P1", "a@b.com", 0)
	require.NoError(t, err)
	assert.True(t, link.ExpiresAt.Equal(now), "zero window expires at issuance")
}

func TestIssueLinkTwiceYieldsIndependentTokens(t *testing.T) {
	clk := clock.Fake(time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer := NewIssuer(testSecret, 0, clk)
	email := gofakeit.Email()

	first, err := issuer.IssueLink("P1", email, -1)
	require.NoError(t, err)
	clk.Advance(time.Second)
	second, err := issuer.IssueLink("P1", email, -1)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	for _, tok := range []string{first.Token, second.Token} {
		_, err := auth.Verify(tok, testSecret)
		assert.NoError(t, err)
	}
}

func TestIssueLinkErrors(t *testing.T) {
	issuer := NewIssuer(testSecret, 0, nil)

	tests := []struct {
		name    string
		pollID  string
		email   string
		wantErr error
	}{
		{"missing poll", "  ", "a@b.com", ErrInvalidPoll},
		{"missing email", "P1", "", ErrInvalidRecipient},
		{"no at sign", "P1", "not-an-email", ErrInvalidRecipient},
		{"too long", "P1", strings.Repeat("a", 320) + "@b.com", ErrInvalidRecipient},
		{"klaviyo placeholder", "P1", "{{ email }}", ErrInvalidRecipient},
		{"half rendered", "P1", "{{person.email}}@b.com", ErrInvalidRecipient},
		{"jinja tag", "P1", "{% email %}@b.com", ErrInvalidRecipient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.IssueLink(tt.pollID, tt.email, -1)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVoteURL(t *testing.T) {
	got := VoteURL("https://survey.example/", "poll 1", "abc.def")
	u, err := url.Parse(got)
	require.NoError(t, err)

	assert.Equal(t, "survey.example", u.Host)
	assert.Equal(t, "/poll/poll 1", u.Path)
	assert.Equal(t, "abc.def", u.Query().Get("token"))
	assert.True(t, strings.HasPrefix(got, "https://survey.example/poll/poll%201?token="))
}
