// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/ratelimit"
	"github.com/vocaltworld/micropoll/router"
	"github.com/vocaltworld/micropoll/testutil"
	"github.com/vocaltworld/micropoll/votepage"
	"github.com/vocaltworld/micropoll/voting"
)

func newTestServer(t *testing.T, limiter ratelimit.Limiter) (*Client, *clock.FakeClock) {
	t.Helper()
	s := testutil.SetupTestStore(t)
	testutil.CreateTestPoll(t, s, "P1", true)
	testutil.CreateTestPoll(t, s, "closed", false)

	clk := clock.Fake(time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC))
	srv := httptest.NewServer(router.NewRouter(s, testutil.GetTestConfig(), limiter, clk))
	t.Cleanup(srv.Close)

	return New(srv.URL+"/", srv.Client()), clk
}

func TestGetPoll(t *testing.T) {
	c, _ := newTestServer(t, nil)
	ctx := context.Background()

	p, err := c.GetPoll(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "P1", p.ID)
	assert.True(t, p.Active)
	assert.Equal(t, "Yes", p.OptionYes)

	p, err = c.GetPoll(ctx, "closed")
	require.NoError(t, err)
	assert.False(t, p.Active)

	_, err = c.GetPoll(ctx, "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.ErrorIs(t, err, voting.ErrInvalidPoll)
}

func TestIssueLink(t *testing.T) {
	c, clk := newTestServer(t, nil)
	ctx := context.Background()

	link, err := c.IssueLink(ctx, "P1", "Voter@Example.com")
	require.NoError(t, err)
	assert.True(t, link.OK)
	assert.Equal(t, "P1", link.PollID)
	assert.NotEmpty(t, link.Token)
	assert.Equal(t, clk.Now().Add(7*24*time.Hour).UnixMilli(), link.Exp)

	_, err = c.RequestLink(ctx, "P1", "not-an-address")
	assert.ErrorIs(t, err, voting.ErrInvalidRecipient)

	_, err = c.RequestLink(ctx, "closed", "a@b.com")
	assert.ErrorIs(t, err, voting.ErrInvalidPoll)
}

func TestVote(t *testing.T) {
	c, _ := newTestServer(t, nil)
	ctx := context.Background()

	token, err := c.RequestLink(ctx, "P1", "a@b.com")
	require.NoError(t, err)

	resp, err := c.Vote(ctx, token, "1", "P1")
	require.NoError(t, err)
	assert.Equal(t, models.VoteResponse{Accepted: true}, resp)

	resp, err = c.Vote(ctx, token, "2", "")
	require.NoError(t, err)
	assert.Equal(t, models.VoteResponse{Accepted: false, Reason: models.ReasonAlreadyVoted}, resp)
}

func TestVoteErrors(t *testing.T) {
	c, clk := newTestServer(t, nil)
	ctx := context.Background()

	token, err := c.RequestLink(ctx, "P1", "a@b.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		choice string
		pollID string
		want   error
		status int
	}{
		{"forged", token[:len(token)-1] + flip(token[len(token)-1]), "1", "", auth.ErrBadSignature, http.StatusUnauthorized},
		{"malformed", "garbage", "1", "", auth.ErrBadSignature, http.StatusUnauthorized},
		{"bad choice", token, "maybe", "", voting.ErrInvalidChoice, http.StatusBadRequest},
		{"other poll", token, "1", "closed", voting.ErrPollMismatch, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Vote(ctx, tt.token, tt.choice, tt.pollID)
			assert.ErrorIs(t, err, tt.want)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}

	clk.Advance(8 * 24 * time.Hour)
	_, err = c.Vote(ctx, token, "1", "")
	assert.ErrorIs(t, err, voting.ErrTokenExpired)
	assert.True(t, voting.IsInvalidLink(err))
}

func TestRateLimitedLink(t *testing.T) {
	clk := clock.Fake(time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC))
	c, _ := newTestServer(t, ratelimit.NewMemory(1, time.Minute, clk))
	ctx := context.Background()

	_, err := c.RequestLink(ctx, "P1", "a@b.com")
	require.NoError(t, err)

	_, err = c.RequestLink(ctx, "P1", "a@b.com")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "rate_limited", apiErr.Code)
	assert.Nil(t, apiErr.Unwrap())
}

func TestPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).GetPoll(context.Background(), "P1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.True(t, strings.Contains(apiErr.Error(), "502"))
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).GetPoll(context.Background(), "P1")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestVotePageOverHTTP(t *testing.T) {
	c, _ := newTestServer(t, nil)
	ctx := context.Background()

	params, err := votepage.ParseVoteURL(testutil.TestBaseURL + "/poll/P1?e=page%40example.com")
	require.NoError(t, err)

	page := votepage.New(c)
	require.NoError(t, page.Load(ctx, params))
	require.NoError(t, page.Select(models.ChoiceB))
	require.NoError(t, page.Confirm(ctx))
	assert.Equal(t, votepage.Submitted, page.View().State)

	again := votepage.New(c)
	require.NoError(t, again.Load(ctx, params))
	require.NoError(t, again.Select(models.ChoiceA))
	require.NoError(t, again.Confirm(ctx))
	assert.Equal(t, page.View().State, again.View().State)
	assert.Equal(t, page.View().Message, again.View().Message)

	forged := votepage.New(c)
	require.NoError(t, forged.Load(ctx, votepage.Params{PollID: "P1", Token: "x.y", Prefill: models.ChoiceA}))
	assert.ErrorIs(t, forged.Confirm(ctx), auth.ErrBadSignature)
	assert.Equal(t, votepage.MsgInvalidLink, forged.View().Message)
}

func flip(b byte) string {
	if b == '0' {
		return "1"
	}
	return "0"
}
