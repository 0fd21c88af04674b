// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/testutil"
)

type fixture struct {
	clock    *clock.FakeClock
	store    store.Store
	issuer   *Issuer
	recorder *Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.Fake(time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC))
	s := testutil.SetupTestStore(t)
	return &fixture{
		clock:    clk,
		store:    s,
		issuer:   NewIssuer(testSecret, 0, clk),
		recorder: NewRecorder(testSecret, s, s, clk, true),
	}
}

func (f *fixture) issue(t *testing.T, pollID, email string) string {
	t.Helper()
	link, err := f.issuer.IssueLink(pollID, email, -1)
	require.NoError(t, err)
	return link.Token
}

func TestRecordVoteScenario(t *testing.T) {
	f := newFixture(t)
	testutil.CreateTestPoll(t, f.store, "P1", true)
	ctx := context.Background()

	t1 := f.issue(t, "P1", "a@b.com")

	out, err := f.recorder.RecordVote(ctx, Request{Token: t1, Choice: "1"})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, models.ChoiceA, out.Choice)

	out, err = f.recorder.RecordVote(ctx, Request{Token: t1, Choice: "2"})
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, models.ReasonAlreadyVoted, out.Reason)

	// a re-issued link does not reopen the vote
	f.clock.Advance(time.Minute)
	t2 := f.issue(t, "P1", "A@B.com")
	out, err = f.recorder.RecordVote(ctx, Request{Token: t2, Choice: "1"})
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, models.ReasonAlreadyVoted, out.Reason)

	tally, err := f.store.CountVotes(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Total)
	assert.Equal(t, 1, tally.Yes)

	rows, err := f.store.ListVotes(ctx, "P1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, auth.VoterID("a@b.com"), rows[0].VoterID)
	assert.Equal(t, "a@b.com", rows[0].Email)
}

func TestRecordVoteZeroWindowExpires(t *testing.T) {
	f := newFixture(t)
	testutil.CreateTestPoll(t, f.store, "P1", true)

	link, err := f.issuer.IssueLink("P1", "a@b.com", 0)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.recorder.RecordVote(context.Background(), Request{Token: link.Token, Choice: "1"})
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, CodeTokenExpired, Code(err))
}

func TestRecordVoteExpiredRegardlessOfSignature(t *testing.T) {
	f := newFixture(t)
	testutil.CreateTestPoll(t, f.store, "P1", true)

	token, err := auth.Sign(auth.NewPayload("a@b.com", "P1", f.clock.Now().Add(-time.Hour)), testSecret)
	require.NoError(t, err)

	_, err = f.recorder.RecordVote(context.Background(), Request{Token: token, Choice: "yes"})
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRecordVoteErrors(t *testing.T) {
	f := newFixture(t)
	testutil.CreateTestPoll(t, f.store, "P1", true)
	testutil.CreateTestPoll(t, f.store, "closed", false)

	valid := f.issue(t, "P1", "a@b.com")
	otherSecret, _ := auth.Sign(auth.NewPayload("a@b.com", "P1", f.clock.Now().Add(time.Hour)), []byte("wrong"))

	tests := []struct {
		name     string
		req      Request
		wantErr  error
		wantCode string
	}{
		{"empty choice", Request{Token: valid, Choice: ""}, ErrInvalidChoice, CodeInvalidChoice},
		{"choice 3", Request{Token: valid, Choice: "3"}, ErrInvalidChoice, CodeInvalidChoice},
		{"malformed token", Request{Token: "garbage", Choice: "1"}, auth.ErrMalformedToken, CodeMalformedToken},
		{"bad signature", Request{Token: otherSecret, Choice: "1"}, auth.ErrBadSignature, CodeBadSignature},
		{"poll mismatch", Request{Token: valid, Choice: "1", PollID: "P2"}, ErrPollMismatch, CodePollMismatch},
		{"unknown poll", Request{Token: f.issue(t, "ghost", "a@b.com"), Choice: "1"}, ErrInvalidPoll, CodeInvalidPoll},
		{"inactive poll", Request{Token: f.issue(t, "closed", "a@b.com"), Choice: "1"}, ErrInvalidPoll, CodeInvalidPoll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.recorder.RecordVote(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, Code(err))
		})
	}

	tally, err := f.store.CountVotes(context.Background(), "P1")
	require.NoError(t, err)
	assert.Zero(t, tally.Total, "failed votes must not be stored")
}

func TestRecordVoteMatchingExplicitPoll(t *testing.T) {
	f := newFixture(t)
	testutil.CreateTestPoll(t, f.store, "P1", true)

	out, err := f.recorder.RecordVote(context.Background(), Request{Token: f.issue(t, "P1", "a@b.com"), Choice: "no", PollID: "P1"})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, models.ChoiceB, out.Choice)
}

func TestRecordVoteConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	testutil.CreateTestPoll(t, f.store, "P1", true)
	token := f.issue(t, "P1", "double@click.com")

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	start := make(chan struct{})

	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcomes[i], errs[i] = f.recorder.RecordVote(context.Background(), Request{Token: token, Choice: "1"})
		}(i)
	}
	close(start)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.True(t, outcomes[0].Accepted != outcomes[1].Accepted, "exactly one vote is accepted")
}

func TestRecordVoteWithoutEmail(t *testing.T) {
	f := newFixture(t)
	testutil.CreateTestPoll(t, f.store, "P1", true)
	recorder := NewRecorder(testSecret, f.store, f.store, f.clock, false)

	_, err := recorder.RecordVote(context.Background(), Request{Token: f.issue(t, "P1", "private@b.com"), Choice: "1"})
	require.NoError(t, err)

	rows, err := f.store.ListVotes(context.Background(), "P1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Email)
}

// countingStore fails every call and records whether it was touched
type countingStore struct {
	store.Store
	calls     int
	insertErr error
	poll      models.Poll
}

func (c *countingStore) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	c.calls++
	return c.poll, nil
}

func (c *countingStore) InsertVote(ctx context.Context, v models.VoteRecord) error {
	c.calls++
	return c.insertErr
}

func TestRecordVoteInvalidChoiceSkipsStorage(t *testing.T) {
	cs := &countingStore{}
	r := NewRecorder(testSecret, cs, cs, nil, true)

	_, err := r.RecordVote(context.Background(), Request{Token: "whatever", Choice: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.Zero(t, cs.calls)
}

func TestRecordVoteStorageError(t *testing.T) {
	clk := clock.Fake(time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC))
	cs := &countingStore{
		insertErr: errors.New("connection reset"),
		poll:      models.Poll{ID: "P1", Active: true},
	}
	r := NewRecorder(testSecret, cs, cs, clk, true)
	link, err := NewIssuer(testSecret, 0, clk).IssueLink("P1", "a@b.com", -1)
	require.NoError(t, err)

	_, err = r.RecordVote(context.Background(), Request{Token: link.Token, Choice: "1"})
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, CodeStorageError, Code(err))
	assert.Equal(t, 2, cs.calls)
}

func TestIsInvalidLink(t *testing.T) {
	assert.True(t, IsInvalidLink(auth.ErrBadSignature))
	assert.True(t, IsInvalidLink(auth.ErrMalformedToken))
	assert.True(t, IsInvalidLink(ErrTokenExpired))
	assert.False(t, IsInvalidLink(ErrInvalidChoice))
	assert.False(t, IsInvalidLink(nil))
	assert.Equal(t, "", Code(errors.New("other")))
}

func TestFromCode(t *testing.T) {
	for _, c := range codes {
		assert.Equal(t, c.code, Code(FromCode(c.code)))
	}
	assert.Nil(t, FromCode("invalid_token"))
	assert.Nil(t, FromCode(""))
}
