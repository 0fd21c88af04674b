// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package storetest holds behaviour tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
)

// Factory returns an empty store with the schema in place
type Factory func(t *testing.T) store.Store

// Run exercises the poll and vote contracts against fresh stores.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetPollNotFound", func(t *testing.T) { testGetPollNotFound(t, newStore(t)) })
	t.Run("CreateAndList", func(t *testing.T) { testCreateAndList(t, newStore(t)) })
	t.Run("SetPollActive", func(t *testing.T) { testSetPollActive(t, newStore(t)) })
	t.Run("DuplicateVote", func(t *testing.T) { testDuplicateVote(t, newStore(t)) })
	t.Run("ConcurrentDuplicateVotes", func(t *testing.T) { testConcurrentDuplicateVotes(t, newStore(t)) })
	t.Run("CountAndListVotes", func(t *testing.T) { testCountAndListVotes(t, newStore(t)) })
}

// NewPoll returns an active poll with a unique id
func NewPoll(prefix string) models.Poll {
	return models.Poll{
		ID:        prefix + "-" + uuid.NewString()[:8],
		Question:  "Would you use it?",
		OptionYes: "Yes",
		OptionNo:  "No",
		Active:    true,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// NewVote builds a vote record for email
func NewVote(pollID, email string, choice models.Choice) models.VoteRecord {
	return models.VoteRecord{
		ID:        uuid.NewString(),
		PollID:    pollID,
		VoterID:   auth.VoterID(email),
		Choice:    choice,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
}

func testGetPollNotFound(t *testing.T, s store.Store) {
	_, err := s.GetPoll(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrPollNotFound)
}

func testCreateAndList(t *testing.T, s store.Store) {
	ctx := context.Background()

	older := NewPoll("old")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	older.CampaignKey = "spring"
	newer := NewPoll("new")
	newer.Active = false

	require.NoError(t, s.CreatePoll(ctx, older))
	require.NoError(t, s.CreatePoll(ctx, newer))
	assert.ErrorIs(t, s.CreatePoll(ctx, older), store.ErrPollExists)

	got, err := s.GetPoll(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)
	assert.Equal(t, older.Question, got.Question)
	assert.Equal(t, "spring", got.CampaignKey)
	assert.True(t, got.Active)

	polls, err := s.ListPolls(ctx)
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.Equal(t, newer.ID, polls[0].ID, "newest first")
	assert.False(t, polls[0].Active)
}

func testSetPollActive(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPoll("toggle")
	require.NoError(t, s.CreatePoll(ctx, p))

	require.NoError(t, s.SetPollActive(ctx, p.ID, false))
	got, err := s.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, s.SetPollActive(ctx, "missing", true), store.ErrPollNotFound)
}

func testDuplicateVote(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPoll("dup")
	require.NoError(t, s.CreatePoll(ctx, p))

	require.NoError(t, s.InsertVote(ctx, NewVote(p.ID, "a@b.com", models.ChoiceA)))

	err := s.InsertVote(ctx, NewVote(p.ID, "a@b.com", models.ChoiceB))
	assert.ErrorIs(t, err, store.ErrDuplicateVote)

	// same voter on another poll is fine
	other := NewPoll("other")
	require.NoError(t, s.CreatePoll(ctx, other))
	assert.NoError(t, s.InsertVote(ctx, NewVote(other.ID, "a@b.com", models.ChoiceB)))
}

func testConcurrentDuplicateVotes(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPoll("race")
	require.NoError(t, s.CreatePoll(ctx, p))

	const attempts = 8
	var inserted, duplicates atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InsertVote(ctx, NewVote(p.ID, "racer@b.com", models.ChoiceA))
			switch {
			case err == nil:
				inserted.Add(1)
			case errors.Is(err, store.ErrDuplicateVote):
				duplicates.Add(1)
			default:
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected insert error: %v", err)
	}
	assert.EqualValues(t, 1, inserted.Load())
	assert.EqualValues(t, attempts-1, duplicates.Load())

	tally, err := s.CountVotes(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Total)
}

func testCountAndListVotes(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPoll("count")
	require.NoError(t, s.CreatePoll(ctx, p))

	for i := 0; i < 3; i++ {
		v := NewVote(p.ID, fmt.Sprintf("yes%d@b.com", i), models.ChoiceA)
		v.CreatedAt = v.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.InsertVote(ctx, v))
	}
	require.NoError(t, s.InsertVote(ctx, NewVote(p.ID, "no@b.com", models.ChoiceB)))

	tally, err := s.CountVotes(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Tally{Yes: 3, No: 1, Total: 4, PctYes: 75, PctNo: 25}, tally)

	votes, err := s.ListVotes(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, auth.VoterID("yes2@b.com"), votes[0].VoterID, "newest first")
	assert.Equal(t, "yes2@b.com", votes[0].Email)

	empty, err := s.CountVotes(ctx, "no-such-poll")
	require.NoError(t, err)
	assert.Equal(t, models.Tally{}, empty)
}
