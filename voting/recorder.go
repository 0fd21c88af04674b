// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
)

// Request is a vote submission. PollID is optional; when present it must
// match the poll the token was issued for.
type Request struct {
	Token  string
	Choice string
	PollID string
}

// Outcome of a vote. A repeat vote is a successful outcome with
// Accepted=false and Reason=models.ReasonAlreadyVoted.
type Outcome struct {
	Accepted bool
	Reason   string
	PollID   string
	Choice   models.Choice
}

type Recorder struct {
	secret    []byte
	polls     store.PollStore
	votes     store.VoteStore
	clock     clock.Clock
	keepEmail bool
}

// NewRecorder creates a recorder. keepEmail stores the normalized address
// next to the voter hash for admin display.
func NewRecorder(secret []byte, polls store.PollStore, votes store.VoteStore, clk clock.Clock, keepEmail bool) *Recorder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Recorder{
		secret:    secret,
		polls:     polls,
		votes:     votes,
		clock:     clk,
		keepEmail: keepEmail,
	}
}

// RecordVote verifies the token and stores the vote with a single insert.
// Whether the voter already voted is decided by the store's uniqueness
// constraint, never by a prior read.
func (r *Recorder) RecordVote(ctx context.Context, req Request) (Outcome, error) {
	choice, ok := models.ParseChoice(req.Choice)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidChoice, req.Choice)
	}

	p, err := auth.Verify(req.Token, r.secret)
	if err != nil {
		return Outcome{}, err
	}

	now := r.clock.Now()
	if p.Expired(now) {
		return Outcome{}, ErrTokenExpired
	}

	if explicit := strings.TrimSpace(req.PollID); explicit != "" && explicit != p.PollID {
		return Outcome{}, ErrPollMismatch
	}

	poll, err := r.polls.GetPoll(ctx, p.PollID)
	if errors.Is(err, store.ErrPollNotFound) {
		return Outcome{}, fmt.Errorf("%w: poll %s not found", ErrInvalidPoll, p.PollID)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !poll.Active {
		return Outcome{}, fmt.Errorf("%w: poll %s is not active", ErrInvalidPoll, p.PollID)
	}

	record := models.VoteRecord{
		ID:        uuid.NewString(),
		PollID:    p.PollID,
		VoterID:   auth.VoterID(p.Email),
		Choice:    choice,
		CreatedAt: now.UTC(),
	}
	if r.keepEmail {
		record.Email = p.Email
	}

	out := Outcome{PollID: p.PollID, Choice: choice}
	err = r.votes.InsertVote(ctx, record)
	switch {
	case err == nil:
		out.Accepted = true
		return out, nil
	case errors.Is(err, store.ErrDuplicateVote):
		out.Reason = models.ReasonAlreadyVoted
		return out, nil
	default:
		return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
