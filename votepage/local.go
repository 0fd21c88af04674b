// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votepage

import (
	"context"
	"errors"
	"fmt"

	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/voting"
)

// Local is a Backend that runs the voting package in process
type Local struct {
	polls    store.PollStore
	issuer   *voting.Issuer
	recorder *voting.Recorder
}

func NewLocal(polls store.PollStore, issuer *voting.Issuer, recorder *voting.Recorder) *Local {
	return &Local{polls: polls, issuer: issuer, recorder: recorder}
}

func (l *Local) GetPoll(ctx context.Context, id string) (models.PublicPoll, error) {
	p, err := l.polls.GetPoll(ctx, id)
	if errors.Is(err, store.ErrPollNotFound) {
		return models.PublicPoll{}, fmt.Errorf("%w: %w", voting.ErrInvalidPoll, err)
	}
	if err != nil {
		return models.PublicPoll{}, fmt.Errorf("%w: %w", voting.ErrStorage, err)
	}
	return p.Public(), nil
}

func (l *Local) RequestLink(ctx context.Context, pollID, email string) (string, error) {
	p, err := l.GetPoll(ctx, pollID)
	if err != nil {
		return "", err
	}
	if !p.Active {
		return "", fmt.Errorf("%w: poll %s is not active", voting.ErrInvalidPoll, pollID)
	}

	link, err := l.issuer.IssueLink(pollID, email, -1)
	if err != nil {
		return "", err
	}
	return link.Token, nil
}

func (l *Local) Vote(ctx context.Context, token, choice, pollID string) (models.VoteResponse, error) {
	out, err := l.recorder.RecordVote(ctx, voting.Request{Token: token, Choice: choice, PollID: pollID})
	if err != nil {
		return models.VoteResponse{}, err
	}
	return models.VoteResponse{Accepted: out.Accepted, Reason: out.Reason}, nil
}
