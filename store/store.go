// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store defines the persistence contracts for polls and votes.
//
// Vote deduplication is owned by the backing store: every implementation
// enforces uniqueness on (poll id, voter hash) and reports a violation as
// ErrDuplicateVote from a single insert attempt.
package store

import (
	"context"
	"errors"

	"github.com/vocaltworld/micropoll/models"
)

var (
	ErrPollNotFound  = errors.New("poll not found")
	ErrPollExists    = errors.New("poll already exists")
	ErrDuplicateVote = errors.New("vote already recorded")
)

// DefaultResultsLimit caps the rows returned with poll results
const DefaultResultsLimit = 500

type PollStore interface {
	GetPoll(ctx context.Context, id string) (models.Poll, error)
	ListPolls(ctx context.Context) ([]models.Poll, error)
	CreatePoll(ctx context.Context, p models.Poll) error
	SetPollActive(ctx context.Context, id string, active bool) error
}

type VoteStore interface {
	// InsertVote stores v or returns ErrDuplicateVote when the voter already
	// voted on the poll.
	InsertVote(ctx context.Context, v models.VoteRecord) error
	ListVotes(ctx context.Context, pollID string, limit int) ([]models.VoteRecord, error)
	CountVotes(ctx context.Context, pollID string) (models.Tally, error)
}

// Store is a complete backend
type Store interface {
	PollStore
	VoteStore
	Close() error
}
