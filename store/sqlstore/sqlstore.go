// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sqlstore implements the poll and vote stores on database/sql for
// sqlite (modernc.org/sqlite) and postgres (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
)

// Driver names accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Storage struct {
	db *sql.DB
}

// Open connects and pings. The schema is not created here.
func Open(driver, dsn string) (*Storage, error) {
	const op = "sqlstore.Open"

	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer; serialize instead of surfacing SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// DB exposes the connection for schema management
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	const op = "sqlstore.GetPoll"

	row := s.db.QueryRowContext(ctx, `
		SELECT id, question, option_yes, option_no, active, campaign_key, campaign_label, created_at
		FROM micro_questions WHERE id = $1
	`, id)

	p, err := scanPoll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, fmt.Errorf("%s: %w", op, store.ErrPollNotFound)
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *Storage) ListPolls(ctx context.Context) ([]models.Poll, error) {
	const op = "sqlstore.ListPolls"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, option_yes, option_no, active, campaign_key, campaign_label, created_at
		FROM micro_questions ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return polls, nil
}

func (s *Storage) CreatePoll(ctx context.Context, p models.Poll) error {
	const op = "sqlstore.CreatePoll"

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO micro_questions (id, question, option_yes, option_no, active, campaign_key, campaign_label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Question, p.OptionYes, p.OptionNo, p.Active,
		nullString(p.CampaignKey), nullString(p.CampaignLabel), p.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, store.ErrPollExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) SetPollActive(ctx context.Context, id string, active bool) error {
	const op = "sqlstore.SetPollActive"

	res, err := s.db.ExecContext(ctx, `UPDATE micro_questions SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrPollNotFound)
	}
	return nil
}

// InsertVote is a single INSERT; the UNIQUE (question_id, voter_hash)
// constraint decides whether the voter already voted.
func (s *Storage) InsertVote(ctx context.Context, v models.VoteRecord) error {
	const op = "sqlstore.InsertVote"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO micro_poll_responses (id, question_id, voter_hash, choice, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.ID, v.PollID, v.VoterID, string(v.Choice), nullString(v.Email), v.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, store.ErrDuplicateVote)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) ListVotes(ctx context.Context, pollID string, limit int) ([]models.VoteRecord, error) {
	const op = "sqlstore.ListVotes"

	if limit <= 0 {
		limit = store.DefaultResultsLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, voter_hash, choice, email, created_at
		FROM micro_poll_responses
		WHERE question_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, pollID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	votes := []models.VoteRecord{}
	for rows.Next() {
		var v models.VoteRecord
		var choice string
		var email sql.NullString
		if err := rows.Scan(&v.ID, &v.PollID, &v.VoterID, &choice, &email, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		v.Choice = models.Choice(choice)
		v.Email = email.String
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return votes, nil
}

func (s *Storage) CountVotes(ctx context.Context, pollID string) (models.Tally, error) {
	const op = "sqlstore.CountVotes"

	var yes, no int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN choice = '1' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN choice = '2' THEN 1 ELSE 0 END), 0)
		FROM micro_poll_responses
		WHERE question_id = $1
	`, pollID).Scan(&yes, &no)
	if err != nil {
		return models.Tally{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.NewTally(yes, no), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (models.Poll, error) {
	var p models.Poll
	var campaignKey, campaignLabel sql.NullString
	err := row.Scan(&p.ID, &p.Question, &p.OptionYes, &p.OptionNo, &p.Active, &campaignKey, &campaignLabel, &p.CreatedAt)
	if err != nil {
		return models.Poll{}, err
	}
	p.CampaignKey = campaignKey.String
	p.CampaignLabel = campaignLabel.String
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
