// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package postgrest implements store.Store over a Supabase/PostgREST REST
// endpoint. Tables and uniqueness are the ones created by the db migrations;
// a unique violation comes back as HTTP 409.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
)

const (
	pollTable = "micro_questions"
	voteTable = "micro_poll_responses"

	pollColumns = "id,question,option_yes,option_no,active,campaign_key,campaign_label,created_at"
	voteColumns = "id,question_id,voter_hash,choice,email,created_at"
)

// StatusError is a non-2xx response from the REST endpoint
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("postgrest: status %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// New creates a client for baseURL (the project URL, without /rest/v1).
// A nil httpClient uses a client with a 10 second timeout.
func New(baseURL, serviceKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/rest/v1/",
		serviceKey: serviceKey,
		httpClient: httpClient,
	}
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// naive layouts PostgREST uses for TIMESTAMP (without time zone) columns
var naiveLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"}

// timestamp reads created_at in either RFC 3339 (timestamptz) or the naive
// form of a plain TIMESTAMP column, which is taken as UTC. It is written
// as RFC 3339 in UTC.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v.UTC()
		return nil
	}
	for _, layout := range naiveLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("created_at: unrecognized timestamp %q", s)
}

// row shapes as PostgREST returns them
type pollRow struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	OptionYes     string    `json:"option_yes"`
	OptionNo      string    `json:"option_no"`
	Active        bool      `json:"active"`
	CampaignKey   *string   `json:"campaign_key"`
	CampaignLabel *string   `json:"campaign_label"`
	CreatedAt     timestamp `json:"created_at"`
}

type voteRow struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	VoterHash  string    `json:"voter_hash"`
	Choice     string    `json:"choice"`
	Email      *string   `json:"email"`
	CreatedAt  timestamp `json:"created_at"`
}

func (c *Client) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	const op = "postgrest.GetPoll"

	q := url.Values{}
	q.Set("select", pollColumns)
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var rows []pollRow
	if err := c.do(ctx, http.MethodGet, pollTable, q, nil, "", &rows); err != nil {
		return models.Poll{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(rows) == 0 {
		return models.Poll{}, fmt.Errorf("%s: %w", op, store.ErrPollNotFound)
	}
	return rows[0].toPoll(), nil
}

func (c *Client) ListPolls(ctx context.Context) ([]models.Poll, error) {
	const op = "postgrest.ListPolls"

	q := url.Values{}
	q.Set("select", pollColumns)
	q.Set("order", "created_at.desc,id.asc")

	var rows []pollRow
	if err := c.do(ctx, http.MethodGet, pollTable, q, nil, "", &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	polls := make([]models.Poll, 0, len(rows))
	for _, r := range rows {
		polls = append(polls, r.toPoll())
	}
	return polls, nil
}

func (c *Client) CreatePoll(ctx context.Context, p models.Poll) error {
	const op = "postgrest.CreatePoll"

	row := pollRow{
		ID:            p.ID,
		Question:      p.Question,
		OptionYes:     p.OptionYes,
		OptionNo:      p.OptionNo,
		Active:        p.Active,
		CampaignKey:   optional(p.CampaignKey),
		CampaignLabel: optional(p.CampaignLabel),
		CreatedAt:     timestamp{p.CreatedAt.UTC()},
	}
	err := c.do(ctx, http.MethodPost, pollTable, nil, row, "return=minimal", nil)
	if isConflict(err) {
		return fmt.Errorf("%s: %w", op, store.ErrPollExists)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) SetPollActive(ctx context.Context, id string, active bool) error {
	const op = "postgrest.SetPollActive"

	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "id")

	var rows []struct {
		ID string `json:"id"`
	}
	body := map[string]bool{"active": active}
	if err := c.do(ctx, http.MethodPatch, pollTable, q, body, "return=representation", &rows); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrPollNotFound)
	}
	return nil
}

// InsertVote posts a single row; the (question_id, voter_hash) unique index
// answers a repeat with 409
func (c *Client) InsertVote(ctx context.Context, v models.VoteRecord) error {
	const op = "postgrest.InsertVote"

	row := voteRow{
		ID:         v.ID,
		QuestionID: v.PollID,
		VoterHash:  v.VoterID,
		Choice:     string(v.Choice),
		Email:      optional(v.Email),
		CreatedAt:  timestamp{v.CreatedAt.UTC()},
	}
	err := c.do(ctx, http.MethodPost, voteTable, nil, row, "return=minimal", nil)
	if isConflict(err) {
		return fmt.Errorf("%s: %w", op, store.ErrDuplicateVote)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) ListVotes(ctx context.Context, pollID string, limit int) ([]models.VoteRecord, error) {
	const op = "postgrest.ListVotes"

	if limit <= 0 {
		limit = store.DefaultResultsLimit
	}
	q := url.Values{}
	q.Set("select", voteColumns)
	q.Set("question_id", "eq."+pollID)
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []voteRow
	if err := c.do(ctx, http.MethodGet, voteTable, q, nil, "", &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	votes := make([]models.VoteRecord, 0, len(rows))
	for _, r := range rows {
		votes = append(votes, models.VoteRecord{
			ID:        r.ID,
			PollID:    r.QuestionID,
			VoterID:   r.VoterHash,
			Choice:    models.Choice(r.Choice),
			Email:     deref(r.Email),
			CreatedAt: r.CreatedAt.Time,
		})
	}
	return votes, nil
}

// CountVotes reads exact counts from the Content-Range header of HEAD
// requests, one per choice.
func (c *Client) CountVotes(ctx context.Context, pollID string) (models.Tally, error) {
	const op = "postgrest.CountVotes"

	yes, err := c.count(ctx, pollID, models.ChoiceA)
	if err != nil {
		return models.Tally{}, fmt.Errorf("%s: %w", op, err)
	}
	no, err := c.count(ctx, pollID, models.ChoiceB)
	if err != nil {
		return models.Tally{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.NewTally(yes, no), nil
}

func (c *Client) count(ctx context.Context, pollID string, choice models.Choice) (int, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("question_id", "eq."+pollID)
	q.Set("choice", "eq."+string(choice))

	req, err := c.newRequest(ctx, http.MethodHead, voteTable, q, nil, "count=exact")
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, &StatusError{Status: resp.StatusCode}
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// parseContentRange extracts the total from "0-9/42" or "*/0"
func parseContentRange(v string) (int, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, fmt.Errorf("postgrest: bad Content-Range %q", v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, fmt.Errorf("postgrest: bad Content-Range %q", v)
	}
	return n, nil
}

func (c *Client) newRequest(ctx context.Context, method, table string, q url.Values, body any, prefer string) (*http.Request, error) {
	u := c.baseURL + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, table string, q url.Values, body any, prefer string, out any) error {
	req, err := c.newRequest(ctx, method, table, q, body, prefer)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusConflict
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r pollRow) toPoll() models.Poll {
	return models.Poll{
		ID:            r.ID,
		Question:      r.Question,
		OptionYes:     r.OptionYes,
		OptionNo:      r.OptionNo,
		Active:        r.Active,
		CampaignKey:   deref(r.CampaignKey),
		CampaignLabel: deref(r.CampaignLabel),
		CreatedAt:     r.CreatedAt.Time,
	}
}
