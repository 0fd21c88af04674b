package models

import (
	"strings"
	"time"
)

// Choice is the canonical binary vote encoding stored in the response table
type Choice string

const (
	ChoiceA Choice = "1"
	ChoiceB Choice = "2"
)

// Outcome reasons
const (
	ReasonAlreadyVoted = "already_voted"
)

// ParseChoice maps the accepted spellings onto the binary enum.
// Unknown input returns ok=false.
func ParseChoice(raw string) (Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "yes", "a", "option_a":
		return ChoiceA, true
	case "2", "no", "b", "option_b":
		return ChoiceB, true
	}
	return "", false
}

// Label returns the poll's label for this choice
func (c Choice) Label(p PublicPoll) string {
	if c == ChoiceA {
		return p.OptionYes
	}
	return p.OptionNo
}

// Domain types

type Poll struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	OptionYes     string    `json:"option_yes"`
	OptionNo      string    `json:"option_no"`
	Active        bool      `json:"active"`
	CampaignKey   string    `json:"campaign_key,omitempty"`
	CampaignLabel string    `json:"campaign_label,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DisplayLabel picks a stable name for admin listings
func (p Poll) DisplayLabel() string {
	for _, s := range []string{p.CampaignLabel, p.CampaignKey, p.Question} {
		if s != "" {
			return s
		}
	}
	return p.ID
}

type VoteRecord struct {
	ID        string    `json:"id"`
	PollID    string    `json:"question_id"`
	VoterID   string    `json:"voter_hash"`
	Choice    Choice    `json:"choice"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tally aggregates votes for one poll
type Tally struct {
	Yes    int `json:"yes"`
	No     int `json:"no"`
	Total  int `json:"total"`
	PctYes int `json:"pct_yes"`
	PctNo  int `json:"pct_no"`
}

// NewTally computes totals and rounded percentages
func NewTally(yes, no int) Tally {
	t := Tally{Yes: yes, No: no, Total: yes + no}
	if t.Total > 0 {
		t.PctYes = roundPct(yes, t.Total)
		t.PctNo = roundPct(no, t.Total)
	}
	return t
}

func roundPct(n, total int) int {
	return (n*200 + total) / (2 * total)
}

// Request types

type CreatePollRequest struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	OptionYes     string `json:"option_yes"`
	OptionNo      string `json:"option_no"`
	Active        *bool  `json:"active"`
	CampaignKey   string `json:"campaign_key"`
	CampaignLabel string `json:"campaign_label"`
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}

// Public strips the fields the vote page must not see
func (p Poll) Public() PublicPoll {
	return PublicPoll{
		ID:        p.ID,
		Question:  p.Question,
		OptionYes: p.OptionYes,
		OptionNo:  p.OptionNo,
		Active:    p.Active,
	}
}

// Response types

type LinkResponse struct {
	OK        bool      `json:"ok"`
	Token     string    `json:"token"`
	PollID    string    `json:"poll_id"`
	Exp       int64     `json:"exp"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url,omitempty"`
}

type VoteResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// PublicPoll is what the vote page may see of a poll
type PublicPoll struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	OptionYes string `json:"option_yes"`
	OptionNo  string `json:"option_no"`
	Active    bool   `json:"active"`
}

type PollListItem struct {
	Poll
	Label string `json:"label"`
}

type PollListResponse struct {
	Polls []PollListItem `json:"polls"`
}

type PollResultsResponse struct {
	PollID string       `json:"poll_id"`
	Rows   []VoteRecord `json:"rows"`
	Stats  Tally        `json:"stats"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
