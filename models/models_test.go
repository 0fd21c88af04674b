package models

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChoice(t *testing.T) {
	tests := []struct {
		raw    string
		want   Choice
		wantOK bool
	}{
		{"1", ChoiceA, true},
		{"yes", ChoiceA, true},
		{" YES ", ChoiceA, true},
		{"option_a", ChoiceA, true},
		{"2", ChoiceB, true},
		{"No", ChoiceB, true},
		{"b", ChoiceB, true},
		{"", "", false},
		{"3", "", false},
		{"maybe", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseChoice(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChoiceLabel(t *testing.T) {
	p := Poll{ID: "P1", OptionYes: "Sure", OptionNo: "Nope"}.Public()
	assert.Equal(t, "Sure", ChoiceA.Label(p))
	assert.Equal(t, "Nope", ChoiceB.Label(p))
}

func TestNewTally(t *testing.T) {
	assert.Equal(t, Tally{}, NewTally(0, 0))
	assert.Equal(t, Tally{Yes: 1, No: 2, Total: 3, PctYes: 33, PctNo: 67}, NewTally(1, 2))
	assert.Equal(t, Tally{Yes: 1, No: 1, Total: 2, PctYes: 50, PctNo: 50}, NewTally(1, 1))
	assert.Equal(t, Tally{Yes: 5, No: 0, Total: 5, PctYes: 100, PctNo: 0}, NewTally(5, 0))
}

func TestPollDisplayLabel(t *testing.T) {
	assert.Equal(t, "Spring", Poll{ID: "p", Question: "Q?", CampaignKey: "k", CampaignLabel: "Spring"}.DisplayLabel())
	assert.Equal(t, "k", Poll{ID: "p", Question: "Q?", CampaignKey: "k"}.DisplayLabel())
	assert.Equal(t, "Q?", Poll{ID: "p", Question: "Q?"}.DisplayLabel())
	assert.Equal(t, "p", Poll{ID: "p"}.DisplayLabel())
}

func TestResolveLinkParams(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		query url.Values
		want  LinkParams
	}{
		{
			name:  "query aliases",
			query: url.Values{"qid": {"P1"}, "e": {"a@b.com"}, "f": {"JSON"}},
			want:  LinkParams{PollID: "P1", Email: "a@b.com", Format: "json"},
		},
		{
			name:  "body wins over query",
			body:  map[string]any{"question_id": "P2", "email": "x@y.com"},
			query: url.Values{"question_id": {"P1"}, "email": {"a@b.com"}},
			want:  LinkParams{PollID: "P2", Email: "x@y.com"},
		},
		{
			name:  "base64url email",
			query: url.Values{"pollId": {"P1"}, "email_b64url": {base64.RawURLEncoding.EncodeToString([]byte("u@v.com"))}},
			want:  LinkParams{PollID: "P1", Email: "u@v.com"},
		},
		{
			name: "base64 email preferred over raw",
			body: map[string]any{"q": "P1", "email_b64": base64.StdEncoding.EncodeToString([]byte("s@t.com")), "email": "raw@x.com"},
			want: LinkParams{PollID: "P1", Email: "s@t.com"},
		},
		{
			name:  "bad base64 yields empty email",
			query: url.Values{"q": {"P1"}, "email_b64url": {"***"}},
			want:  LinkParams{PollID: "P1"},
		},
		{
			name: "numeric poll id",
			body: map[string]any{"question_id": float64(42), "redirect_base": "http://localhost:5173"},
			want: LinkParams{PollID: "42", RedirectBase: "http://localhost:5173"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLinkParams(tt.body, tt.query))
		})
	}
}

func TestResolveVoteParams(t *testing.T) {
	got := ResolveVoteParams(map[string]any{"token_id": " tok ", "choice": float64(2), "questionId": "P1"})
	assert.Equal(t, VoteParams{Token: "tok", Choice: "2", PollID: "P1"}, got)

	assert.Equal(t, VoteParams{}, ResolveVoteParams(nil))
}
