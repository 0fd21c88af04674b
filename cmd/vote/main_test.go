package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/testutil"
	"github.com/vocaltworld/micropoll/votepage"
	"github.com/vocaltworld/micropoll/voting"
)

func newLocal(t *testing.T) (*votepage.Local, store.Store) {
	t.Helper()
	clk := clock.Fake(time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC))
	s := testutil.SetupTestStore(t)
	testutil.CreateTestPoll(t, s, "P1", true)
	secret := []byte(testutil.TestPollSecret)
	return votepage.NewLocal(s, voting.NewIssuer(secret, time.Hour, clk), voting.NewRecorder(secret, s, s, clk, false)), s
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		params  votepage.Params
		input   string
		confirm string
		yes, no int
	}{
		{"pick and confirm", votepage.Params{PollID: "P1", Email: "a@b.com"}, "2\ny\n", "No", 0, 1},
		{"retry bad answer", votepage.Params{PollID: "P1", Email: "a@b.com"}, "maybe\n1\nyes\n", "Yes", 1, 0},
		{"cancel then change", votepage.Params{PollID: "P1", Email: "a@b.com"}, "1\nn\n2\ny\n", "No", 0, 1},
		{"prefilled", votepage.Params{PollID: "P1", Email: "a@b.com", Prefill: "1"}, "y\n", "Yes", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, s := newLocal(t)
			var out bytes.Buffer

			err := run(context.Background(), strings.NewReader(tt.input), &out, votepage.New(local), tt.params)
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Would you try a vocal coaching app?")
			assert.Contains(t, out.String(), "your vote was recorded")
			assert.Contains(t, out.String(), fmt.Sprintf("Vote %q?", tt.confirm))

			tally, err := s.CountVotes(context.Background(), "P1")
			require.NoError(t, err)
			assert.Equal(t, tt.yes, tally.Yes)
			assert.Equal(t, tt.no, tally.No)
		})
	}
}

func TestRunAborted(t *testing.T) {
	local, s := newLocal(t)
	var out bytes.Buffer

	err := run(context.Background(), strings.NewReader("1\n"), &out, votepage.New(local), votepage.Params{PollID: "P1", Email: "a@b.com"})
	assert.ErrorIs(t, err, errAborted)

	tally, err := s.CountVotes(context.Background(), "P1")
	require.NoError(t, err)
	assert.Zero(t, tally.Total)
}

func TestRunBadLink(t *testing.T) {
	local, _ := newLocal(t)
	var out bytes.Buffer

	err := run(context.Background(), strings.NewReader("1\ny\n"), &out, votepage.New(local), votepage.Params{PollID: "P1", Token: "forged.token"})
	require.Error(t, err)
	assert.Contains(t, out.String(), votepage.MsgInvalidLink)
}
