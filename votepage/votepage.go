// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votepage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/voting"
)

type State int

const (
	Loading State = iota
	Ready
	AwaitingConfirm
	Submitting
	Submitted
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case AwaitingConfirm:
		return "awaiting_confirm"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Messages shown to the voter
const (
	MsgPollUnavailable = "poll not available"
	MsgInvalidLink     = "link invalid or expired"
	MsgMissingToken    = "link invalid: missing token or email"
	MsgSubmitFailed    = "vote could not be recorded, try again later"
	MsgSubmitted       = "vote recorded"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidVoteURL    = errors.New("invalid vote url")
)

// Backend is what the controller needs from the service. client.Client
// talks to it over HTTP; Local calls the voting package in process.
type Backend interface {
	GetPoll(ctx context.Context, id string) (models.PublicPoll, error)
	RequestLink(ctx context.Context, pollID, email string) (string, error)
	Vote(ctx context.Context, token, choice, pollID string) (models.VoteResponse, error)
}

// Params are the inputs carried by a vote page address
type Params struct {
	PollID  string
	Token   string
	Email   string
	Prefill models.Choice
}

// ParseVoteURL reads /poll/{id}?token=|t=&e=&c= as produced by
// voting.VoteURL or by a campaign template.
func ParseVoteURL(raw string) (Params, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Params{}, fmt.Errorf("%w: %w", ErrInvalidVoteURL, err)
	}

	_, rest, ok := strings.Cut(u.Path, "/poll/")
	id := strings.TrimSpace(strings.Trim(rest, "/"))
	if !ok || id == "" || strings.Contains(id, "/") {
		return Params{}, fmt.Errorf("%w: expected /poll/{id}", ErrInvalidVoteURL)
	}

	q := u.Query()
	p := Params{PollID: id}

	p.Token = strings.TrimSpace(q.Get("token"))
	if p.Token == "" {
		p.Token = strings.TrimSpace(q.Get("t"))
	}

	p.Email = emailParam(q.Get("e"))

	switch c := strings.TrimSpace(q.Get("c")); c {
	case string(models.ChoiceA), string(models.ChoiceB):
		p.Prefill = models.Choice(c)
	}

	return p, nil
}

// emailParam cleans an address passed through an email campaign. Mail
// tools sometimes encode it twice or leave the merge tag unrendered.
func emailParam(raw string) string {
	s := strings.TrimSpace(raw)
	if voting.HasTemplateMarkers(s) {
		return ""
	}

	for range 2 {
		decoded, err := url.PathUnescape(s)
		if err != nil || decoded == s {
			break
		}
		s = decoded
	}

	s = auth.NormalizeEmail(s)
	if s == "" || !strings.Contains(s, "@") || len(s) > auth.MaxEmailLength || voting.HasTemplateMarkers(s) {
		return ""
	}
	return s
}

// View is a snapshot of the page for rendering
type View struct {
	State   State
	Poll    models.PublicPoll
	Choice  models.Choice
	Message string
}

// Controller drives one voter's session on the vote page. Confirm is the
// only operation that submits, and at most one submission is in flight.
type Controller struct {
	backend Backend

	mu      sync.Mutex
	state   State
	poll    models.PublicPoll
	token   string
	choice  models.Choice
	message string
}

func New(backend Backend) *Controller {
	return &Controller{backend: backend, state: Loading}
}

// Load resolves the poll and a token. It may be retried after an error.
func (c *Controller) Load(ctx context.Context, p Params) error {
	c.mu.Lock()
	if c.state != Loading && c.state != Error {
		c.mu.Unlock()
		return fmt.Errorf("%w: load from %s", ErrInvalidTransition, c.state)
	}
	c.state = Loading
	c.message = ""
	c.mu.Unlock()

	if p.PollID == "" {
		return c.fail(MsgInvalidLink, fmt.Errorf("%w: missing poll id", ErrInvalidVoteURL))
	}

	poll, err := c.backend.GetPoll(ctx, p.PollID)
	if err != nil {
		return c.fail(MsgPollUnavailable, err)
	}
	if !poll.Active {
		return c.fail(MsgPollUnavailable, fmt.Errorf("%w: poll %s is not active", voting.ErrInvalidPoll, p.PollID))
	}

	token := p.Token
	if token == "" {
		if p.Email == "" {
			return c.fail(MsgMissingToken, fmt.Errorf("%w: no token and no email", ErrInvalidVoteURL))
		}
		token, err = c.backend.RequestLink(ctx, p.PollID, p.Email)
		if err != nil {
			return c.fail(messageFor(err), err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.poll = poll
	c.token = token
	c.state = Ready
	if p.Prefill != "" {
		c.choice = p.Prefill
		c.state = AwaitingConfirm
	}
	return nil
}

// Select picks an option and asks for confirmation. Nothing is submitted.
func (c *Controller) Select(choice models.Choice) error {
	if choice != models.ChoiceA && choice != models.ChoiceB {
		return fmt.Errorf("%w: %q", voting.ErrInvalidChoice, choice)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Ready && c.state != AwaitingConfirm {
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, c.state)
	}
	c.choice = choice
	c.state = AwaitingConfirm
	return nil
}

// Cancel backs out of the confirmation step
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != AwaitingConfirm {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, c.state)
	}
	c.choice = ""
	c.state = Ready
	return nil
}

// Confirm submits the selected choice. A second Confirm while the first is
// in flight, or after it finished, returns ErrInvalidTransition.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.state != AwaitingConfirm {
		c.mu.Unlock()
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, c.state)
	}
	c.state = Submitting
	token, choice, pollID := c.token, c.choice, c.poll.ID
	c.mu.Unlock()

	resp, err := c.backend.Vote(ctx, token, string(choice), pollID)
	if err != nil {
		return c.fail(messageFor(err), err)
	}

	// A repeat vote looks exactly like a first one to the voter
	if !resp.Accepted && resp.Reason != models.ReasonAlreadyVoted {
		return c.fail(MsgSubmitFailed, fmt.Errorf("vote not accepted: %q", resp.Reason))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Submitted
	c.message = MsgSubmitted
	return nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{State: c.state, Poll: c.poll, Choice: c.choice, Message: c.message}
}

func (c *Controller) fail(msg string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Error
	c.message = msg
	return err
}

func messageFor(err error) string {
	switch {
	case voting.IsInvalidLink(err),
		errors.Is(err, voting.ErrPollMismatch),
		errors.Is(err, voting.ErrInvalidRecipient):
		return MsgInvalidLink
	case errors.Is(err, voting.ErrInvalidPoll):
		return MsgPollUnavailable
	}
	return MsgSubmitFailed
}
