// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting issues vote links and records votes.

# Issuing

An Issuer signs a token binding a normalized email to a poll and an expiry:

	issuer := voting.NewIssuer(secret, cfg.LinkTTL, clock.Real())
	link, err := issuer.IssueLink("P1", "voter@example.com", -1)
	url := voting.VoteURL(base, link.PollID, link.Token)

Issuing keeps no state. Every call returns a new token and all of them stay
valid until they expire.

# Recording

A Recorder checks, in order: choice, token signature, expiry, poll match and
poll availability. It then attempts exactly one insert. The store's unique
(poll id, voter hash) constraint decides whether the vote is new:

	out, err := recorder.RecordVote(ctx, voting.Request{Token: tok, Choice: "1"})
	// out.Accepted == false, out.Reason == "already_voted" on a repeat

A repeat vote is not an error. Any other store failure is wrapped in
ErrStorage.

# Errors

Code maps an error onto its wire code:

	malformed_token, bad_signature, malformed_payload, token_expired,
	poll_mismatch, invalid_choice, invalid_recipient, invalid_poll,
	storage_error

IsInvalidLink groups the errors a voter should only see as "link invalid or
expired".
*/
package voting
