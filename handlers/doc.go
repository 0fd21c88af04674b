// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the micropoll API.

# Handler Types

Each handler is a struct holding the stores and services it needs:

  - LinkHandler: issues signed vote links
  - VoteHandler: records votes through voting.Recorder
  - PollHandler: public poll read for the vote page
  - AdminHandler: poll management and results

Handlers are created via constructor functions:

	linkHandler := handlers.NewLinkHandler(store, issuer, cfg)
	voteHandler := handlers.NewVoteHandler(recorder)

# Links

	GET  /link?question_id=P1&email=a@b.com             → 302 to {base}/poll/P1?token=...
	GET  /link?question_id=P1&email=a@b.com&format=json → {ok, token, poll_id, exp, expires_at, url}
	POST /link {"questionId": "P1", "email_b64url": "..."}

The poll must exist and be active. redirect_base must be one of the
configured bases.

# Votes

	POST /vote {"token": "...", "choice": "1"}

Responses:

	200 {"accepted": true}
	200 {"accepted": false, "reason": "already_voted"}
	400 invalid_choice, poll_mismatch
	401 invalid_token, malformed_payload, token_expired ("link invalid or expired")
	404 invalid_poll
	500 storage_error

Malformed and forged tokens produce identical responses.

# Admin

Admin routes are wrapped with middleware.RequireAdminKey by the router.
Results return at most 500 rows, newest first, with stats over all votes.
*/
package handlers
