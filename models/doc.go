// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - Poll: a binary question with two labels and an active flag
  - VoteRecord: one stored vote, unique per (poll, voter hash)
  - Tally: yes/no counts with rounded percentages
  - Choice: canonical vote encoding, "1" (option A) or "2" (option B)

ParseChoice accepts the spellings sent by older pages:

	"1", "yes", "a", "option_a" → ChoiceA
	"2", "no", "b", "option_b"  → ChoiceB

# Input Aliases

Link and vote inputs arrive under several names from email templates and
campaign tools. ResolveLinkParams and ResolveVoteParams map them once at the
HTTP boundary:

	poll id:  question_id, questionId, poll_id, pollId, q, qid
	email:    email, e (raw); email_b64; email_b64url
	token:    token, token_id

# Response Types

  - LinkResponse: token, poll_id, exp (Unix ms), expires_at
  - VoteResponse: accepted, reason ("already_voted")
  - PollListResponse, PollResultsResponse: admin views
  - ErrorResponse: error, code, message
*/
package models
