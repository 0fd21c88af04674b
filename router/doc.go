// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the micropoll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(store, cfg, limiter, clock.Real())

# Endpoints

Health:

	GET /health

Links (public, rate limited per client when a limiter is configured):

	GET  /link  - Redirect to the vote page, or JSON with format=json
	POST /link  - JSON token for the vote page

Voting (public, token authenticated):

	POST /vote       - Record a vote
	GET  /polls/{id} - Poll question and labels

Admin (requires X-Admin-Key):

	GET  /admin/polls              - List polls, newest first
	POST /admin/polls              - Create poll
	POST /admin/polls/{id}/active  - Open or close a poll
	GET  /admin/polls/{id}/results - Latest rows and yes/no stats

# Handler Initialization

The router builds one voting.Issuer and one voting.Recorder from the config
and shares them between handlers. Every route is wrapped with
middleware.WithLogging.
*/
package router
