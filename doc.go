// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the micropoll API server.

micropoll runs one-question yes/no polls reached from emailed links. Each
link carries a signed token that binds the recipient's address to a poll and
an expiry, so the vote endpoint needs no login and each recipient can vote
once per poll.

# Starting the Server

	MICRO_POLL_SECRET=... VT_ADMIN_KEY=... DATABASE_URL=file:micropoll.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --poll-secret ... --admin-key ...

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite DSN, postgres URL, mongo URI or PostgREST URL
  - MICRO_POLL_SECRET (--poll-secret): token signing secret
  - VT_ADMIN_KEY (--admin-key): admin dashboard key

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres, mongo or postgrest (default: sqlite)
  - LINK_TTL (--link-ttl): link validity (default: 168h)
  - REDIRECT_BASES (--redirect-base): allowed vote page origins
  - REDIS_URL: shared rate limit counters (in-memory when unset)

See package cliparse for the full list.

# Architecture

  - auth: token signing, voter ids, admin key checks
  - voting: link issuance and vote recording
  - store: storage contracts with sqlstore, mongostore and postgrest backends
  - handlers, router, middleware: HTTP surface
  - ratelimit: /link request limits
  - votepage, client: vote page flow for terminal and tests
  - db: embedded schema migrations
  - cliparse: configuration parsing

Companion tools live under cmd/: migrator, votelink and vote.
*/
package main
