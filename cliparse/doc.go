// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p, --port           Server port
	-d, --database-url   Database URL / DSN / base URL
	-t, --db-type        sqlite, postgres, mongo or postgrest
	    --env-file       Environment file to load first
	    --poll-secret    Vote token signing secret
	    --admin-key      Admin API key
	    --link-ttl       Vote link validity (default 168h)
	    --redirect-base  Allowed vote page base (repeatable)

# Environment Variables

Flags fall back to environment variables:

	PORT                       → -p
	DATABASE_URL, SUPABASE_URL → -d
	DATABASE_TYPE              → -t
	MICRO_POLL_SECRET          → --poll-secret
	VT_ADMIN_KEY, ADMIN_DASHBOARD_KEY, ADMIN_KEY → --admin-key
	LINK_TTL                   → --link-ttl
	REDIRECT_BASES             → --redirect-base (comma separated)

Environment only:

	MONGO_DATABASE             Mongo database name (default micropoll)
	SUPABASE_SERVICE_ROLE_KEY  PostgREST service key
	API_ALLOWED_ORIGINS        CORS origins (default: redirect bases)
	REDIS_URL                  Shared /link rate limit counters (in-memory when unset)
	LINK_RATE_LIMIT            Requests per window per client (default 30, 0 disables)
	RATE_WINDOW                Rate limit window (default 1m)
	RATE_LIMIT_SALT            Client IP hashing salt (default: derived from MICRO_POLL_SECRET)
	STORE_VOTER_EMAIL          Keep raw email next to the voter hash (default true)

CLI flags take precedence over environment variables. A .env file in the
working directory is loaded when present; it never overrides variables that
are already set.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - MICRO_POLL_SECRET must be provided
  - VT_ADMIN_KEY (or an alias) must be provided
  - SUPABASE_SERVICE_ROLE_KEY must be provided for postgrest
*/
package cliparse
