// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles schema creation and migrations for the SQL backends.

# Schema Creation

CreateSchema applies the embedded up migrations directly:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same DDL runs unchanged on sqlite and postgres.

# Migrations

Deployments that track schema versions use golang-migrate over the same
embedded files:

	m, err := db.NewMigrator(conn, "postgres")
	err = m.Run(db.ActionUp, 0)

# Tables

  - micro_questions: poll question, option labels, active flag
  - micro_poll_responses: one row per vote

# Relationships

	micro_questions 1──* micro_poll_responses

# Constraints

  - micro_poll_responses.(question_id, voter_hash) is UNIQUE. This is the
    only double-vote guard; the vote recorder relies on it.
  - micro_poll_responses.choice is '1' or '2'.
*/
package db
