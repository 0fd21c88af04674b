// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Migrations holds the versioned schema shared by sqlite and postgres
//
//go:embed migrations/*.sql
var Migrations embed.FS

// CreateSchema applies every up migration directly.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	files, err := fs.Glob(Migrations, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		stmts, err := Migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.Exec(string(stmts)); err != nil {
			return fmt.Errorf("failed to create schema (%s): %w", strings.TrimPrefix(name, "migrations/"), err)
		}
	}

	return nil
}
