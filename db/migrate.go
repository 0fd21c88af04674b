// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migration actions
const (
	ActionUp      = "up"
	ActionDown    = "down"
	ActionForce   = "force"
	ActionVersion = "version"
)

// Migrator runs the embedded migrations through golang-migrate
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator wraps an open connection. dbType is "sqlite" or "postgres".
func NewMigrator(conn *sql.DB, dbType string) (*Migrator, error) {
	src, err := iofs.New(Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	var driver database.Driver
	switch dbType {
	case "postgres":
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	case "sqlite":
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("migrations not supported for database type %q", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init %s migration driver: %w", dbType, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbType, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to init migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Run performs action. steps limits up/down when positive; for force it is
// the version to set.
func (mg *Migrator) Run(action string, steps int) error {
	var err error
	switch action {
	case ActionUp:
		if steps > 0 {
			err = mg.m.Steps(steps)
		} else {
			err = mg.m.Up()
		}
	case ActionDown:
		if steps > 0 {
			err = mg.m.Steps(-steps)
		} else {
			err = mg.m.Down()
		}
	case ActionForce:
		err = mg.m.Force(steps)
	default:
		return fmt.Errorf("unknown migration action %q", action)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", action, err)
	}
	return nil
}

// Version reports the applied version and dirty flag
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
