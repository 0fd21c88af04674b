// Command migrator applies the versioned schema to a sqlite or postgres
// database through golang-migrate.
//
//	migrator -t postgres -d postgres://... --action up
//	migrator --action down --steps 1
//	migrator --action version
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/vocaltworld/micropoll/cliparse"
	"github.com/vocaltworld/micropoll/db"
	"github.com/vocaltworld/micropoll/store/sqlstore"
)

func main() {
	var (
		action  string
		steps   int
		dbType  string
		dbURL   string
		envFile string
	)

	fs := pflag.NewFlagSet("migrator", pflag.ExitOnError)
	fs.StringVar(&action, "action", db.ActionUp, "Migration: up, down, force, version")
	fs.IntVar(&steps, "steps", 0, "Steps for up/down; version for force")
	fs.StringVarP(&dbType, "db-type", "t", "", "Database type (sqlite or postgres)")
	fs.StringVarP(&dbURL, "database-url", "d", "", "Database URL")
	fs.StringVar(&envFile, "env-file", "", "Load environment from this file")
	fs.Parse(os.Args[1:])

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fatal("failed to load env file", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		godotenv.Load(".env")
	}

	if dbType == "" {
		dbType = strings.TrimSpace(os.Getenv("DATABASE_TYPE"))
	}
	if dbType == "" {
		dbType = cliparse.DBSQLite
	}
	if dbURL == "" {
		dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dbURL == "" {
		fatal("database URL required", fmt.Errorf("use -d or DATABASE_URL env"))
	}

	s, err := sqlstore.Open(dbType, dbURL)
	if err != nil {
		fatal("failed to open database", err)
	}
	defer s.Close()

	m, err := db.NewMigrator(s.DB(), dbType)
	if err != nil {
		fatal("failed to create migrator", err)
	}

	if action == db.ActionVersion {
		v, dirty, err := m.Version()
		if err != nil {
			fatal("failed to read version", err)
		}
		fmt.Printf("Version: %d, Dirty: %v\n", v, dirty)
		return
	}

	if err := m.Run(action, steps); err != nil {
		fatal("migration failed", err)
	}
	slog.Info("Migration complete", "action", action, "steps", steps, "type", dbType)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
