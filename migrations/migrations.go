// Package migrations embeds SQL migration files and provides functions to apply them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Supported goose dialects.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// Commands accepted by Command.
var Commands = []string{"up", "up-one", "down", "status", "version", "reset"}

func dir(dialect string) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

func setup(dialect string) (string, error) {
	d, err := dir(dialect)
	if err != nil {
		return "", err
	}
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("set dialect: %w", err)
	}
	return d, nil
}

// Run applies all pending migrations to the given database.
func Run(db *sql.DB, dialect string) error {
	d, err := setup(dialect)
	if err != nil {
		return err
	}
	if err := goose.Up(db, d); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Command runs a single goose command by name.
func Command(db *sql.DB, dialect, cmd string) error {
	d, err := setup(dialect)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		err = goose.Up(db, d)
	case "up-one":
		err = goose.UpByOne(db, d)
	case "down":
		err = goose.Down(db, d)
	case "status":
		err = goose.Status(db, d)
	case "version":
		err = goose.Version(db, d)
	case "reset":
		err = goose.Reset(db, d)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}
