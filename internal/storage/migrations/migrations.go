package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect selects both the goose dialect and the embedded migration directory.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) gooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

// setup points goose at the embedded directory for the dialect.
// goose keeps this in package globals, callers must not run migrations concurrently.
func setup(d Dialect) error {
	goose.SetBaseFS(files)
	if err := goose.SetDialect(d.gooseDialect()); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Up applies all pending migrations
func Up(db *sql.DB, d Dialect) error {
	if err := setup(d); err != nil {
		return err
	}
	if err := goose.Up(db, string(d)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back the latest migration
func Down(db *sql.DB, d Dialect) error {
	if err := setup(d); err != nil {
		return err
	}
	if err := goose.Down(db, string(d)); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// Status prints migration status through the goose logger
func Status(db *sql.DB, d Dialect) error {
	if err := setup(d); err != nil {
		return err
	}
	return goose.Status(db, string(d))
}

// Version returns the current schema version
func Version(db *sql.DB, d Dialect) (int64, error) {
	if err := setup(d); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}
