package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/ultramynd/notesync/migrations"
)

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// RunMigrations applies all pending migrations for the given driver
// from the embedded SQL files.
func RunMigrations(db *sql.DB, driverName string) error {
	d, err := dialectFor(driverName)
	if err != nil {
		return err
	}
	return runMigrations(db, d)
}

func runMigrations(db *sql.DB, d dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	// Disable goose's default logging to avoid stdout noise
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect(d.gooseDialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, d.migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
