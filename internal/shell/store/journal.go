// Package store persists a best-effort deployment history journal. The
// orchestration control flow never reads it; it exists so an operator can ask
// "what rolled out here, and when" after the fact.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrConnectionFailed: the journal database could not be opened.
	ErrConnectionFailed = errors.New("journal database connection failed")

	// ErrMigrationFailed: the journal schema could not be applied.
	ErrMigrationFailed = errors.New("journal migration failed")
)

// =============================================================================
// Journal
// =============================================================================

// Record is one finished orchestration run.
type Record struct {
	ID         string    `db:"id"`
	ImageTag   string    `db:"image_tag"`
	ImageRef   string    `db:"image_ref"`
	Result     string    `db:"result"`
	Reason     string    `db:"reason"`
	Attempts   int       `db:"attempts"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

// Journal appends deployment records to a local SQLite database.
type Journal struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the journal database and applies the
// schema.
func Open(dsn string) (*Journal, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", ErrConnectionFailed)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", ErrConnectionFailed)
	}
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("%v: %w", err, ErrMigrationFailed)
	}
	return &Journal{db: db}, nil
}

// runMigrations applies the embedded schema migrations.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records one finished run.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO deployments (id, image_tag, image_ref, result, reason, attempts, started_at, finished_at)
		VALUES (:id, :image_tag, :image_ref, :result, :reason, :attempts, :started_at, :finished_at)`,
		rec)
	if err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []Record
	err := j.db.SelectContext(ctx, &records, `
		SELECT id, image_tag, image_ref, result, reason, attempts, started_at, finished_at
		FROM deployments
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}
	return records, nil
}
