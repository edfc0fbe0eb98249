// Package sqlbase holds helpers shared by the SQL persistence backends.
package sqlbase

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Migration is one forward-only schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

const historyTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`

// Migrator applies migrations in version order, each in its own transaction, and records
// them in schema_migrations.
type Migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
	lockSQL    string
}

type MigratorOption func(*Migrator)

// WithLock runs statement first in every migration transaction. Backends use it to serialise
// concurrent migrators, e.g. with a transaction scoped advisory lock.
func WithLock(statement string) MigratorOption {
	return func(m *Migrator) {
		m.lockSQL = statement
	}
}

func NewMigrator(logger *slog.Logger, db *sql.DB, migrations []Migration, opts ...MigratorOption) *Migrator {
	sorted := slices.SortedFunc(slices.Values(migrations), func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})

	m := &Migrator{db: db, logger: logger.With("module", "migrator"), migrations: sorted}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Latest is the highest known version.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return m.migrations[len(m.migrations)-1].Version
}

// Version returns the highest applied version, 0 on a fresh database.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	return currentVersion(ctx, m.db)
}

// Up creates the history table when needed and applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureHistory(ctx); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, migration := range m.migrations {
		applied, err := m.apply(ctx, migration)
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if applied {
			m.logger.InfoContext(ctx, "Applied migration", "version", migration.Version, "name", migration.Name)
		}
	}

	m.logger.InfoContext(ctx, "Schema is up to date", "version", m.Latest())

	return nil
}

func (m *Migrator) ensureHistory(ctx context.Context) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := m.lock(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if _, err := tx.ExecContext(ctx, historyTable); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	return tx.Commit()
}

func (m *Migrator) lock(ctx context.Context, tx *sql.Tx) error {
	if m.lockSQL == "" {
		return nil
	}

	if _, err := tx.ExecContext(ctx, m.lockSQL); err != nil {
		return fmt.Errorf("lock: %w", err)
	}

	return nil
}

// apply runs migration unless another migrator got there first.
func (m *Migrator) apply(ctx context.Context, migration Migration) (applied bool, err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	defer func() {
		if !applied {
			err = errors.Join(err, ignoreDone(tx.Rollback()))
		}
	}()

	if err := m.lock(ctx, tx); err != nil {
		return false, err
	}

	version, err := currentVersion(ctx, tx)
	if err != nil || version >= migration.Version {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", migration.Version, migration.Name); err != nil {
		return false, fmt.Errorf("record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	return true, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentVersion(ctx context.Context, q querier) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	return version, nil
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}
