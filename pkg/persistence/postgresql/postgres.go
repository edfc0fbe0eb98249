// Package postgresql provides PostgreSQL persistence for workflows.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/blitz/pkg/persistence"
	"github.com/dukex/blitz/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

const (
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
)

// Persistence stores workflows in PostgreSQL. The workflow operations come from the embedded
// repository.
type Persistence struct {
	*WorkflowRepository

	db *sql.DB
}

var _ persistence.Persistence = (*Persistence)(nil)

// Option tunes the connection pool.
type Option func(*sql.DB)

func WithMaxOpenConns(n int) Option {
	return func(db *sql.DB) {
		db.SetMaxOpenConns(n)
		db.SetMaxIdleConns(n)
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sql.DB) {
		db.SetConnMaxLifetime(d)
	}
}

// NewPersistence connects to databaseURL and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, opts ...Option) (*Persistence, error) {
	db, err := open(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}

	migrator := sqlbase.NewMigrator(logger, db, migrations(), sqlbase.WithLock(migrationLock))
	if err := migrator.Up(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		WorkflowRepository: NewWorkflowRepository(db, logger.With("module", "postgresql")),
		db:                 db,
	}, nil
}

func open(ctx context.Context, databaseURL string, opts []Option) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL url: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxOpenConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	for _, opt := range opts {
		opt(db)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("PostgreSQL is unreachable: %w", err)
	}

	return db, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("PostgreSQL is unreachable: %w", err)
	}

	return nil
}
