package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/paperlens-ai/paperlens/internal/config"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Open connects to the configured database and runs schema migration.
// Both drivers accept $N placeholders, so repositories share one query set.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_busy_timeout=5000",
			cfg.SQLite.Path, cfg.SQLite.JournalMode)
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(cfg.SQLite.MaxOpenConns)

	case "postgres":
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if it does not exist. The DDL is restricted to
// the subset both SQLite and Postgres accept.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			session_id TEXT NOT NULL DEFAULT '',
			session_expires_at TIMESTAMP,
			last_login_ip TEXT NOT NULL DEFAULT '',
			login_attempts INTEGER NOT NULL DEFAULT 0,
			locked_until TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paper_analyses (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			original_filename TEXT NOT NULL,
			stored_path TEXT NOT NULL DEFAULT '',
			file_size_bytes BIGINT NOT NULL DEFAULT 0,
			sha256 TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			motivation TEXT NOT NULL DEFAULT '',
			contribution TEXT NOT NULL DEFAULT '',
			what_does_paper_do TEXT NOT NULL DEFAULT '',
			how_does_paper_do TEXT NOT NULL DEFAULT '',
			limitations_challenges TEXT NOT NULL DEFAULT '',
			future_work TEXT NOT NULL DEFAULT '',
			conclusion TEXT NOT NULL DEFAULT '',
			analysis_data TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_analyses_user_created
			ON paper_analyses (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_users_session ON users (session_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
