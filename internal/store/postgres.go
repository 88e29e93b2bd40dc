// Package store provides archive storage backends for trendpilot.
//
// This file implements the PostgreSQL-backed archive for errors and posts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mbarki/trendpilot/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL archive with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running PostgreSQL migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RecordError(rec models.ErrorRecord) error {
	ctxJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("failed to encode error context: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO error_log (error_type, message, context, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ErrorType, rec.Message, string(ctxJSON), rec.Time)
	if err != nil {
		slog.Error("PostgresStore RecordError failed", "error", err)
		return fmt.Errorf("failed to insert error record: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentErrors(n int) ([]models.ErrorRecord, error) {
	rows, err := s.db.Query(`SELECT error_type, message, context, created_at FROM error_log ORDER BY id DESC LIMIT $1`, n)
	if err != nil {
		slog.Error("PostgresStore RecentErrors query failed", "error", err)
		return nil, fmt.Errorf("failed to query error records: %w", err)
	}
	defer rows.Close()
	return scanErrorRows(rows)
}

func (s *PostgresStore) RecordPost(rec models.PostRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO published_posts (id, chat_id, post_id, title, source, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.ChatID, rec.PostID, rec.Title, rec.SourceProvider, rec.Time)
	if err != nil {
		slog.Error("PostgresStore RecordPost failed", "error", err, "post_id", rec.PostID)
		return fmt.Errorf("failed to insert post record: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentPosts(n int) ([]models.PostRecord, error) {
	rows, err := s.db.Query(`SELECT id, chat_id, post_id, title, source, created_at FROM published_posts ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		slog.Error("PostgresStore RecentPosts query failed", "error", err)
		return nil, fmt.Errorf("failed to query post records: %w", err)
	}
	defer rows.Close()
	return scanPostRows(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
