// Package store provides archive storage backends for trendpilot.
//
// This file implements the SQLite-backed archive for errors and posts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/google/uuid"
	"github.com/mbarki/trendpilot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite archive with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordError(rec models.ErrorRecord) error {
	ctxJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("failed to encode error context: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO error_log (error_type, message, context, created_at) VALUES (?, ?, ?, ?)`,
		rec.ErrorType, rec.Message, string(ctxJSON), rec.Time)
	if err != nil {
		slog.Error("SQLiteStore RecordError failed", "error", err)
		return fmt.Errorf("failed to insert error record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentErrors(n int) ([]models.ErrorRecord, error) {
	rows, err := s.db.Query(`SELECT error_type, message, context, created_at FROM error_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		slog.Error("SQLiteStore RecentErrors query failed", "error", err)
		return nil, fmt.Errorf("failed to query error records: %w", err)
	}
	defer rows.Close()
	return scanErrorRows(rows)
}

func (s *SQLiteStore) RecordPost(rec models.PostRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO published_posts (id, chat_id, post_id, title, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ChatID, rec.PostID, rec.Title, rec.SourceProvider, rec.Time)
	if err != nil {
		slog.Error("SQLiteStore RecordPost failed", "error", err, "post_id", rec.PostID)
		return fmt.Errorf("failed to insert post record: %w", err)
	}
	slog.Debug("SQLiteStore RecordPost succeeded", "post_id", rec.PostID)
	return nil
}

func (s *SQLiteStore) RecentPosts(n int) ([]models.PostRecord, error) {
	rows, err := s.db.Query(`SELECT id, chat_id, post_id, title, source, created_at FROM published_posts ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		slog.Error("SQLiteStore RecentPosts query failed", "error", err)
		return nil, fmt.Errorf("failed to query post records: %w", err)
	}
	defer rows.Close()
	return scanPostRows(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanErrorRows converts query rows into error records, decoding context JSON.
func scanErrorRows(rows *sql.Rows) ([]models.ErrorRecord, error) {
	var records []models.ErrorRecord
	for rows.Next() {
		var rec models.ErrorRecord
		var ctxJSON sql.NullString
		if err := rows.Scan(&rec.ErrorType, &rec.Message, &ctxJSON, &rec.Time); err != nil {
			return nil, fmt.Errorf("failed to scan error row: %w", err)
		}
		if ctxJSON.Valid && ctxJSON.String != "" && ctxJSON.String != "null" {
			if err := json.Unmarshal([]byte(ctxJSON.String), &rec.Context); err != nil {
				slog.Warn("Skipping undecodable error context", "error", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate error rows: %w", err)
	}
	return records, nil
}

func scanPostRows(rows *sql.Rows) ([]models.PostRecord, error) {
	var records []models.PostRecord
	for rows.Next() {
		var rec models.PostRecord
		if err := rows.Scan(&rec.ID, &rec.ChatID, &rec.PostID, &rec.Title, &rec.SourceProvider, &rec.Time); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}
	return records, nil
}
