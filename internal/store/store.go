// Package store provides archive storage backends for trendpilot.
//
// The archive keeps recorded failures and published-post history. Session
// state is deliberately not stored here; sessions are volatile by design.
// Backends: in-memory, SQLite, and PostgreSQL.
package store

import (
	"strings"

	"github.com/mbarki/trendpilot/internal/models"
)

// Store defines the archive operations shared by all backends.
type Store interface {
	// RecordError appends a failure snapshot to the archive.
	RecordError(rec models.ErrorRecord) error

	// RecentErrors returns up to n of the newest recorded failures, newest first.
	RecentErrors(n int) ([]models.ErrorRecord, error)

	// RecordPost archives a successfully published post.
	RecordPost(rec models.PostRecord) error

	// RecentPosts returns up to n of the newest archived posts, newest first.
	RecentPosts(n int) ([]models.PostRecord, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" for PostgreSQL-style DSNs and "sqlite"
// for anything else (assumed to be a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
