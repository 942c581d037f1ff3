// Package store provides configuration options shared by all backends.
package store

import "strings"

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string: a PostgreSQL URL/DSN or a
	// SQLite file path.
	DSN string
	// FilePath is the directory used by the JSON-file backend.
	FilePath string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithFilePath configures the directory for the JSON-file backend.
func WithFilePath(dir string) Option {
	return func(o *Opts) { o.FilePath = dir }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite" based on its
// shape. PostgreSQL DSNs use a URL scheme or key=value form; everything else
// is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
