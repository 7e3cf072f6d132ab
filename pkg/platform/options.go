package platform

import (
	"database/sql"
	"time"

	"github.com/txn2/trip-planner/pkg/audit"
	"github.com/txn2/trip-planner/pkg/upstream"
)

// Options configures the platform.
type Options struct {
	// Config is the service configuration.
	Config *Config

	// Version is reported by the MCP server.
	Version string

	// DB connection (optional, will be opened from config if not provided).
	DB *sql.DB

	// Provider (optional, will be created from config if not provided).
	Provider upstream.Provider

	// AuditLogger (optional, will be created from config if not provided).
	AuditLogger audit.Logger

	// AuditQuerier backs the search history endpoints. Set automatically
	// when the audit log is stored in PostgreSQL.
	AuditQuerier audit.Querier

	// Now overrides the session clock.
	Now func() time.Time
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithVersion sets the reported build version.
func WithVersion(v string) Option {
	return func(o *Options) {
		o.Version = v
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithProvider sets the upstream provider.
func WithProvider(p upstream.Provider) Option {
	return func(o *Options) {
		o.Provider = p
	}
}

// WithAuditLogger sets the audit logger and, optionally, the querier used
// for search history.
func WithAuditLogger(l audit.Logger, q audit.Querier) Option {
	return func(o *Options) {
		o.AuditLogger = l
		o.AuditQuerier = q
	}
}

// WithClock sets the session clock.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}
