// Package audit records the history of flight searches: every create and poll
// against the search service, with its outcome.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Close releases resources.
	Close() error
}

// Querier reads back recorded events. The PostgreSQL store implements it.
type Querier interface {
	// Query retrieves audit events matching the filter.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int, error)

	// Stats aggregates events matching the filter by status.
	Stats(ctx context.Context, filter QueryFilter) (*Stats, error)
}

// Event represents one create or poll handled by the search service.
type Event struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	DurationMS     int64          `json:"duration_ms"`
	SessionToken   string         `json:"session_token"`
	Operation      Operation      `json:"operation"`
	Provider       string         `json:"provider,omitempty"`
	Origin         string         `json:"origin"`
	Destination    string         `json:"destination"`
	Status         string         `json:"status"`
	Action         string         `json:"action,omitempty"`
	Itineraries    int            `json:"itineraries"`
	UpstreamCalled bool           `json:"upstream_called"`
	Success        bool           `json:"success"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Source         string         `json:"source,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime    *time.Time
	EndTime      *time.Time
	SessionToken string
	Operation    Operation
	Origin       string
	Destination  string
	Status       string
	Success      *bool
	Limit        int
	Offset       int
}

// Stats holds aggregate counts for recorded events.
type Stats struct {
	Total         int            `json:"total"`
	Failures      int            `json:"failures"`
	Sessions      int            `json:"sessions"`
	UpstreamCalls int            `json:"upstream_calls"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	ByStatus      map[string]int `json:"by_status"`
}

// Config configures audit logging.
type Config struct {
	Enabled       bool
	RetentionDays int
}

// SlogLogger writes audit events to the structured log. It is used when no
// database is configured.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a Logger backed by slog. A nil logger uses slog.Default.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Log records an audit event.
func (l *SlogLogger) Log(ctx context.Context, e Event) error {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "search audit",
		slog.String("id", e.ID),
		slog.String("session_token", e.SessionToken),
		slog.String("operation", string(e.Operation)),
		slog.String("provider", e.Provider),
		slog.String("origin", e.Origin),
		slog.String("destination", e.Destination),
		slog.String("status", e.Status),
		slog.String("action", e.Action),
		slog.Int("itineraries", e.Itineraries),
		slog.Bool("upstream_called", e.UpstreamCalled),
		slog.Bool("success", e.Success),
		slog.Int64("duration_ms", e.DurationMS),
		slog.String("error", e.ErrorMessage),
	)
	return nil
}

// Close releases resources.
func (*SlogLogger) Close() error { return nil }

// NoopLogger discards events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(context.Context, Event) error { return nil }

// Close releases resources.
func (NoopLogger) Close() error { return nil }

// Verify interface compliance.
var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = NoopLogger{}
)
