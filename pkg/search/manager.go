package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/txn2/trip-planner/pkg/audit"
	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/upstream"
)

const (
	// DefaultRetention is how long a session lives after creation.
	DefaultRetention = 30 * time.Minute

	// DefaultSweepInterval is how often expired sessions are reclaimed.
	DefaultSweepInterval = 5 * time.Minute

	slogKeyToken    = "session_token"
	slogKeyError    = "error"
	slogKeyProvider = "provider"
)

// Config configures a Manager.
type Config struct {
	// Provider performs the upstream calls. Required.
	Provider upstream.Provider

	// Audit receives one event per create and poll. Defaults to a no-op logger.
	Audit audit.Logger

	// Retention defaults to DefaultRetention.
	Retention time.Duration

	// SweepInterval defaults to DefaultSweepInterval.
	SweepInterval time.Duration

	// Now overrides the clock.
	Now func() time.Time
}

// Manager owns the session store and drives session lifecycles against the
// upstream provider. NewManager starts the expiry sweeper; Close stops it.
type Manager struct {
	provider upstream.Provider
	audit    audit.Logger
	store    *MemoryStore
	now      func() time.Time
	polls    singleflight.Group
}

// NewManager creates a manager and starts its sweeper.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, errors.New("search: provider is required")
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NoopLogger{}
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{
		provider: cfg.Provider,
		audit:    cfg.Audit,
		store:    NewMemoryStore(cfg.Retention, cfg.Now),
		now:      cfg.Now,
	}
	m.store.StartSweeper(cfg.SweepInterval)
	return m, nil
}

// Provider returns the name of the upstream provider.
func (m *Manager) Provider() string {
	return m.provider.Name()
}

// Create validates q, starts an upstream search and stores a new session.
//
// When the upstream call fails the session is recorded as complete with the
// provider's error text, and Create returns that snapshot together with the
// error so callers can both report the failure and stop polling.
func (m *Manager) Create(ctx context.Context, q flight.Query) (*Snapshot, error) {
	start := m.now()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingParameters, err)
	}

	now := m.now()
	sess := &Session{
		Token:        uuid.NewString(),
		Status:       StatusPending,
		CreatedAt:    now,
		LastPolledAt: now,
		Origin:       q.Origin(),
		Destination:  q.Destination(),
		Query:        q,
	}
	m.store.Put(sess)

	res, err := m.provider.Create(ctx, q)
	if err != nil {
		text := upstreamText(err)
		cur, ok := m.store.Update(sess.Token, func(s *Session) {
			s.Status = s.Status.advance(StatusComplete)
			s.Err = text
		})
		if !ok {
			return nil, ErrSessionNotFound
		}
		slog.Warn("search: upstream create failed",
			slogKeyToken, sess.Token, slogKeyProvider, m.provider.Name(), slogKeyError, err)

		snap := cur.snapshot(ActionReplace)
		m.record(ctx, audit.OperationCreate, &cur, snap, true, err, start)
		return snap, fmt.Errorf("creating upstream search: %w", err)
	}

	cur, ok := m.store.Update(sess.Token, func(s *Session) {
		s.ProviderSession = res.Session
		s.Results = res.Payload
		s.Synthetic = res.Synthetic
		if s.Results.IsComplete() {
			s.Status = s.Status.advance(StatusComplete)
		}
	})
	if !ok {
		return nil, ErrSessionNotFound
	}

	slog.Debug("search: session created",
		slogKeyToken, cur.Token, "origin", cur.Origin, "destination", cur.Destination, "status", cur.Status)

	snap := cur.snapshot(ActionReplace)
	m.record(ctx, audit.OperationCreate, &cur, snap, true, nil, start)
	return snap, nil
}

// Poll refreshes a session. Concurrent polls of one token share a single
// upstream round trip and receive the same snapshot.
func (m *Manager) Poll(ctx context.Context, token string) (*Snapshot, error) {
	v, err, _ := m.polls.Do(token, func() (any, error) {
		return m.poll(context.WithoutCancel(ctx), token)
	})
	if err != nil {
		return nil, err
	}
	snap, ok := v.(*Snapshot)
	if !ok {
		return nil, fmt.Errorf("unexpected poll result %T", v)
	}
	return snap, nil
}

func (m *Manager) poll(ctx context.Context, token string) (*Snapshot, error) {
	start := m.now()

	sess, ok := m.store.Update(token, func(s *Session) { s.LastPolledAt = start })
	if !ok {
		return nil, ErrSessionNotFound
	}

	if sess.Status.Terminal() {
		action := ActionReplace
		if sess.Status == StatusError {
			action = ActionKeep
		}
		snap := sess.snapshot(action)
		m.record(ctx, audit.OperationPoll, &sess, snap, false, nil, start)
		return snap, nil
	}

	res, err := m.provider.Poll(ctx, sess.ProviderSession)
	if err != nil {
		return m.pollFailed(ctx, token, err, start)
	}

	action := ActionKeep
	cur, ok := m.store.Update(token, func(s *Session) {
		s.Polls++
		if res.Session != "" {
			s.ProviderSession = res.Session
		}
		s.Synthetic = s.Synthetic || res.Synthetic
		if !s.Results.Equal(res.Payload) {
			s.Results = res.Payload
			action = ActionReplace
		}
		if s.Results.IsComplete() {
			s.Status = s.Status.advance(StatusComplete)
		}
	})
	if !ok {
		return nil, ErrSessionNotFound
	}

	snap := cur.snapshot(action)
	m.record(ctx, audit.OperationPoll, &cur, snap, true, nil, start)
	return snap, nil
}

// pollFailed marks the session as failed. Cached results are still served;
// without them the failure surfaces as an upstream error.
func (m *Manager) pollFailed(ctx context.Context, token string, err error, start time.Time) (*Snapshot, error) {
	text := upstreamText(err)
	cur, ok := m.store.Update(token, func(s *Session) {
		s.Polls++
		s.Status = s.Status.advance(StatusError)
		s.Err = text
	})
	if !ok {
		return nil, ErrSessionNotFound
	}

	slog.Warn("search: upstream poll failed",
		slogKeyToken, token, slogKeyProvider, m.provider.Name(), slogKeyError, err)

	snap := cur.snapshot(ActionKeep)
	m.record(ctx, audit.OperationPoll, &cur, snap, true, err, start)

	if cur.Results == nil {
		return nil, fmt.Errorf("polling upstream search: %w", err)
	}
	return snap, nil
}

// Get returns a copy of a live session.
func (m *Manager) Get(token string) (Session, bool) {
	return m.store.Get(token)
}

// Sessions returns live sessions, newest first.
func (m *Manager) Sessions() []Session {
	sessions := m.store.List()
	slices.SortFunc(sessions, func(a, b Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Token, b.Token)
	})
	return sessions
}

// Len returns the number of stored sessions.
func (m *Manager) Len() int {
	return m.store.Len()
}

// Sweep removes expired sessions immediately.
func (m *Manager) Sweep() int {
	return m.store.Sweep(m.now())
}

// Close stops the sweeper.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) record(ctx context.Context, op audit.Operation, sess *Session, snap *Snapshot, upstreamCalled bool, err error, start time.Time) {
	errMsg := ""
	if err != nil {
		errMsg = upstreamText(err)
	}
	event := audit.NewEvent(op, sess.Token).
		WithRoute(sess.Origin, sess.Destination).
		WithProvider(m.provider.Name()).
		WithOutcome(string(snap.Status), string(snap.Action), len(snap.Content.Itineraries), upstreamCalled).
		WithResult(err == nil, errMsg, m.now().Sub(start).Milliseconds()).
		WithSource(SourceFromContext(ctx))
	if op == audit.OperationCreate {
		event.WithParameters(queryParameters(sess.Query))
	}
	event.Timestamp = start

	if logErr := m.audit.Log(ctx, *event); logErr != nil {
		slog.Warn("search: writing audit event failed", slogKeyToken, sess.Token, slogKeyError, logErr)
	}
}

func queryParameters(q flight.Query) map[string]any {
	legs := make([]any, 0, len(q.Legs))
	for _, leg := range q.Legs {
		legs = append(legs, map[string]any{
			"origin":      leg.Origin,
			"destination": leg.Destination,
			"date":        leg.Date,
		})
	}
	return map[string]any{
		"legs":     legs,
		"adults":   q.Adults,
		"children": len(q.ChildrenAges),
		"cabin":    string(q.Cabin),
	}
}

type sourceKey struct{}

// WithSource tags ctx with the surface a request arrived on (http, mcp, cli)
// for audit records.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext returns the source set by WithSource, or "unknown".
func SourceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}
