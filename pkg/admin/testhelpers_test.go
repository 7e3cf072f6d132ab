package admin

import (
	"context"
	"time"

	"github.com/txn2/trip-planner/pkg/audit"
	"github.com/txn2/trip-planner/pkg/search"
)

// mockAuditQuerier implements audit.Querier for testing.
type mockAuditQuerier struct {
	queryResult []audit.Event
	countResult int
	statsResult *audit.Stats
	queryErr    error
	countErr    error
	statsErr    error

	lastFilter  audit.QueryFilter
	countFilter audit.QueryFilter
}

func (m *mockAuditQuerier) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	m.lastFilter = f
	return m.queryResult, m.queryErr
}

func (m *mockAuditQuerier) Count(_ context.Context, f audit.QueryFilter) (int, error) {
	m.countFilter = f
	return m.countResult, m.countErr
}

func (m *mockAuditQuerier) Stats(_ context.Context, f audit.QueryFilter) (*audit.Stats, error) {
	m.lastFilter = f
	return m.statsResult, m.statsErr
}

// mockSessions implements SessionSource for testing.
type mockSessions struct {
	sessions []search.Session
}

func (m *mockSessions) Sessions() []search.Session { return m.sessions }

func (m *mockSessions) Get(token string) (search.Session, bool) {
	for _, s := range m.sessions {
		if s.Token == token {
			return s, true
		}
	}
	return search.Session{}, false
}

func (*mockSessions) Provider() string { return "synthetic" }

var testTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newMockSessions() *mockSessions {
	return &mockSessions{sessions: []search.Session{
		{
			Token:        "tok-2",
			Status:       search.StatusPending,
			Origin:       "JFK",
			Destination:  "LAX",
			CreatedAt:    testTime.Add(time.Minute),
			LastPolledAt: testTime.Add(2 * time.Minute),
			Polls:        3,
		},
		{
			Token:       "tok-1",
			Status:      search.StatusError,
			Origin:      "SFO",
			Destination: "SEA",
			CreatedAt:   testTime,
			Err:         "upstream unavailable",
		},
	}}
}
