package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/txn2/trip-planner/pkg/audit"
	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/upstream"
)

const (
	testProviderSession = "prov-1"
	testDate            = "2026-11-02"
)

var testEpoch = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: testEpoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type step struct {
	payload *flight.Payload
	err     error
}

// fakeProvider replays scripted responses. The last poll step repeats.
type fakeProvider struct {
	mu          sync.Mutex
	create      step
	polls       []step
	createCalls int
	pollCalls   int
	lastQuery   flight.Query
}

func (*fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Create(_ context.Context, q flight.Query) (*upstream.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastQuery = q
	if f.create.err != nil {
		return nil, f.create.err
	}
	return &upstream.Result{Session: testProviderSession, Payload: f.create.payload}, nil
}

func (f *fakeProvider) Poll(_ context.Context, session string) (*upstream.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session != testProviderSession {
		return nil, &upstream.Error{Op: "poll", StatusCode: 404, Body: "unknown session"}
	}
	i := min(f.pollCalls, len(f.polls)-1)
	f.pollCalls++
	s := f.polls[i]
	if s.err != nil {
		return nil, s.err
	}
	return &upstream.Result{Session: session, Payload: s.payload}, nil
}

func (f *fakeProvider) calls() (createCalls, pollCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.pollCalls
}

// recordingAudit captures audit events.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (*recordingAudit) Close() error { return nil }

func (r *recordingAudit) all() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

func incomplete(items ...flight.Itinerary) *flight.Payload {
	return payload(flight.ResultIncomplete, items...)
}

func completed(items ...flight.Itinerary) *flight.Payload {
	return payload(flight.ResultComplete, items...)
}

func payload(status flight.ResultStatus, items ...flight.Itinerary) *flight.Payload {
	p := &flight.Payload{Status: status, Itineraries: map[string]flight.Itinerary{}}
	for _, it := range items {
		p.Itineraries[it.ID] = it
	}
	return p
}

func itinerary(id string, amount int64) flight.Itinerary {
	return flight.Itinerary{
		ID:    id,
		Price: flight.Price{Amount: amount, Currency: "USD"},
		Legs: []flight.ItineraryLeg{{
			Origin:          "JFK",
			Destination:     "LAX",
			DurationMinutes: 380,
			Carriers:        []string{"AA"},
		}},
	}
}

func jfkLax() flight.Query {
	return flight.OneWay("jfk", "lax", testDate)
}

func newTestManager(t *testing.T, p upstream.Provider, clock *fakeClock, a audit.Logger) *Manager {
	t.Helper()
	m, err := NewManager(Config{Provider: p, Audit: a, Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}
