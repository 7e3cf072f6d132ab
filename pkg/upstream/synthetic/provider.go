// Package synthetic provides a deterministic upstream.Provider that fabricates
// itineraries. It backs development setups without provider credentials.
package synthetic

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/upstream"
)

// ProviderName identifies this provider.
const ProviderName = "synthetic"

const (
	defaultBatches   = 3
	defaultRetention = 30 * time.Minute
	pruneDivisor     = 4
	perBatch         = 4
	basePriceCents   = 8900
	priceSpanCents   = 60000
	minFlightMins    = 75
	flightSpanMins   = 420
	stopPenaltyMins  = 95
)

var carriers = []string{"AA", "DL", "UA", "B6", "AS", "WN", "F9", "NK"}

// Config configures the provider.
type Config struct {
	// Batches is how many calls it takes for a search to complete. The create
	// call delivers the first batch.
	Batches int

	// Currency of generated prices.
	Currency string

	// Retention bounds how long an unfinished search is remembered after
	// its last call. Abandoned searches are dropped once it elapses.
	Retention time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type search struct {
	query    flight.Query
	batches  int
	served   int
	lastUsed time.Time
}

// Provider fabricates results in batches.
type Provider struct {
	mu        sync.Mutex
	searches  map[string]*search
	batches   int
	currency  string
	retention time.Duration
	nextPrune time.Time
	now       func() time.Time
}

// New creates a synthetic provider.
func New(cfg Config) *Provider {
	if cfg.Batches <= 0 {
		cfg.Batches = defaultBatches
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Provider{
		searches:  make(map[string]*search),
		batches:   cfg.Batches,
		currency:  cfg.Currency,
		retention: cfg.Retention,
		now:       cfg.Now,
	}
}

// Name implements upstream.Provider.
func (*Provider) Name() string { return ProviderName }

// Create starts a fabricated search and returns its first batch.
func (p *Provider) Create(ctx context.Context, q flight.Query) (*upstream.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &upstream.Error{Op: "create", Err: err}
	}
	if len(q.Legs) == 0 {
		return nil, &upstream.Error{Op: "create", Err: errors.New("query has no legs")}
	}

	id := uuid.NewString()
	now := p.now()
	s := &search{query: q, batches: p.batches, lastUsed: now}

	p.mu.Lock()
	p.maybePrune(now)
	p.searches[id] = s
	res := p.advance(id, s)
	p.mu.Unlock()

	return res, nil
}

// Poll returns the next batch for a fabricated search.
func (p *Provider) Poll(ctx context.Context, session string) (*upstream.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &upstream.Error{Op: "poll", Err: err}
	}

	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.maybePrune(now)
	s, ok := p.searches[session]
	if !ok {
		return nil, &upstream.Error{Op: "poll", StatusCode: 404, Body: fmt.Sprintf("unknown session %q", session)}
	}
	s.lastUsed = now
	return p.advance(session, s), nil
}

// Sweep drops searches idle for longer than the retention and returns how
// many were removed.
func (p *Provider) Sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prune(now)
}

// Pending returns the number of unfinished searches held in memory.
func (p *Provider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.searches)
}

// maybePrune prunes at most once per quarter retention. Callers hold p.mu.
func (p *Provider) maybePrune(now time.Time) {
	if now.Before(p.nextPrune) {
		return
	}
	p.nextPrune = now.Add(p.retention / pruneDivisor)
	p.prune(now)
}

// prune removes expired searches. Callers hold p.mu.
func (p *Provider) prune(now time.Time) int {
	cutoff := now.Add(-p.retention)
	removed := 0
	for id, s := range p.searches {
		if s.lastUsed.Before(cutoff) {
			delete(p.searches, id)
			removed++
		}
	}
	return removed
}

// advance serves one more batch. Callers hold p.mu.
func (p *Provider) advance(id string, s *search) *upstream.Result {
	if s.served < s.batches {
		s.served++
	}

	payload := &flight.Payload{
		Status:      flight.ResultIncomplete,
		Itineraries: p.itineraries(s.query, s.served*perBatch),
	}
	progress := s.served * 100 / s.batches
	payload.Progress = &progress

	if s.served >= s.batches {
		payload.Status = flight.ResultComplete
		delete(p.searches, id)
	}
	return &upstream.Result{Session: id, Payload: payload, Synthetic: true}
}

// itineraries generates n itineraries. The same query always yields the same
// itineraries, so a larger batch is a superset of a smaller one.
func (p *Provider) itineraries(q flight.Query, n int) map[string]flight.Itinerary {
	rng := rand.New(rand.NewPCG(seed(q), 0)) //nolint:gosec // synthetic data, not security sensitive
	out := make(map[string]flight.Itinerary, n)

	for i := range n {
		it := flight.Itinerary{
			ID:    fmt.Sprintf("syn-%04d", i+1),
			Price: flight.Price{Amount: basePriceCents + rng.Int64N(priceSpanCents), Currency: p.currency},
			Score: float64(rng.IntN(1000)) / 1000,
		}
		for _, leg := range q.Legs {
			it.Legs = append(it.Legs, fabricateLeg(rng, leg))
		}
		it.Deeplink = fmt.Sprintf("https://example.com/book/%s?q=%d", it.ID, seed(q))
		out[it.ID] = it
	}
	return out
}

func fabricateLeg(rng *rand.Rand, leg flight.Leg) flight.ItineraryLeg {
	day, err := time.Parse(flight.DateLayout, leg.Date)
	if err != nil {
		day = time.Time{}
	}
	stops := rng.IntN(3)
	duration := minFlightMins + rng.IntN(flightSpanMins) + stops*stopPenaltyMins
	departure := day.Add(time.Duration(5*60+rng.IntN(17*60)) * time.Minute)

	legCarriers := []string{carriers[rng.IntN(len(carriers))]}
	if stops > 0 {
		legCarriers = append(legCarriers, carriers[rng.IntN(len(carriers))])
	}

	return flight.ItineraryLeg{
		Origin:          leg.Origin,
		Destination:     leg.Destination,
		Departure:       departure,
		Arrival:         departure.Add(time.Duration(duration) * time.Minute),
		DurationMinutes: duration,
		StopCount:       stops,
		Carriers:        legCarriers,
	}
}

func seed(q flight.Query) uint64 {
	h := fnv.New64a()
	for _, leg := range q.Legs {
		_, _ = h.Write([]byte(leg.Origin + leg.Destination + leg.Date))
	}
	_, _ = fmt.Fprintf(h, "%d|%v|%s", q.Adults, q.ChildrenAges, q.Cabin)
	return h.Sum64()
}

// Verify interface compliance.
var _ upstream.Provider = (*Provider)(nil)
