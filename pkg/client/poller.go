package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/search"
)

// DefaultInterval is the pause between polls.
const DefaultInterval = 2 * time.Second

// State is the poll loop state.
type State string

// Poll loop states. complete and error end the loop.
const (
	StateIdle     State = "idle"
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateError    State = "error"
)

// View is the local copy of a search as last rendered.
type View struct {
	State       State
	Token       string
	Origin      string
	Destination string
	Itineraries []flight.Itinerary
	Progress    int
	Error       string
}

// API is the subset of Client the poller uses.
type API interface {
	Create(ctx context.Context, q flight.Query) (*search.Snapshot, error)
	Poll(ctx context.Context, token string) (*search.Snapshot, error)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Interval defaults to DefaultInterval.
	Interval time.Duration

	// OnUpdate, when set, receives the view after every change.
	OnUpdate func(View)
}

// Poller runs one search to completion.
type Poller struct {
	api      API
	interval time.Duration
	onUpdate func(View)

	mu   sync.Mutex
	view View
}

// NewPoller creates an idle poller.
func NewPoller(api API, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{
		api:      api,
		interval: cfg.Interval,
		onUpdate: cfg.OnUpdate,
		view:     View{State: StateIdle},
	}
}

// View returns the current view.
func (p *Poller) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Run creates a search for q and polls it until the server reports a
// terminal status, a request fails, or ctx is done. Canceling ctx abandons
// the search without telling the server; the session expires on its own.
func (p *Poller) Run(ctx context.Context, q flight.Query) (View, error) {
	p.update(func(v *View) {
		*v = View{State: StatePending}
	})

	snap, err := p.api.Create(ctx, q)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Snapshot != nil {
			p.apply(apiErr.Snapshot)
		}
		return p.fail(err), err
	}
	p.apply(snap)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		view := p.View()
		if view.State != StatePending {
			return view, nil
		}

		select {
		case <-ctx.Done():
			return view, ctx.Err()
		case <-ticker.C:
		}

		snap, err := p.api.Poll(ctx, view.Token)
		if err != nil {
			if ctx.Err() != nil {
				return p.View(), ctx.Err()
			}
			return p.fail(err), err
		}
		p.apply(snap)
	}
}

// apply folds a snapshot into the view. Itineraries are substituted only
// when the server asks for a replace.
func (p *Poller) apply(snap *search.Snapshot) {
	p.update(func(v *View) {
		v.Token = snap.SessionToken
		v.Origin = snap.Origin
		v.Destination = snap.Destination
		v.Progress = snap.Progress
		v.Error = snap.Error
		if snap.Action == search.ActionReplace {
			v.Itineraries = snap.Content.Itineraries
		}
		switch {
		case snap.Status == search.StatusError || snap.Error != "":
			v.State = StateError
		case snap.Status == search.StatusComplete:
			v.State = StateComplete
		default:
			v.State = StatePending
		}
	})
}

// fail moves the view to the error state, keeping rendered results.
func (p *Poller) fail(err error) View {
	p.update(func(v *View) {
		v.State = StateError
		if v.Error == "" {
			v.Error = err.Error()
		}
	})
	return p.View()
}

func (p *Poller) update(fn func(*View)) {
	p.mu.Lock()
	fn(&p.view)
	view := p.view
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(view)
	}
}
