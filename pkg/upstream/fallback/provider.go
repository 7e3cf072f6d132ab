// Package fallback wraps a live upstream.Provider and serves fabricated
// results when the live provider cannot start a search.
package fallback

import (
	"context"
	"log/slog"
	"strings"

	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/upstream"
)

// sessionPrefix tags provider sessions owned by the secondary provider.
const sessionPrefix = "fallback:"

// Provider routes searches to a primary provider and falls back to a
// secondary one when the primary rejects a create call.
type Provider struct {
	primary   upstream.Provider
	secondary upstream.Provider
}

// New wraps primary. Failed creates are retried against secondary, whose
// results are marked synthetic.
func New(primary, secondary upstream.Provider) *Provider {
	return &Provider{primary: primary, secondary: secondary}
}

// Name implements upstream.Provider. It reports the primary provider.
func (p *Provider) Name() string { return p.primary.Name() }

// Create starts a search on the primary provider. Upstream failures are
// served by the secondary provider instead; cancellation is not.
func (p *Provider) Create(ctx context.Context, q flight.Query) (*upstream.Result, error) {
	res, err := p.primary.Create(ctx, q)
	if err == nil {
		return res, nil
	}
	if !upstream.IsError(err) || ctx.Err() != nil {
		return nil, err
	}

	slog.Warn("upstream create failed, serving synthetic flight data",
		"provider", p.primary.Name(), "fallback", p.secondary.Name(), "error", err)

	res, ferr := p.secondary.Create(ctx, q)
	if ferr != nil {
		slog.Warn("fallback create failed", "fallback", p.secondary.Name(), "error", ferr)
		return nil, err
	}
	return tag(res), nil
}

// Poll refreshes a search on whichever provider created it. A failed poll
// is reported as is; the session keeps its cached results.
func (p *Provider) Poll(ctx context.Context, session string) (*upstream.Result, error) {
	inner, ok := strings.CutPrefix(session, sessionPrefix)
	if !ok {
		return p.primary.Poll(ctx, session)
	}
	res, err := p.secondary.Poll(ctx, inner)
	if err != nil {
		return nil, err
	}
	return tag(res), nil
}

func tag(res *upstream.Result) *upstream.Result {
	out := *res
	if out.Session != "" {
		out.Session = sessionPrefix + out.Session
	}
	out.Synthetic = true
	return &out
}

// Verify interface compliance.
var _ upstream.Provider = (*Provider)(nil)
