// Package upstream defines the boundary to the external flight-search
// provider that produces results progressively.
package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/txn2/trip-planner/pkg/flight"
)

// Result is a validated upstream response.
type Result struct {
	// Session is the provider's own identity for the search, used to poll.
	Session string

	// Payload is the full result snapshot returned by this call.
	Payload *flight.Payload

	// Synthetic marks fabricated results that did not come from a real
	// flight-data provider.
	Synthetic bool
}

// Provider performs the create and poll calls against a flight-data provider.
type Provider interface {
	// Name identifies the provider in logs and audit records.
	Name() string

	// Create starts a search and returns the first, possibly partial, snapshot.
	Create(ctx context.Context, q flight.Query) (*Result, error)

	// Poll refreshes the snapshot for a provider session.
	Poll(ctx context.Context, session string) (*Result, error)
}

// Error reports a non-success upstream response or a payload that does not
// match the expected shape. Body carries the provider's raw text.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	msg := "upstream " + e.Op + " failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsError reports whether err is, or wraps, an *Error.
func IsError(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}
