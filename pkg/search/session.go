// Package search implements the asynchronous flight-search session protocol:
// a create call starts an upstream search, and clients poll the returned
// token until the session reaches a terminal status.
package search

import (
	"time"

	"github.com/txn2/trip-planner/pkg/flight"
)

// Status is the lifecycle status of a search session.
type Status string

// Session statuses. complete and error are terminal.
const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Terminal reports whether s never changes again.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// advance returns the status after moving towards next. Terminal statuses
// are sticky.
func (s Status) advance(next Status) Status {
	if s.Terminal() {
		return s
	}
	return next
}

// Action tells the client what to do with the content of a response.
type Action string

// Actions.
const (
	// ActionReplace means the content differs from the last delivery and
	// should substitute the rendered results.
	ActionReplace Action = "replace"

	// ActionKeep means the rendered results remain valid.
	ActionKeep Action = "keep"
)

// Session is the server-side record of one search.
type Session struct {
	Token           string
	Status          Status
	CreatedAt       time.Time
	LastPolledAt    time.Time
	Origin          string
	Destination     string
	Query           flight.Query
	ProviderSession string

	// Results is the last full upstream payload. It is replaced, never mutated.
	Results *flight.Payload

	// Err holds the upstream error text when the session ended on a failure.
	Err string

	// Polls counts upstream poll round trips.
	Polls int

	// Synthetic is set once the provider served fabricated results.
	Synthetic bool
}

// ItineraryCount returns the number of cached itineraries.
func (s *Session) ItineraryCount() int {
	if s.Results == nil {
		return 0
	}
	return len(s.Results.Itineraries)
}

// Content is the rendered result set carried in a response.
type Content struct {
	Itineraries []flight.Itinerary `json:"itineraries"`
}

// Snapshot is the response to a create or poll call.
type Snapshot struct {
	SessionToken string  `json:"sessionToken"`
	Status       Status  `json:"status"`
	Action       Action  `json:"action"`
	Progress     int     `json:"progress"`
	Content      Content `json:"content"`
	Origin       string  `json:"origin"`
	Destination  string  `json:"destination"`
	Error        string  `json:"error,omitempty"`
	Synthetic    bool    `json:"synthetic,omitempty"`
}

const (
	progressDone     = 100
	progressCeiling  = 99
	progressBase     = 10
	progressPerPoll  = 15
	progressEstimate = 90
)

// progress estimates completion for display.
func (s *Session) progress() int {
	if s.Status.Terminal() {
		return progressDone
	}
	if s.Results != nil && s.Results.Progress != nil {
		return min(max(*s.Results.Progress, 0), progressCeiling)
	}
	return min(progressBase+progressPerPoll*s.Polls, progressEstimate)
}

func (s *Session) snapshot(action Action) *Snapshot {
	return &Snapshot{
		SessionToken: s.Token,
		Status:       s.Status,
		Action:       action,
		Progress:     s.progress(),
		Content:      Content{Itineraries: s.Results.Sorted()},
		Origin:       s.Origin,
		Destination:  s.Destination,
		Error:        s.Err,
		Synthetic:    s.Synthetic,
	}
}
