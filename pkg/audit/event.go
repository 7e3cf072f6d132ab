package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation is the search service operation an event describes.
type Operation string

const (
	// OperationCreate is a new search session.
	OperationCreate Operation = "create"

	// OperationPoll is a poll against an existing session.
	OperationPoll Operation = "poll"
)

// NewEvent creates a new audit event.
func NewEvent(op Operation, sessionToken string) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Operation:    op,
		SessionToken: sessionToken,
	}
}

// WithRoute adds the searched route to the event.
func (e *Event) WithRoute(origin, destination string) *Event {
	e.Origin = origin
	e.Destination = destination
	return e
}

// WithProvider adds the upstream provider name.
func (e *Event) WithProvider(name string) *Event {
	e.Provider = name
	return e
}

// WithOutcome adds the resulting session status, client action and result size.
func (e *Event) WithOutcome(status, action string, itineraries int, upstreamCalled bool) *Event {
	e.Status = status
	e.Action = action
	e.Itineraries = itineraries
	e.UpstreamCalled = upstreamCalled
	return e
}

// WithResult adds result information to the event.
func (e *Event) WithResult(success bool, errorMsg string, durationMS int64) *Event {
	e.Success = success
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// WithSource records which surface issued the request (http, mcp).
func (e *Event) WithSource(source string) *Event {
	e.Source = source
	return e
}

// WithParameters adds request parameters to the event.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	return e
}

// SanitizeParameters removes sensitive parameters from the event.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sensitiveKeys := map[string]bool{
		"password":      true,
		"secret":        true,
		"token":         true,
		"api_key":       true,
		"apikey":        true,
		"authorization": true,
		"credentials":   true,
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}
