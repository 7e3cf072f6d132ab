package search

import (
	"errors"
	"net/http"

	"github.com/txn2/trip-planner/pkg/upstream"
)

var (
	// ErrMissingParameters is returned when a create call carries no usable query.
	ErrMissingParameters = errors.New("missing parameters")

	// ErrSessionNotFound is returned for unknown or expired tokens.
	ErrSessionNotFound = errors.New("session not found")
)

// Error codes written in response bodies.
const (
	CodeMissingParameters = "missing_parameters"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeSessionNotFound   = "session_not_found"
	CodeUpstreamError     = "upstream_error"
	CodeInternalError     = "internal_error"
)

// Classify maps an error onto an HTTP status and a response code.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingParameters):
		return http.StatusBadRequest, CodeMissingParameters
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case upstream.IsError(err):
		return http.StatusBadGateway, CodeUpstreamError
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// upstreamText is the provider's raw error text when it sent one.
func upstreamText(err error) string {
	var ue *upstream.Error
	if errors.As(err, &ue) && ue.Body != "" {
		return ue.Body
	}
	return err.Error()
}
