package search

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/txn2/trip-planner/pkg/flight"
)

const (
	// Path is where the create/poll endpoint is mounted.
	Path = "/api/v1/flights/search"

	maxRequestBytes = 64 << 10
	sourceHTTP      = "http"
)

// Request is the body of a create or poll call. A sessionToken selects the
// poll path; a query without a token selects the create path.
type Request struct {
	SessionToken string        `json:"sessionToken,omitempty"`
	Query        *flight.Query `json:"query,omitempty"`
}

// ErrorResponse is the body written for failed calls.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler serves the create/poll endpoint.
type Handler struct {
	manager *Manager
}

// NewHandler creates the endpoint handler.
func NewHandler(m *Manager) *Handler {
	return &Handler{manager: m}
}

// ServeHTTP dispatches on the shape of the request body.
//
// @Summary      Create or poll a flight search
// @Description  Without sessionToken the query starts a new search. With sessionToken the session is polled.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        body  body      Request  true  "Create or poll request"
// @Success      200   {object}  Snapshot
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      405   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Failure      502   {object}  Snapshot
// @Router       /flights/search [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeMissingParameters, "request body must be a JSON object")
		return
	}

	ctx := WithSource(r.Context(), sourceHTTP)

	if req.SessionToken != "" {
		snap, err := h.manager.Poll(ctx, req.SessionToken)
		if errors.Is(err, ErrSessionNotFound) && req.Query != nil {
			slog.Warn("search: unknown session token with query, starting a new search",
				slogKeyToken, req.SessionToken)
			h.create(w, r, *req.Query)
			return
		}
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	if req.Query == nil {
		writeError(w, http.StatusBadRequest, CodeMissingParameters, "query or sessionToken is required")
		return
	}
	h.create(w, r, *req.Query)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, q flight.Query) {
	snap, err := h.manager.Create(WithSource(r.Context(), sourceHTTP), q)
	if err != nil {
		if snap != nil {
			status, _ := Classify(err)
			writeJSON(w, status, snap)
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (*Handler) fail(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if code == CodeUpstreamError {
		msg = upstreamText(err)
	}
	if status == http.StatusInternalServerError {
		slog.Error("search: request failed", slogKeyError, err)
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
