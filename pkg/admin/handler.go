// Package admin provides REST API endpoints for operating the search service.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/txn2/trip-planner/pkg/audit"
	"github.com/txn2/trip-planner/pkg/search"
)

// SessionSource lists live search sessions.
type SessionSource interface {
	Sessions() []search.Session
	Get(token string) (search.Session, bool)
	Provider() string
}

// Deps holds the admin handler dependencies. AuditQuerier may be nil when
// no database is configured.
type Deps struct {
	Sessions     SessionSource
	AuditQuerier audit.Querier
}

// Handler provides admin REST API endpoints.
type Handler struct {
	mux  *http.ServeMux
	deps Deps
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		mux:  http.NewServeMux(),
		deps: deps,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all admin API routes.
func (h *Handler) registerRoutes() {
	if h.deps.Sessions != nil {
		h.mux.HandleFunc("GET /api/v1/admin/sessions", h.listSessions)
		h.mux.HandleFunc("GET /api/v1/admin/sessions/{token}", h.getSession)
	}
	h.mux.HandleFunc("GET /api/v1/admin/searches", h.listSearches)
	h.mux.HandleFunc("GET /api/v1/admin/searches/stats", h.getSearchStats)
}

// problemDetail is the error body written by admin endpoints.
type problemDetail struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, problemDetail{Error: msg})
}
