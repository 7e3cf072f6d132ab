package admin

import (
	"net/http"
	"time"

	"github.com/txn2/trip-planner/pkg/search"
)

// sessionSummary describes a live search session.
type sessionSummary struct {
	Token        string        `json:"session_token"`
	Status       search.Status `json:"status"`
	Origin       string        `json:"origin"`
	Destination  string        `json:"destination"`
	CreatedAt    time.Time     `json:"created_at"`
	LastPolledAt time.Time     `json:"last_polled_at"`
	Polls        int           `json:"polls"`
	Itineraries  int           `json:"itineraries"`
	Error        string        `json:"error,omitempty"`
	Synthetic    bool          `json:"synthetic,omitempty"`
}

// sessionListResponse lists live sessions.
type sessionListResponse struct {
	Provider string           `json:"provider"`
	Total    int              `json:"total"`
	Data     []sessionSummary `json:"data"`
}

func summarize(s *search.Session) sessionSummary {
	return sessionSummary{
		Token:        s.Token,
		Status:       s.Status,
		Origin:       s.Origin,
		Destination:  s.Destination,
		CreatedAt:    s.CreatedAt,
		LastPolledAt: s.LastPolledAt,
		Polls:        s.Polls,
		Itineraries:  s.ItineraryCount(),
		Error:        s.Err,
		Synthetic:    s.Synthetic,
	}
}

// listSessions handles GET /api/v1/admin/sessions.
//
// @Summary      List live search sessions
// @Description  Returns the in-memory search sessions, newest first. Filter with status.
// @Tags         Sessions
// @Produce      json
// @Param        status  query  string  false  "Filter by status: pending, complete, error"
// @Success      200  {object}  sessionListResponse
// @Router       /admin/sessions [get]
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	status := search.Status(r.URL.Query().Get("status"))

	data := make([]sessionSummary, 0)
	for _, s := range h.deps.Sessions.Sessions() {
		if status != "" && s.Status != status {
			continue
		}
		data = append(data, summarize(&s))
	}

	writeJSON(w, http.StatusOK, sessionListResponse{
		Provider: h.deps.Sessions.Provider(),
		Total:    len(data),
		Data:     data,
	})
}

// getSession handles GET /api/v1/admin/sessions/{token}.
//
// @Summary      Get a live search session
// @Tags         Sessions
// @Produce      json
// @Param        token  path  string  true  "Session token"
// @Success      200  {object}  sessionSummary
// @Failure      404  {object}  problemDetail
// @Router       /admin/sessions/{token} [get]
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.Sessions.Get(r.PathValue("token"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, summarize(&s))
}
