package admin

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/txn2/trip-planner/pkg/audit"
)

// searchEventResponse wraps a paginated list of search audit events.
type searchEventResponse struct {
	Data    []audit.Event `json:"data"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500

	msgNoHistory = "search history requires a database"
)

// listSearches handles GET /api/v1/admin/searches.
//
// @Summary      List search history
// @Description  Returns paginated create and poll events from the search audit log.
// @Tags         Searches
// @Produce      json
// @Param        origin         query  string  false  "Filter by origin IATA code"
// @Param        destination    query  string  false  "Filter by destination IATA code"
// @Param        status         query  string  false  "Filter by resulting session status"
// @Param        operation      query  string  false  "Filter by operation: create, poll"
// @Param        session_token  query  string  false  "Filter by session token"
// @Param        success        query  boolean false  "Filter by success/failure"
// @Param        start_time     query  string  false  "Events after this time (RFC 3339)"
// @Param        end_time       query  string  false  "Events before this time (RFC 3339)"
// @Param        page           query  integer false  "Page number, 1-based (default: 1)"
// @Param        per_page       query  integer false  "Results per page (default: 50)"
// @Success      200  {object}  searchEventResponse
// @Failure      500  {object}  problemDetail
// @Failure      503  {object}  problemDetail
// @Router       /admin/searches [get]
func (h *Handler) listSearches(w http.ResponseWriter, r *http.Request) {
	if h.deps.AuditQuerier == nil {
		writeError(w, http.StatusServiceUnavailable, msgNoHistory)
		return
	}

	q := r.URL.Query()
	filter := parseSearchFilter(q)

	filter.Limit = parseLimit(q)
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}
	filter.Limit = min(filter.Limit, maxSearchLimit)
	effectiveLimit := filter.Limit
	filter.Offset = parsePageOffset(q, effectiveLimit)

	events, err := h.deps.AuditQuerier.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query search history")
		return
	}

	countFilter := filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := h.deps.AuditQuerier.Count(r.Context(), countFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count search history")
		return
	}

	if events == nil {
		events = []audit.Event{}
	}

	writeJSON(w, http.StatusOK, searchEventResponse{
		Data:    events,
		Total:   total,
		Page:    filter.Offset/effectiveLimit + 1,
		PerPage: effectiveLimit,
	})
}

// getSearchStats handles GET /api/v1/admin/searches/stats.
//
// @Summary      Get search statistics
// @Description  Aggregates the search audit log, optionally within a time window.
// @Tags         Searches
// @Produce      json
// @Param        origin       query  string  false  "Filter by origin IATA code"
// @Param        destination  query  string  false  "Filter by destination IATA code"
// @Param        start_time   query  string  false  "Events after this time (RFC 3339)"
// @Param        end_time     query  string  false  "Events before this time (RFC 3339)"
// @Success      200  {object}  audit.Stats
// @Failure      500  {object}  problemDetail
// @Failure      503  {object}  problemDetail
// @Router       /admin/searches/stats [get]
func (h *Handler) getSearchStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.AuditQuerier == nil {
		writeError(w, http.StatusServiceUnavailable, msgNoHistory)
		return
	}

	stats, err := h.deps.AuditQuerier.Stats(r.Context(), parseSearchFilter(r.URL.Query()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate search history")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// parseSearchFilter parses query parameters into an audit filter.
func parseSearchFilter(q url.Values) audit.QueryFilter {
	filter := audit.QueryFilter{
		SessionToken: q.Get("session_token"),
		Operation:    audit.Operation(q.Get("operation")),
		Origin:       strings.ToUpper(q.Get("origin")),
		Destination:  strings.ToUpper(q.Get("destination")),
		Status:       q.Get("status"),
		StartTime:    parseTimeParam(q, "start_time"),
		EndTime:      parseTimeParam(q, "end_time"),
	}
	if v := q.Get("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Success = &b
		}
	}
	return filter
}

// parseTimeParam parses an RFC 3339 query parameter. Invalid values are ignored.
func parseTimeParam(q url.Values, key string) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// parsePageOffset parses the page query parameter and computes offset using the given effective limit.
func parsePageOffset(q url.Values, effectiveLimit int) int {
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return (n - 1) * effectiveLimit
		}
	}
	return 0
}

// parseLimit parses the per_page query parameter into a limit value.
func parseLimit(q url.Values) int {
	if v := q.Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
