// Package health provides readiness state tracking and HTTP health check handlers.
package health

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

const checkTimeout = 2 * time.Second

// DependencyCheck checks a dependency. A nil error means healthy.
type DependencyCheck func(ctx context.Context) error

// Checker tracks the readiness state of the service and the dependencies it
// needs to serve traffic. It is safe for concurrent use.
type Checker struct {
	state atomic.Int32

	mu       sync.RWMutex
	checks   map[string]DependencyCheck
	sessions func() int
}

// NewChecker creates a Checker in the Starting state.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]DependencyCheck)}
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// AddCheck registers a dependency check run on every readiness request.
func (c *Checker) AddCheck(name string, p DependencyCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = p
}

// SetSessionCounter reports the live search session count in readiness responses.
func (c *Checker) SetSessionCounter(fn func() int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = fn
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status   string            `json:"status"`
	Sessions *int              `json:"sessions,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for K8s liveness checks (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when ready
// and every dependency check passes, and 503 otherwise.
// Use this for K8s readiness checks (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: c.State()}

		c.mu.RLock()
		checks := maps.Clone(c.checks)
		sessions := c.sessions
		c.mu.RUnlock()

		if sessions != nil {
			n := sessions()
			resp.Sessions = &n
		}

		healthy := c.IsReady()
		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()

			resp.Checks = make(map[string]string, len(checks))
			for _, name := range slices.Sorted(maps.Keys(checks)) {
				if err := checks[name](ctx); err != nil {
					resp.Checks[name] = err.Error()
					healthy = false
					continue
				}
				resp.Checks[name] = "ok"
			}
		}

		if healthy {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
