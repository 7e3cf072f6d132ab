// Package server builds the HTTP server that fronts the platform.
package server

import (
	"fmt"
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/txn2/trip-planner/internal/apidocs" // registers the OpenAPI document
	"github.com/txn2/trip-planner/pkg/platform"
)

// Build metadata, set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// BuildInfo returns a one-line description of the build.
func BuildInfo() string {
	return fmt.Sprintf("trip-planner version %s (commit %s, built %s)", Version, Commit, Date)
}

const swaggerPrefix = "/swagger/"

// Routes returns the platform handler with API docs mounted, wrapped in
// CORS handling.
func Routes(p *platform.Platform) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", p.Handler())
	mux.Handle("GET "+swaggerPrefix, httpSwagger.Handler(httpSwagger.URL(swaggerPrefix+"doc.json")))
	return corsMiddleware(mux)
}

// New creates an http.Server for the platform using its configured address
// and timeouts.
func New(p *platform.Platform) *http.Server {
	cfg := p.Config().Server
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           Routes(p),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

var (
	allowMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
	}, ", ")
	allowHeaders = strings.Join([]string{
		"Content-Type", "Authorization", "X-API-Key",
		"Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID",
	}, ", ")
)

// corsMiddleware allows browser clients, including MCP inspectors, to call
// the API. Preflight requests are answered directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		h.Set("Access-Control-Allow-Credentials", "true")
		if origin != "*" {
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
