// Package mcptools exposes flight search as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/search"
)

const (
	// SearchToolName starts a flight search.
	SearchToolName = "search_flights"

	// PollToolName polls a flight search.
	PollToolName = "poll_flight_search"

	sourceMCP = "mcp"
)

// searchFlightsInput defines the input schema for search_flights.
type searchFlightsInput struct {
	Origin      string `json:"origin" jsonschema:"IATA code of the departure airport, e.g. JFK"`
	Destination string `json:"destination" jsonschema:"IATA code of the arrival airport, e.g. LAX"`
	Date        string `json:"date" jsonschema:"Outbound date as YYYY-MM-DD"`
	ReturnDate  string `json:"return_date,omitempty" jsonschema:"Return date as YYYY-MM-DD for a round trip"`
	Adults      int    `json:"adults,omitempty" jsonschema:"Number of adult passengers (1-9, default 1)"`
	Cabin       string `json:"cabin,omitempty" jsonschema:"Cabin class: economy, premium_economy, business or first"`
}

// pollFlightSearchInput defines the input schema for poll_flight_search.
type pollFlightSearchInput struct {
	SessionToken string `json:"session_token" jsonschema:"Token returned by search_flights"`
}

// Toolkit registers the flight search tools.
type Toolkit struct {
	manager *search.Manager
}

// New creates a toolkit backed by m.
func New(m *search.Manager) *Toolkit {
	return &Toolkit{manager: m}
}

// Tools returns the tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{SearchToolName, PollToolName}
}

// RegisterTools adds the tools to s.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: SearchToolName,
		Description: "Starts a live flight search and returns the first, possibly partial, results with a session_token. " +
			"Results arrive progressively: while status is pending, call poll_flight_search with the token.",
	}, t.handleSearch)

	mcp.AddTool(s, &mcp.Tool{
		Name: PollToolName,
		Description: "Refreshes a flight search started with search_flights. " +
			"Stop polling once status is complete or error. Sessions expire 30 minutes after creation.",
	}, t.handlePoll)
}

// NewServer creates an MCP server with the flight tools registered.
func NewServer(name, version string, m *search.Manager) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	New(m).RegisterTools(s)
	return s
}

// NewHandler serves s over streamable HTTP.
func NewHandler(s *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s }, nil)
}

func (t *Toolkit) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in searchFlightsInput) (*mcp.CallToolResult, any, error) {
	q := flight.OneWay(in.Origin, in.Destination, in.Date)
	if in.ReturnDate != "" {
		q = flight.Return(in.Origin, in.Destination, in.Date, in.ReturnDate)
	}
	q.Adults = in.Adults
	q.Cabin = flight.Cabin(in.Cabin)

	snap, err := t.manager.Create(search.WithSource(ctx, sourceMCP), q)
	if err != nil {
		if snap != nil {
			return errorResult(search.CodeUpstreamError, snap.Error), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}
		return failure(err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return snapshotResult(snap), nil, nil
}

func (t *Toolkit) handlePoll(ctx context.Context, _ *mcp.CallToolRequest, in pollFlightSearchInput) (*mcp.CallToolResult, any, error) {
	if in.SessionToken == "" {
		return errorResult(search.CodeMissingParameters, "session_token is required"), nil, nil
	}
	snap, err := t.manager.Poll(search.WithSource(ctx, sourceMCP), in.SessionToken)
	if err != nil {
		return failure(err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return snapshotResult(snap), nil, nil
}

func failure(err error) *mcp.CallToolResult {
	_, code := search.Classify(err)
	if code == search.CodeInternalError {
		slog.Error("mcptools: tool call failed", "error", err)
		return errorResult(code, "internal error")
	}
	return errorResult(code, err.Error())
}

// errorResult creates an error CallToolResult.
func errorResult(code, msg string) *mcp.CallToolResult {
	data, err := json.Marshal(search.ErrorResponse{Error: code, Message: msg})
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": %q}`, code))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}

func snapshotResult(snap *search.Snapshot) *mcp.CallToolResult {
	data, err := json.Marshal(snap)
	if err != nil {
		return errorResult(search.CodeInternalError, "internal error marshaling response")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
