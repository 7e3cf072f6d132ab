package mcptools

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/trip-planner/pkg/search"
	"github.com/txn2/trip-planner/pkg/upstream"
	"github.com/txn2/trip-planner/pkg/upstream/synthetic"
)

func connect(t *testing.T, p upstream.Provider) *mcp.ClientSession {
	t.Helper()
	m, err := search.NewManager(search.Config{Provider: p})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	srv := httptest.NewServer(NewHandler(NewServer("trip-planner-test", "0.0.1", m)))
	t.Cleanup(srv.Close)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "want text content, got %T", result.Content[0])
	return result, tc.Text
}

func TestToolkit_Tools(t *testing.T) {
	assert.Equal(t, []string{SearchToolName, PollToolName}, New(nil).Tools())
}

func TestTools_SearchThenPoll(t *testing.T) {
	session := connect(t, synthetic.New(synthetic.Config{Batches: 2}))

	result, text := callTool(t, session, SearchToolName, map[string]any{
		"origin":      "jfk",
		"destination": "lax",
		"date":        "2026-11-02",
		"return_date": "2026-11-09",
		"adults":      2,
	})
	require.False(t, result.IsError, text)

	var created search.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text), &created))
	assert.Equal(t, search.StatusPending, created.Status)
	assert.Equal(t, "JFK", created.Origin)
	assert.Len(t, created.Content.Itineraries, 4)
	require.Len(t, created.Content.Itineraries[0].Legs, 2)

	result, text = callTool(t, session, PollToolName, map[string]any{"session_token": created.SessionToken})
	require.False(t, result.IsError, text)

	var polled search.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text), &polled))
	assert.Equal(t, search.StatusComplete, polled.Status)
	assert.Equal(t, 100, polled.Progress)
	assert.Len(t, polled.Content.Itineraries, 8)
}

func TestTools_Errors(t *testing.T) {
	session := connect(t, synthetic.New(synthetic.Config{}))

	tests := []struct {
		name string
		tool string
		args map[string]any
		code string
	}{
		{
			name: "invalid query",
			tool: SearchToolName,
			args: map[string]any{"origin": "JFK", "destination": "JFK", "date": "2026-11-02"},
			code: search.CodeMissingParameters,
		},
		{
			name: "unknown session",
			tool: PollToolName,
			args: map[string]any{"session_token": "missing"},
			code: search.CodeSessionNotFound,
		},
		{
			name: "empty session",
			tool: PollToolName,
			args: map[string]any{"session_token": ""},
			code: search.CodeMissingParameters,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, text := callTool(t, session, tt.tool, tt.args)
			assert.True(t, result.IsError)

			var body search.ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(text), &body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}
