package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/trip-planner/pkg/mcptools"
)

// InfoToolName is the name of the service description tool.
const InfoToolName = "service_info"

// Info describes the running search service.
type Info struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Provider         string   `json:"provider"`
	Tools            []string `json:"tools"`
	SessionRetention string   `json:"session_retention"`
	PollInterval     string   `json:"poll_interval"`
	LiveSessions     int      `json:"live_sessions"`
	Features         Features `json:"features"`
}

// Features describes enabled service features.
type Features struct {
	AuditLogging  bool `json:"audit_logging"`
	SearchHistory bool `json:"search_history"`
	AdminAPI      bool `json:"admin_api"`
}

// serviceInfoInput is empty since this tool has no parameters.
type serviceInfoInput struct{}

// registerInfoTool registers the service_info tool with the MCP server.
func (p *Platform) registerInfoTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        InfoToolName,
		Description: p.buildInfoToolDescription(),
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ serviceInfoInput) (*mcp.CallToolResult, any, error) {
		return p.handleInfo(ctx, req)
	})
}

// buildInfoToolDescription builds a dynamic tool description based on configuration.
func (p *Platform) buildInfoToolDescription() string {
	base := "Get information about this flight search service"
	if p.config.Server.Name != "" && p.config.Server.Name != defaultServerName {
		base = fmt.Sprintf("Get information about %s", p.config.Server.Name)
	}
	return base + ", including its data provider and how long search sessions live. " +
		"Synthetic providers return fabricated itineraries."
}

// info collects the current service description.
func (p *Platform) info() Info {
	tools := append([]string{InfoToolName}, mcptools.New(p.manager).Tools()...)
	return Info{
		Name:             p.config.Server.Name,
		Version:          p.version,
		Provider:         p.provider.Name(),
		Tools:            tools,
		SessionRetention: p.config.Search.Retention.String(),
		PollInterval:     p.config.Search.PollInterval.String(),
		LiveSessions:     p.manager.Len(),
		Features: Features{
			AuditLogging:  p.config.Audit.Enabled,
			SearchHistory: p.auditQuerier != nil,
			AdminAPI:      p.config.Admin.Enabled,
		},
	}
}

// handleInfo handles the service_info tool call.
func (p *Platform) handleInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(p.info(), "", "  ")
	if err != nil {
		return &mcp.CallToolResult{ //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError, not as Go errors
			Content: []mcp.Content{
				&mcp.TextContent{Text: "Error: " + err.Error()},
			},
			IsError: true,
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
