// Package mcpserver exposes the gateway tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/handaas/patent-bigdata-mcp/internal/domain/tool"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/handaas"
	"github.com/handaas/patent-bigdata-mcp/internal/version"
)

// ServerName is both the advertised server name and its instructions.
const ServerName = "专利大数据"

// NewServer builds an MCP server with the three gateway tools bound to svc.
// Tool handlers never fail: every outcome, including transport failures and
// missing credentials, is returned as text. String values such as msgCN or
// the failure message are sent bare; other values as JSON.
func NewServer(svc *tool.Service, logger *slog.Logger) (*mcp.Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("mcpserver: nil tool service")
	}
	if logger == nil {
		logger = slog.Default()
	}

	defs, err := tool.Definitions()
	if err != nil {
		return nil, err
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version.Version},
		&mcp.ServerOptions{Instructions: ServerName},
	)

	for _, def := range defs {
		switch def.Name {
		case tool.ToolPatentSearch:
			addTool(server, def, svc.PatentSearch, logger)
		case tool.ToolPatentStats:
			addTool(server, def, svc.PatentStats, logger)
		case tool.ToolFuzzySearch:
			addTool(server, def, svc.FuzzySearch, logger)
		default:
			return nil, fmt.Errorf("mcpserver: no handler for tool %q", def.Name)
		}
	}
	return server, nil
}

func addTool[P any](server *mcp.Server, def tool.ToolDefinition, run func(context.Context, P) handaas.Result, logger *slog.Logger) {
	t := &mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: def.InputSchema,
	}
	mcp.AddTool(server, t, func(ctx context.Context, _ *mcp.CallToolRequest, in P) (*mcp.CallToolResult, any, error) {
		res := run(ctx, in)
		logger.Debug("tool call", "tool", def.Name, "outcome", res.Kind)
		return textResult(res), nil, nil
	})
}

func textResult(res handaas.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: resultText(res)}},
	}
}

// resultText renders a string value as bare text and any other value as JSON.
func resultText(res handaas.Result) string {
	var s *string
	if err := res.Decode(&s); err == nil && s != nil {
		return *s
	}
	return string(res.JSON())
}
