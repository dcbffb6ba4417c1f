package mymcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ListTools returns the static four-tool catalog with its input contracts.
func ListTools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolExecuteSQL,
			mcp.WithDescription("Execute an SQL query on the MySQL server"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The SQL query to execute"),
			),
		),
		mcp.NewTool(ToolGetSchemaInfo,
			mcp.WithDescription("Get comprehensive schema information including table descriptions and relationships"),
			mcp.WithString("table_name",
				mcp.Description("Optional: specific table name to get info for. If not provided, returns an overview of all tables."),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		mcp.NewTool(ToolGetTableSample,
			mcp.WithDescription("Get a sample of data from a specific table with column descriptions"),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description("Name of the table to sample"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Number of rows to return (default: 5, max: 20)"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		mcp.NewTool(ToolGetReferenceDoc,
			mcp.WithDescription("Get the MCP use case and query reference documentation."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
	}
}

// RegisterMCPTools registers the tool catalog on the given MCP server.
// Every handler funnels through MysqlMcp.CallTool, which owns the
// per-call endpoint lifecycle and converts all failures to text results.
func RegisterMCPTools(mcpServer *server.MCPServer, m *MysqlMcp) {
	for _, tool := range ListTools() {
		name := tool.Name
		mcpServer.AddTool(tool, m.loggedToolHandler(name, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(m.CallTool(ctx, name, req.GetArguments())), nil
		}))
	}
}

// loggedToolHandler wraps a tool handler to log request and response sizes.
func (m *MysqlMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := handler(ctx, req)
		m.logger.Info().
			Str("tool", tool).
			Int("request_bytes", requestLength(req)).
			Int("response_bytes", resultLength(result)).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
