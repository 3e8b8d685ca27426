package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition represents a complete tool with its metadata and handler
type ToolDefinition[TInput, TOutput any] struct {
	Tool    *mcp.Tool
	Handler func(ctx context.Context, req *mcp.CallToolRequest, input TInput) (*mcp.CallToolResult, TOutput, error)
}

// NewToolDefinition creates a new tool definition with the given name, description and handler
func NewToolDefinition[TInput, TOutput any](
	name, description string,
	handler func(ctx context.Context, req *mcp.CallToolRequest, input TInput) (*mcp.CallToolResult, TOutput, error),
) *ToolDefinition[TInput, TOutput] {
	return &ToolDefinition[TInput, TOutput]{
		Tool: &mcp.Tool{
			Name:        name,
			Description: description,
		},
		Handler: handler,
	}
}

// Register adds this tool to the MCP server. Every call is logged with its
// outcome.
func (td *ToolDefinition[TInput, TOutput]) Register(s *mcp.Server) {
	name := td.Tool.Name
	handler := td.Handler
	mcp.AddTool(s, td.Tool, func(ctx context.Context, req *mcp.CallToolRequest, input TInput) (*mcp.CallToolResult, TOutput, error) {
		res, out, err := handler(ctx, req, input)
		logger.LogToolCall(name, err)
		return res, out, err
	})
}

// textResult renders a tool output as the JSON text content clients display.
func textResult[TOutput any](output TOutput) (*mcp.CallToolResult, TOutput, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero TOutput
		return nil, zero, fmt.Errorf("JSON marshal error: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
