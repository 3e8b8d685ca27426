package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/AbdelilahOu/DBRouter/internal/state"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ExecuteQueryInput struct {
	ConnectionID string `json:"connectionId,omitempty" jsonschema:"session id from connect_database; empty uses the default connection"`
	Query        string `json:"query" jsonschema:"SQL statement to execute (INSERT, UPDATE, DELETE, etc.)"`
}

type ExecuteQueryOutput struct {
	RowsAffected int64  `json:"rows_affected" jsonschema:"number of rows affected by the query"`
	Message      string `json:"message" jsonschema:"success message"`
}

var dangerousOperations = []string{"drop database", "drop schema", "truncate"}

func GetExecuteQueryTool(reg *state.Registry) *ToolDefinition[ExecuteQueryInput, ExecuteQueryOutput] {
	return NewToolDefinition[ExecuteQueryInput, ExecuteQueryOutput](
		"execute_query",
		"Execute any SQL query (INSERT, UPDATE, DELETE, etc.) with proper permissions.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ExecuteQueryInput) (*mcp.CallToolResult, ExecuteQueryOutput, error) {
			return executeQueryHandler(ctx, req, input, reg)
		},
	)
}

func executeQueryHandler(ctx context.Context, req *mcp.CallToolRequest, input ExecuteQueryInput, reg *state.Registry) (*mcp.CallToolResult, ExecuteQueryOutput, error) {
	if client.IsReadQuery(input.Query) {
		return nil, ExecuteQueryOutput{}, fmt.Errorf("use select_query tool for SELECT queries")
	}

	queryLower := strings.ToLower(strings.TrimSpace(input.Query))
	for _, dangerous := range dangerousOperations {
		if strings.Contains(queryLower, dangerous) {
			return nil, ExecuteQueryOutput{}, fmt.Errorf("dangerous operation detected: %s", dangerous)
		}
	}

	operation := operationName(queryLower)

	rowsAffected, err := withClient(ctx, reg, input.ConnectionID, queryTimeout, func(ctx context.Context, dbc *client.DBClient) (int64, error) {
		return dbc.Exec(ctx, input.Query)
	})
	logger.LogDatabaseOperation(operation, input.ConnectionID, input.Query, rowsAffected, err)
	if err != nil {
		return nil, ExecuteQueryOutput{}, queryError(err)
	}

	message := fmt.Sprintf("%s operation completed successfully", operation)
	if rowsAffected > 0 {
		message = fmt.Sprintf("%s operation completed successfully (%d rows affected)", operation, rowsAffected)
	}

	return textResult(ExecuteQueryOutput{
		RowsAffected: rowsAffected,
		Message:      message,
	})
}

func operationName(queryLower string) string {
	switch {
	case strings.HasPrefix(queryLower, "insert"):
		return "INSERT"
	case strings.HasPrefix(queryLower, "update"):
		return "UPDATE"
	case strings.HasPrefix(queryLower, "delete"):
		return "DELETE"
	case strings.HasPrefix(queryLower, "create"):
		return "CREATE"
	case strings.HasPrefix(queryLower, "alter"):
		return "ALTER"
	case strings.HasPrefix(queryLower, "drop"):
		return "DROP"
	default:
		return "QUERY"
	}
}
