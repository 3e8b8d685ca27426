package tools

import (
	"context"
	"fmt"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/AbdelilahOu/DBRouter/internal/state"
	dbrouter "github.com/AbdelilahOu/DBRouter/pkg"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SelectQueryInput struct {
	ConnectionID string `json:"connectionId,omitempty" jsonschema:"session id from connect_database; empty uses the default connection"`
	Query        string `json:"query" jsonschema:"SELECT SQL query to execute"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 50)"`
}

type SelectQueryOutput struct {
	Data      []map[string]interface{} `json:"data" jsonschema:"query results"`
	Truncated bool                     `json:"truncated" jsonschema:"true when more rows were available than the limit"`
	Message   string                   `json:"message" jsonschema:"success message"`
}

func GetSelectQueryTool(reg *state.Registry) *ToolDefinition[SelectQueryInput, SelectQueryOutput] {
	return NewToolDefinition[SelectQueryInput, SelectQueryOutput](
		"select_query",
		"Execute SELECT SQL queries and return result data.",
		func(ctx context.Context, req *mcp.CallToolRequest, input SelectQueryInput) (*mcp.CallToolResult, SelectQueryOutput, error) {
			return selectQueryHandler(ctx, req, input, reg)
		},
	)
}

func selectQueryHandler(ctx context.Context, req *mcp.CallToolRequest, input SelectQueryInput, reg *state.Registry) (*mcp.CallToolResult, SelectQueryOutput, error) {
	if !client.IsReadQuery(input.Query) {
		return nil, SelectQueryOutput{}, fmt.Errorf("only SELECT queries are allowed")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = dbrouter.DefaultQueryLimit
	}

	output, err := withClient(ctx, reg, input.ConnectionID, queryTimeout, func(ctx context.Context, dbc *client.DBClient) (SelectQueryOutput, error) {
		rows, truncated, err := dbc.SelectMapsLimit(ctx, limit, input.Query)
		if err != nil {
			return SelectQueryOutput{}, err
		}
		return SelectQueryOutput{Data: rows, Truncated: truncated}, nil
	})
	logger.LogDatabaseOperation("SELECT", input.ConnectionID, input.Query, int64(len(output.Data)), err)
	if err != nil {
		return nil, SelectQueryOutput{}, queryError(err)
	}

	output.Message = fmt.Sprintf("SELECT query completed successfully (%d rows returned)", len(output.Data))
	if output.Truncated {
		output.Message = fmt.Sprintf("SELECT query completed successfully (first %d rows returned)", len(output.Data))
	}

	return textResult(output)
}
