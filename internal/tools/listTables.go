package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/state"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ListTablesInput struct {
	ConnectionID string `json:"connectionId,omitempty" jsonschema:"session id from connect_database; empty uses the default connection"`
	Schema       string `json:"schema,omitempty" jsonschema:"optional schema name to filter tables"`
}

type TableInfo struct {
	Name   string `json:"name" db:"name" jsonschema:"table name"`
	Schema string `json:"schema" db:"schema_name" jsonschema:"schema name"`
	Type   string `json:"type" db:"table_type" jsonschema:"table or view"`
}

type ListTablesOutput struct {
	Tables []TableInfo `json:"tables" jsonschema:"array of table information"`
}

func GetListTablesTool(reg *state.Registry) *ToolDefinition[ListTablesInput, ListTablesOutput] {
	return NewToolDefinition[ListTablesInput, ListTablesOutput](
		"list_tables",
		"List all tables in the database with metadata.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ListTablesInput) (*mcp.CallToolResult, ListTablesOutput, error) {
			return listTablesHandler(ctx, req, input, reg)
		},
	)
}

func listTablesHandler(ctx context.Context, req *mcp.CallToolRequest, input ListTablesInput, reg *state.Registry) (*mcp.CallToolResult, ListTablesOutput, error) {
	tables, err := withClient(ctx, reg, input.ConnectionID, catalogTimeout, func(ctx context.Context, dbc *client.DBClient) ([]TableInfo, error) {
		return listTables(ctx, dbc, input.Schema)
	})
	if err != nil {
		return nil, ListTablesOutput{}, err
	}
	return textResult(ListTablesOutput{Tables: tables})
}

func listTables(ctx context.Context, dbc *client.DBClient, schema string) ([]TableInfo, error) {
	d, err := dialectFor(dbc.Kind)
	if err != nil {
		return nil, err
	}

	query, args := d.tables, []interface{}{}
	if schema != "" {
		query, args = d.tablesInSchema, []interface{}{schema}
	}

	tables := []TableInfo{}
	if err := dbc.DB.SelectContext(ctx, &tables, dbc.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query error: %v", err)
	}

	for i := range tables {
		tables[i].Type = normalizeTableType(tables[i].Type)
	}
	return tables, nil
}

func normalizeTableType(tableType string) string {
	normalized := strings.ToLower(tableType)
	switch {
	case strings.Contains(normalized, "base table"), normalized == "table":
		return "table"
	case strings.Contains(normalized, "view"):
		return "view"
	}
	return normalized
}
