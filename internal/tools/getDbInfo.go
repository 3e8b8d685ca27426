package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/state"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type GetDBInfoInput struct {
	ConnectionID string `json:"connectionId,omitempty" jsonschema:"session id from connect_database; empty uses the default connection"`
}

type GetDBInfoOutput struct {
	DatabaseName string   `json:"database_name" jsonschema:"name of the database"`
	DatabaseType string   `json:"database_type" jsonschema:"postgres, oracle, mysql, sqlserver or sqlite"`
	Version      string   `json:"version" jsonschema:"database version"`
	Schemas      []string `json:"schemas" jsonschema:"available schemas"`
	TableCount   int      `json:"table_count" jsonschema:"total number of tables"`
}

func GetDbInfoTool(reg *state.Registry) *ToolDefinition[GetDBInfoInput, GetDBInfoOutput] {
	return NewToolDefinition[GetDBInfoInput, GetDBInfoOutput](
		"get_db_info",
		"Get general database information and statistics.",
		func(ctx context.Context, req *mcp.CallToolRequest, input GetDBInfoInput) (*mcp.CallToolResult, GetDBInfoOutput, error) {
			return getDBInfoHandler(ctx, req, input, reg)
		},
	)
}

func getDBInfoHandler(ctx context.Context, req *mcp.CallToolRequest, input GetDBInfoInput, reg *state.Registry) (*mcp.CallToolResult, GetDBInfoOutput, error) {
	output, err := withClient(ctx, reg, input.ConnectionID, catalogTimeout, getDBInfo)
	if err != nil {
		return nil, GetDBInfoOutput{}, err
	}
	return textResult(output)
}

func getDBInfo(ctx context.Context, dbc *client.DBClient) (GetDBInfoOutput, error) {
	d, err := dialectFor(dbc.Kind)
	if err != nil {
		return GetDBInfoOutput{}, err
	}

	output := GetDBInfoOutput{DatabaseType: string(dbc.Kind), Schemas: []string{}}

	if err := dbc.DB.GetContext(ctx, &output.DatabaseName, d.dbName); err != nil {
		return GetDBInfoOutput{}, fmt.Errorf("failed to get database name: %v", err)
	}
	if err := dbc.DB.GetContext(ctx, &output.Version, d.version); err != nil {
		return GetDBInfoOutput{}, fmt.Errorf("failed to get version: %v", err)
	}
	if err := dbc.DB.SelectContext(ctx, &output.Schemas, d.schemas); err != nil {
		return GetDBInfoOutput{}, fmt.Errorf("failed to get schemas: %v", err)
	}
	if err := dbc.DB.GetContext(ctx, &output.TableCount, d.tableCount); err != nil {
		return GetDBInfoOutput{}, fmt.Errorf("failed to get table count: %v", err)
	}

	if dbc.Kind == client.Postgres {
		if parts := strings.Fields(output.Version); len(parts) >= 2 && parts[0] == "PostgreSQL" {
			output.Version = "PostgreSQL " + parts[1]
		}
	}

	return output, nil
}
