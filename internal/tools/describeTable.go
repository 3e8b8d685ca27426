package tools

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/AbdelilahOu/DBRouter/internal/state"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DescribeTableInput struct {
	ConnectionID string `json:"connectionId,omitempty" jsonschema:"session id from connect_database; empty uses the default connection"`
	TableName    string `json:"table_name" jsonschema:"name of the table to describe"`
	Schema       string `json:"schema,omitempty" jsonschema:"optional schema name; defaults to the current schema"`
}

type ColumnInfo struct {
	Name         string `json:"name" jsonschema:"column name"`
	DataType     string `json:"data_type" jsonschema:"data type of the column"`
	IsNullable   bool   `json:"is_nullable" jsonschema:"whether the column can contain NULL values"`
	DefaultValue string `json:"default_value,omitempty" jsonschema:"default value for the column"`
}

type DescribeTableOutput struct {
	Columns []ColumnInfo `json:"columns" jsonschema:"array of column information"`
}

type columnRow struct {
	Name         string         `db:"name"`
	DataType     string         `db:"data_type"`
	Nullable     string         `db:"nullable"`
	DefaultValue sql.NullString `db:"default_value"`
}

func GetDescribeTableTool(reg *state.Registry) *ToolDefinition[DescribeTableInput, DescribeTableOutput] {
	return NewToolDefinition[DescribeTableInput, DescribeTableOutput](
		"describe_table",
		"Get the columns of a table with their types, nullability and defaults.",
		func(ctx context.Context, req *mcp.CallToolRequest, input DescribeTableInput) (*mcp.CallToolResult, DescribeTableOutput, error) {
			return describeTableHandler(ctx, req, input, reg)
		},
	)
}

func describeTableHandler(ctx context.Context, req *mcp.CallToolRequest, input DescribeTableInput, reg *state.Registry) (*mcp.CallToolResult, DescribeTableOutput, error) {
	if input.TableName == "" {
		return nil, DescribeTableOutput{}, fmt.Errorf("table_name is required")
	}

	columns, err := withClient(ctx, reg, input.ConnectionID, catalogTimeout, func(ctx context.Context, dbc *client.DBClient) ([]ColumnInfo, error) {
		return describeTable(ctx, dbc, input.TableName, input.Schema)
	})
	if err != nil {
		logger.LogDatabaseOperation("DESCRIBE_TABLE", input.ConnectionID, input.TableName, 0, err)
		return nil, DescribeTableOutput{}, err
	}
	if len(columns) == 0 {
		return nil, DescribeTableOutput{}, fmt.Errorf("table %q not found", input.TableName)
	}

	return textResult(DescribeTableOutput{Columns: columns})
}

func describeTable(ctx context.Context, dbc *client.DBClient, table, schema string) ([]ColumnInfo, error) {
	d, err := dialectFor(dbc.Kind)
	if err != nil {
		return nil, err
	}

	query, args := d.columns, []interface{}{table}
	if schema != "" {
		query, args = d.columnsInSchema, []interface{}{table, schema}
	}

	var rows []columnRow
	if err := dbc.DB.SelectContext(ctx, &rows, dbc.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get columns error: %v", err)
	}

	columns := make([]ColumnInfo, 0, len(rows))
	for _, r := range rows {
		columns = append(columns, ColumnInfo{
			Name:         r.Name,
			DataType:     r.DataType,
			IsNullable:   r.Nullable == "YES" || r.Nullable == "Y",
			DefaultValue: r.DefaultValue.String,
		})
	}
	return columns, nil
}
