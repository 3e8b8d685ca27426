package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/config"
	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/AbdelilahOu/DBRouter/internal/state"
	dbrouter "github.com/AbdelilahOu/DBRouter/pkg"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CloseAllInput struct{}

type ListSessionsInput struct{}

type ListConnectionsInput struct{}

type ConnectionInfo struct {
	Name        string `json:"name" jsonschema:"connection name, usable as target in connect_database"`
	Type        string `json:"type" jsonschema:"database type"`
	Host        string `json:"host,omitempty" jsonschema:"database host"`
	Database    string `json:"database" jsonschema:"database name"`
	Description string `json:"description,omitempty" jsonschema:"connection description"`
}

type ListConnectionsOutput struct {
	Connections       []ConnectionInfo `json:"connections" jsonschema:"configured connections"`
	DefaultConnection string           `json:"default_connection" jsonschema:"connection serving calls without a connectionId"`
}

type TestConnectionInput struct {
	ConnectionID string `json:"connectionId,omitempty" jsonschema:"session to ping; empty pings the default connection"`
	Target       string `json:"target,omitempty" jsonschema:"configured connection to try without opening a session"`
}

type TestConnectionOutput struct {
	Success    bool   `json:"success" jsonschema:"whether the connection test succeeded"`
	Message    string `json:"message" jsonschema:"test result message"`
	Connection string `json:"connection" jsonschema:"connection that was tested"`
}

func GetConnectDatabaseTool(reg *state.Registry) *ToolDefinition[dbrouter.ConnectRequest, dbrouter.ConnectResponse] {
	return NewToolDefinition[dbrouter.ConnectRequest, dbrouter.ConnectResponse](
		"connect_database",
		"Open a session against a database and return its connectionId. Pass target to use a configured connection, or dbType, host, port, database, username and password.",
		func(ctx context.Context, req *mcp.CallToolRequest, input dbrouter.ConnectRequest) (*mcp.CallToolResult, dbrouter.ConnectResponse, error) {
			return connectDatabaseHandler(ctx, req, input, reg)
		},
	)
}

func connectDatabaseHandler(ctx context.Context, req *mcp.CallToolRequest, input dbrouter.ConnectRequest, reg *state.Registry) (*mcp.CallToolResult, dbrouter.ConnectResponse, error) {
	target, err := input.ClientTarget()
	if err != nil {
		logger.LogConnectionEvent("connect", input.Target, input.DBType, err)
		return nil, dbrouter.ConnectResponse{}, fmt.Errorf("invalid datasource config: %v", err)
	}

	res, err := reg.Connect(ctx, target)
	if err != nil {
		logger.LogConnectionEvent("connect", target.Label(), string(target.Kind), err)
		return nil, dbrouter.ConnectResponse{}, err
	}

	return textResult(dbrouter.ConnectResponse{
		ConnectionID: res.ID,
		ExpiresAt:    dbrouter.FormatTime(res.ExpiresAt),
	})
}

func GetCloseConnectionTool(reg *state.Registry) *ToolDefinition[dbrouter.CloseRequest, dbrouter.CloseResponse] {
	return NewToolDefinition[dbrouter.CloseRequest, dbrouter.CloseResponse](
		"close_connection",
		"Close a session opened by connect_database. Closing an unknown or already closed session succeeds.",
		func(ctx context.Context, req *mcp.CallToolRequest, input dbrouter.CloseRequest) (*mcp.CallToolResult, dbrouter.CloseResponse, error) {
			return closeConnectionHandler(ctx, req, input, reg)
		},
	)
}

func closeConnectionHandler(ctx context.Context, req *mcp.CallToolRequest, input dbrouter.CloseRequest, reg *state.Registry) (*mcp.CallToolResult, dbrouter.CloseResponse, error) {
	if input.ConnectionID == "" {
		return nil, dbrouter.CloseResponse{}, fmt.Errorf("connectionId is required")
	}
	if input.ConnectionID == state.DefaultKey {
		return nil, dbrouter.CloseResponse{}, fmt.Errorf("the default connection cannot be closed")
	}

	if err := reg.Remove(input.ConnectionID); err != nil {
		return nil, dbrouter.CloseResponse{}, fmt.Errorf("close connection: %v", err)
	}

	return textResult(dbrouter.CloseResponse{
		Status:  "success",
		Message: fmt.Sprintf("Connection %s closed", input.ConnectionID),
	})
}

func GetCloseAllConnectionsTool(reg *state.Registry) *ToolDefinition[CloseAllInput, dbrouter.CloseAllResponse] {
	return NewToolDefinition[CloseAllInput, dbrouter.CloseAllResponse](
		"close_all_connections",
		"Close every open session. The default connection stays up.",
		func(ctx context.Context, req *mcp.CallToolRequest, input CloseAllInput) (*mcp.CallToolResult, dbrouter.CloseAllResponse, error) {
			n := reg.RemoveAll()
			return textResult(dbrouter.CloseAllResponse{
				Status:      "success",
				Message:     fmt.Sprintf("Closed %d connection(s)", n),
				ClosedCount: n,
			})
		},
	)
}

func GetListSessionsTool(reg *state.Registry) *ToolDefinition[ListSessionsInput, dbrouter.ListSessionsResponse] {
	return NewToolDefinition[ListSessionsInput, dbrouter.ListSessionsResponse](
		"list_sessions",
		"List open sessions with their last use and expiry times.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ListSessionsInput) (*mcp.CallToolResult, dbrouter.ListSessionsResponse, error) {
			return textResult(dbrouter.NewListSessionsResponse(reg.List()))
		},
	)
}

func GetListConnectionsTool(cfg *config.Config) *ToolDefinition[ListConnectionsInput, ListConnectionsOutput] {
	return NewToolDefinition[ListConnectionsInput, ListConnectionsOutput](
		"list_connections",
		"List all available named connections from config.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ListConnectionsInput) (*mcp.CallToolResult, ListConnectionsOutput, error) {
			return listConnectionsHandler(ctx, req, input, cfg)
		},
	)
}

func listConnectionsHandler(ctx context.Context, req *mcp.CallToolRequest, input ListConnectionsInput, cfg *config.Config) (*mcp.CallToolResult, ListConnectionsOutput, error) {
	if cfg == nil {
		return nil, ListConnectionsOutput{}, fmt.Errorf("config not loaded")
	}

	connections := make([]ConnectionInfo, 0, len(cfg.Connections))
	for name, conn := range cfg.ListConnections() {
		connections = append(connections, ConnectionInfo{
			Name:        name,
			Type:        conn.Type,
			Host:        conn.Host,
			Database:    conn.Database,
			Description: conn.Description,
		})
	}
	sort.Slice(connections, func(i, j int) bool { return connections[i].Name < connections[j].Name })

	return textResult(ListConnectionsOutput{
		Connections:       connections,
		DefaultConnection: cfg.DefaultConnection,
	})
}

func GetTestConnectionTool(reg *state.Registry, factory *client.Factory) *ToolDefinition[TestConnectionInput, TestConnectionOutput] {
	return NewToolDefinition[TestConnectionInput, TestConnectionOutput](
		"test_connection",
		"Test connectivity to a session, the default connection, or a configured connection.",
		func(ctx context.Context, req *mcp.CallToolRequest, input TestConnectionInput) (*mcp.CallToolResult, TestConnectionOutput, error) {
			return testConnectionHandler(ctx, req, input, reg, factory)
		},
	)
}

func testConnectionHandler(ctx context.Context, req *mcp.CallToolRequest, input TestConnectionInput, reg *state.Registry, factory *client.Factory) (*mcp.CallToolResult, TestConnectionOutput, error) {
	if input.Target != "" {
		if factory == nil {
			return nil, TestConnectionOutput{}, fmt.Errorf("no connection factory configured")
		}
		return textResult(testTarget(ctx, factory, input.Target))
	}

	name := input.ConnectionID
	if name == "" {
		name = state.DefaultKey
	}

	_, err := state.RunWithSession(ctx, reg, input.ConnectionID, func(ctx context.Context) (struct{}, error) {
		dbc, err := reg.Resolve(ctx)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, dbc.DB.PingContext(ctx)
	})
	logger.LogConnectionEvent("test_connection", name, "", err)
	if err != nil {
		return textResult(TestConnectionOutput{
			Success:    false,
			Message:    fmt.Sprintf("Connection test failed: %v", err),
			Connection: name,
		})
	}

	return textResult(TestConnectionOutput{
		Success:    true,
		Message:    "Connection test successful",
		Connection: name,
	})
}

// testTarget opens and immediately closes a pool for a configured connection.
func testTarget(ctx context.Context, factory *client.Factory, name string) TestConnectionOutput {
	dbc, err := factory.Build(ctx, client.Target{Name: name})
	if err != nil {
		logger.LogConnectionEvent("test_connection", name, "", err)
		return TestConnectionOutput{
			Success:    false,
			Message:    fmt.Sprintf("Connection test failed: %v", err),
			Connection: name,
		}
	}
	defer dbc.Close()

	logger.LogConnectionEvent("test_connection", name, string(dbc.Kind), nil)
	return TestConnectionOutput{
		Success:    true,
		Message:    "Connection test successful",
		Connection: name,
	}
}
