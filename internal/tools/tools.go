package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/config"
	"github.com/AbdelilahOu/DBRouter/internal/state"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	queryTimeout   = 30 * time.Second
	catalogTimeout = 10 * time.Second
)

func RegisterTools(s *mcp.Server, reg *state.Registry, factory *client.Factory, cfg *config.Config, readOnly bool) {
	// Session lifecycle
	GetConnectDatabaseTool(reg).Register(s)
	GetCloseConnectionTool(reg).Register(s)
	GetCloseAllConnectionsTool(reg).Register(s)
	GetListSessionsTool(reg).Register(s)
	GetListConnectionsTool(cfg).Register(s)
	GetTestConnectionTool(reg, factory).Register(s)

	// Queries
	GetSelectQueryTool(reg).Register(s)
	// Execute Query Tool (only if not read-only)
	if !readOnly {
		GetExecuteQueryTool(reg).Register(s)
	}

	// Catalog
	GetDbInfoTool(reg).Register(s)
	GetListTablesTool(reg).Register(s)
	GetDescribeTableTool(reg).Register(s)
}

// withClient runs fn against the pool the connection id routes to, with the
// session bookkeeping of state.RunWithSession. An empty id uses the default
// connection.
func withClient[T any](ctx context.Context, reg *state.Registry, connectionID string, timeout time.Duration, fn func(ctx context.Context, dbc *client.DBClient) (T, error)) (T, error) {
	return state.RunWithSession(ctx, reg, connectionID, func(ctx context.Context) (T, error) {
		dbc, err := reg.Resolve(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(ctx, dbc)
	})
}

// queryError passes routing failures through unchanged and labels everything
// else as a database error.
func queryError(err error) error {
	if state.KindOf(err) != 0 || errors.Is(err, state.ErrNoDefaultConnection) {
		return err
	}
	return fmt.Errorf("query execution error: %v", err)
}
