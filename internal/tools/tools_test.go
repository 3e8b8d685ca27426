package tools

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/config"
	"github.com/AbdelilahOu/DBRouter/internal/state"
	dbrouter "github.com/AbdelilahOu/DBRouter/pkg"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fixture struct {
	reg     *state.Registry
	factory *client.Factory
	dbPath  string
}

// newFixture builds a registry whose default route is a SQLite database with
// a small items table.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	pool := client.DefaultPoolConfig()
	pool.ConnectTimeout = 2 * time.Second
	factory := client.NewFactory(pool, map[string]client.Target{
		"scratch": {Kind: client.SQLite, Database: filepath.Join(dir, "scratch.db")},
	})

	def, err := factory.Build(context.Background(), client.Target{Kind: client.SQLite, Database: filepath.Join(dir, "default.db")})
	if err != nil {
		t.Fatalf("build default pool: %v", err)
	}
	t.Cleanup(func() { def.Close() })

	if _, err := def.Exec(context.Background(), "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, note TEXT DEFAULT 'none')"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if _, err := def.Exec(context.Background(), "INSERT INTO items (name) VALUES (?)", name); err != nil {
			t.Fatal(err)
		}
	}

	reg := state.NewRegistry(factory, state.Options{TTL: time.Hour, Default: def})
	t.Cleanup(func() { reg.RemoveAll() })

	return &fixture{reg: reg, factory: factory, dbPath: filepath.Join(dir, "session.db")}
}

func (f *fixture) connect(t *testing.T) string {
	t.Helper()
	_, out, err := connectDatabaseHandler(context.Background(), nil, dbrouter.ConnectRequest{DBType: "sqlite", Database: f.dbPath}, f.reg)
	if err != nil {
		t.Fatalf("connect_database failed: %v", err)
	}
	return out.ConnectionID
}

func TestConnectAndCloseTools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, out, err := connectDatabaseHandler(ctx, nil, dbrouter.ConnectRequest{DBType: "sqlite", Database: f.dbPath}, f.reg)
	if err != nil {
		t.Fatalf("connect_database failed: %v", err)
	}
	if out.ConnectionID == "" || out.ExpiresAt == "" {
		t.Fatalf("connect output = %+v", out)
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, `"connectionId":"`+out.ConnectionID+`"`) {
		t.Errorf("result text = %s", text)
	}

	_, sessions, err := GetListSessionsTool(f.reg).Handler(ctx, nil, ListSessionsInput{})
	if err != nil || sessions.Count != 1 || sessions.Connections[0].ConnectionID != out.ConnectionID {
		t.Fatalf("list_sessions = %+v, %v", sessions, err)
	}

	_, closed, err := closeConnectionHandler(ctx, nil, dbrouter.CloseRequest{ConnectionID: out.ConnectionID}, f.reg)
	if err != nil || closed.Status != "success" {
		t.Fatalf("close_connection = %+v, %v", closed, err)
	}

	// Closing again is not an error.
	if _, _, err := closeConnectionHandler(ctx, nil, dbrouter.CloseRequest{ConnectionID: out.ConnectionID}, f.reg); err != nil {
		t.Errorf("second close_connection failed: %v", err)
	}
	if f.reg.Len() != 0 {
		t.Errorf("registry has %d sessions after close", f.reg.Len())
	}
}

func TestConnectToolRejectsBadRequest(t *testing.T) {
	f := newFixture(t)

	tests := []dbrouter.ConnectRequest{
		{},
		{DBType: "db2", Host: "h", Port: 1, Database: "d"},
		{DBType: "postgres", Host: "h", Port: 70000, Database: "d", Username: "u"},
		{Target: "missing"},
	}
	for _, req := range tests {
		_, _, err := connectDatabaseHandler(context.Background(), nil, req, f.reg)
		if err == nil || !strings.Contains(err.Error(), "invalid datasource config") {
			t.Errorf("connect_database(%+v) error = %v, want invalid datasource config", req, err)
		}
	}
	if f.reg.Len() != 0 {
		t.Errorf("failed connects left %d sessions", f.reg.Len())
	}
}

func TestConnectToolNamedTarget(t *testing.T) {
	f := newFixture(t)

	_, out, err := connectDatabaseHandler(context.Background(), nil, dbrouter.ConnectRequest{Target: "scratch"}, f.reg)
	if err != nil {
		t.Fatalf("connect_database failed: %v", err)
	}
	sessions := f.reg.List()
	if len(sessions) != 1 || sessions[0].ID != out.ConnectionID {
		t.Fatalf("sessions = %+v, want only %s", sessions, out.ConnectionID)
	}
	if sessions[0].Label != "scratch" {
		t.Errorf("session label = %q, want %q", sessions[0].Label, "scratch")
	}
}

func TestCloseConnectionRejectsDefault(t *testing.T) {
	f := newFixture(t)
	if _, _, err := closeConnectionHandler(context.Background(), nil, dbrouter.CloseRequest{ConnectionID: state.DefaultKey}, f.reg); err == nil {
		t.Error("closing the default connection should fail")
	}
	if _, _, err := closeConnectionHandler(context.Background(), nil, dbrouter.CloseRequest{}, f.reg); err == nil {
		t.Error("closing without an id should fail")
	}
}

func TestCloseAllConnectionsTool(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.connect(t)

	_, out, err := GetCloseAllConnectionsTool(f.reg).Handler(context.Background(), nil, CloseAllInput{})
	if err != nil {
		t.Fatalf("close_all_connections failed: %v", err)
	}
	if out.ClosedCount != 2 || out.Status != "success" {
		t.Errorf("close_all_connections = %+v", out)
	}
	if f.reg.Default() == nil {
		t.Error("default connection removed by close_all_connections")
	}
}

func TestSelectQueryDefaultConnection(t *testing.T) {
	f := newFixture(t)

	_, out, err := selectQueryHandler(context.Background(), nil, SelectQueryInput{Query: "SELECT name FROM items ORDER BY id"}, f.reg)
	if err != nil {
		t.Fatalf("select_query failed: %v", err)
	}
	if len(out.Data) != 3 || out.Data[0]["name"] != "a" || out.Truncated {
		t.Errorf("select_query = %+v", out)
	}

	_, out, err = selectQueryHandler(context.Background(), nil, SelectQueryInput{Query: "SELECT name FROM items ORDER BY id", Limit: 2}, f.reg)
	if err != nil {
		t.Fatalf("select_query failed: %v", err)
	}
	if len(out.Data) != 2 || !out.Truncated {
		t.Errorf("limited select_query = %d rows, truncated=%v", len(out.Data), out.Truncated)
	}
}

func TestSelectQueryRoutesToSession(t *testing.T) {
	f := newFixture(t)
	id := f.connect(t)

	// The session database has no items table, so this proves the query did
	// not go to the default connection.
	_, _, err := selectQueryHandler(context.Background(), nil, SelectQueryInput{ConnectionID: id, Query: "SELECT * FROM items"}, f.reg)
	if err == nil || !strings.Contains(err.Error(), "query execution error") {
		t.Errorf("select_query on session error = %v, want missing table", err)
	}

	_, out, err := selectQueryHandler(context.Background(), nil, SelectQueryInput{ConnectionID: id, Query: "SELECT 7 AS n"}, f.reg)
	if err != nil {
		t.Fatalf("select_query failed: %v", err)
	}
	if len(out.Data) != 1 {
		t.Errorf("select_query = %+v", out)
	}
}

func TestSelectQueryErrors(t *testing.T) {
	f := newFixture(t)

	if _, _, err := selectQueryHandler(context.Background(), nil, SelectQueryInput{Query: "DELETE FROM items"}, f.reg); err == nil {
		t.Error("select_query accepted a DELETE")
	}

	_, _, err := selectQueryHandler(context.Background(), nil, SelectQueryInput{ConnectionID: "gone", Query: "SELECT 1"}, f.reg)
	if !errors.Is(err, state.ErrNotFound) {
		t.Errorf("select_query on unknown session error = %v, want ErrNotFound", err)
	}

	empty := state.NewRegistry(f.factory, state.Options{})
	_, _, err = selectQueryHandler(context.Background(), nil, SelectQueryInput{Query: "SELECT 1"}, empty)
	if !errors.Is(err, state.ErrNoDefaultConnection) {
		t.Errorf("select_query without default error = %v, want ErrNoDefaultConnection", err)
	}
}

func TestExecuteQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, out, err := executeQueryHandler(ctx, nil, ExecuteQueryInput{Query: "UPDATE items SET name = 'z' WHERE id <= 2"}, f.reg)
	if err != nil {
		t.Fatalf("execute_query failed: %v", err)
	}
	if out.RowsAffected != 2 || !strings.HasPrefix(out.Message, "UPDATE") {
		t.Errorf("execute_query = %+v", out)
	}

	for _, q := range []string{"SELECT 1", "TRUNCATE TABLE items", "drop database x"} {
		if _, _, err := executeQueryHandler(ctx, nil, ExecuteQueryInput{Query: q}, f.reg); err == nil {
			t.Errorf("execute_query(%q) should fail", q)
		}
	}
}

func TestCatalogTools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, info, err := getDBInfoHandler(ctx, nil, GetDBInfoInput{}, f.reg)
	if err != nil {
		t.Fatalf("get_db_info failed: %v", err)
	}
	if info.DatabaseType != "sqlite" || info.TableCount != 1 || !strings.HasPrefix(info.Version, "SQLite ") {
		t.Errorf("get_db_info = %+v", info)
	}

	_, tables, err := listTablesHandler(ctx, nil, ListTablesInput{}, f.reg)
	if err != nil {
		t.Fatalf("list_tables failed: %v", err)
	}
	if len(tables.Tables) != 1 || tables.Tables[0] != (TableInfo{Name: "items", Schema: "main", Type: "table"}) {
		t.Errorf("list_tables = %+v", tables.Tables)
	}

	_, described, err := describeTableHandler(ctx, nil, DescribeTableInput{TableName: "items"}, f.reg)
	if err != nil {
		t.Fatalf("describe_table failed: %v", err)
	}
	want := []ColumnInfo{
		{Name: "id", DataType: "INTEGER", IsNullable: true},
		{Name: "name", DataType: "TEXT", IsNullable: false},
		{Name: "note", DataType: "TEXT", IsNullable: true, DefaultValue: "'none'"},
	}
	if len(described.Columns) != len(want) {
		t.Fatalf("describe_table = %+v", described.Columns)
	}
	for i := range want {
		if described.Columns[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, described.Columns[i], want[i])
		}
	}

	if _, _, err := describeTableHandler(ctx, nil, DescribeTableInput{TableName: "nope"}, f.reg); err == nil {
		t.Error("describe_table on a missing table should fail")
	}
}

func TestTestConnectionTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, out, err := testConnectionHandler(ctx, nil, TestConnectionInput{}, f.reg, f.factory)
	if err != nil || !out.Success || out.Connection != state.DefaultKey {
		t.Errorf("test_connection default = %+v, %v", out, err)
	}

	_, out, err = testConnectionHandler(ctx, nil, TestConnectionInput{Target: "scratch"}, f.reg, f.factory)
	if err != nil || !out.Success {
		t.Errorf("test_connection target = %+v, %v", out, err)
	}
	if f.reg.Len() != 0 {
		t.Error("testing a target must not open a session")
	}

	_, out, err = testConnectionHandler(ctx, nil, TestConnectionInput{ConnectionID: "gone"}, f.reg, f.factory)
	if err != nil || out.Success {
		t.Errorf("test_connection unknown session = %+v, %v", out, err)
	}
}

func TestListConnectionsTool(t *testing.T) {
	cfg := &config.Config{
		Connections: map[string]config.Connection{
			"zeta":  {Name: "zeta", Type: "mysql", Host: "m", Database: "z"},
			"alpha": {Name: "alpha", Type: "postgres", Host: "p", Database: "a", Description: "primary"},
		},
		DefaultConnection: "alpha",
	}

	res, out, err := listConnectionsHandler(context.Background(), nil, ListConnectionsInput{}, cfg)
	if err != nil {
		t.Fatalf("list_connections failed: %v", err)
	}
	if len(out.Connections) != 2 || out.Connections[0].Name != "alpha" || out.DefaultConnection != "alpha" {
		t.Errorf("list_connections = %+v", out)
	}

	var decoded ListConnectionsOutput
	if err := json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &decoded); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}

	if _, _, err := listConnectionsHandler(context.Background(), nil, ListConnectionsInput{}, nil); err == nil {
		t.Error("list_connections without config should fail")
	}
}

func TestRegisterTools(t *testing.T) {
	f := newFixture(t)
	s := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v0.0.0"}, nil)

	RegisterTools(s, f.reg, f.factory, &config.Config{}, true)
	RegisterTools(s, f.reg, f.factory, &config.Config{}, false)
}
