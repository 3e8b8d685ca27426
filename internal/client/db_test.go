package client

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testFactory() *Factory {
	pool := DefaultPoolConfig()
	pool.ConnectTimeout = 2 * time.Second
	return NewFactory(pool, nil)
}

func TestFactoryBuildSQLite(t *testing.T) {
	f := testFactory()
	path := filepath.Join(t.TempDir(), "demo.db")

	c, err := f.Build(context.Background(), Target{Kind: SQLite, Database: path})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if c.Kind != SQLite {
		t.Errorf("Kind = %q, want %q", c.Kind, SQLite)
	}
	if c.Driver != "sqlite3" {
		t.Errorf("Driver = %q, want %q", c.Driver, "sqlite3")
	}
	if c.Label != path {
		t.Errorf("Label = %q, want %q", c.Label, path)
	}
	if got := c.DB.Stats().MaxOpenConnections; got != 5 {
		t.Errorf("MaxOpenConnections = %d, want 5", got)
	}

	ctx := context.Background()
	if _, err := c.Exec(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	n, err := c.Exec(ctx, "INSERT INTO items (name) VALUES (?), (?)", "a", "b")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Errorf("rows affected = %d, want 2", n)
	}

	rows, err := c.SelectMaps(ctx, "SELECT id, name FROM items ORDER BY id")
	if err != nil {
		t.Fatalf("SelectMaps: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1]["name"] != "b" {
		t.Errorf("rows[1][name] = %v, want %q", rows[1]["name"], "b")
	}

	limited, truncated, err := c.SelectMapsLimit(ctx, 1, "SELECT id, name FROM items ORDER BY id")
	if err != nil {
		t.Fatalf("SelectMapsLimit: %v", err)
	}
	if len(limited) != 1 || !truncated {
		t.Errorf("SelectMapsLimit(1) = %d rows, truncated=%v; want 1 row, truncated", len(limited), truncated)
	}
	_, truncated, err = c.SelectMapsLimit(ctx, 2, "SELECT id, name FROM items ORDER BY id")
	if err != nil || truncated {
		t.Errorf("SelectMapsLimit(2) truncated=%v err=%v, want all rows", truncated, err)
	}
}

func TestFactoryBuildRejectsBadPortBeforeDialing(t *testing.T) {
	f := testFactory()

	start := time.Now()
	_, err := f.Build(context.Background(), Target{
		Kind: Postgres, Host: "10.255.255.1", Port: 99999, Database: "demo", Username: "u", Password: "p",
	})
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("Build error = %v, want ErrInvalidTarget", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Build took %v, validation should not touch the network", time.Since(start))
	}
}

func TestFactoryBuildUnreachable(t *testing.T) {
	f := testFactory()

	_, err := f.Build(context.Background(), Target{
		Kind: Postgres, Host: "127.0.0.1", Port: 1, Database: "demo", Username: "u", Password: "p",
	})
	if err == nil {
		t.Fatal("Build should fail for an unreachable database")
	}
	if errors.Is(err, ErrInvalidTarget) {
		t.Errorf("connectivity failure reported as invalid target: %v", err)
	}
}

func TestFactoryBuildSQLiteMissingDirectory(t *testing.T) {
	f := testFactory()
	path := filepath.Join(t.TempDir(), "missing", "dir", "demo.db")

	_, err := f.Build(context.Background(), Target{Kind: SQLite, Database: path})
	if err == nil {
		t.Fatal("Build should fail when the database file cannot be created")
	}
}

func TestFactoryResolveNamedTarget(t *testing.T) {
	f := NewFactory(DefaultPoolConfig(), map[string]Target{
		"erp": {Kind: Oracle, Host: "ora", Port: 1521, Database: "ERP", UseServiceName: true, Username: "reader"},
	})

	got, err := f.Resolve(Target{Name: "erp", Password: "secret"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Kind != Oracle || got.Host != "ora" || !got.UseServiceName {
		t.Errorf("Resolve() = %+v, want the configured erp target", got)
	}
	if got.Username != "reader" {
		t.Errorf("Username = %q, want stored %q", got.Username, "reader")
	}
	if got.Password != "secret" {
		t.Errorf("Password = %q, want request %q", got.Password, "secret")
	}
	if got.Label() != "erp" {
		t.Errorf("Label() = %q, want %q", got.Label(), "erp")
	}

	if _, err := f.Resolve(Target{Name: "crm"}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Resolve(unknown) error = %v, want ErrInvalidTarget", err)
	}
}

func TestFactoryBuildWithNamedSQLiteTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "named.db")
	f := NewFactory(DefaultPoolConfig(), map[string]Target{
		"local": {Kind: SQLite, Database: path},
	})

	c, err := f.Build(context.Background(), Target{Name: "local"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if c.Label != "local" {
		t.Errorf("Label = %q, want %q", c.Label, "local")
	}
}
