package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/config"
	"github.com/AbdelilahOu/DBRouter/internal/state"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Connections: map[string]config.Connection{
			"local": {Name: "local", Type: "sqlite", Database: filepath.Join(t.TempDir(), "local.db")},
		},
		DefaultConnection: "local",
		Pool: config.PoolConfig{
			MaxSize:        2,
			ConnectTimeout: config.Duration(2 * time.Second),
		},
		Session: config.SessionConfig{
			TTL:           config.Duration(time.Minute),
			SweepInterval: config.Duration(time.Hour),
			Policy:        "reuse",
		},
	}
}

func TestNewAppWithDefaultConnection(t *testing.T) {
	app, err := NewApp(context.Background(), ServerConfig{Config: sqliteConfig(t), Policy: "single-use"})
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	def := app.Registry.Default()
	if def == nil || def.Kind != client.SQLite || def.Label != "local" {
		t.Fatalf("default client = %+v", def)
	}
	if app.Registry.Policy() != state.PolicySingleUse {
		t.Errorf("Policy = %q, want the flag override", app.Registry.Policy())
	}
	if app.Registry.TTL() != time.Minute {
		t.Errorf("TTL = %v", app.Registry.TTL())
	}
	if app.NewMCPServer("test") == nil {
		t.Error("NewMCPServer returned nil")
	}

	app.Start(context.Background())
	if _, err := app.Registry.Connect(context.Background(), client.Target{Kind: client.SQLite, Database: filepath.Join(t.TempDir(), "s.db")}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if app.Registry.Len() != 0 {
		t.Errorf("%d sessions left after shutdown", app.Registry.Len())
	}
	if err := def.DB.Ping(); err == nil {
		t.Error("default pool still open after shutdown")
	}
}

func TestNewAppWithoutDefaultConnection(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DefaultConnection = ""

	app, err := NewApp(context.Background(), ServerConfig{Config: cfg})
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Registry.Default() != nil {
		t.Error("default pool built without default_connection")
	}
	if _, err := app.Registry.Resolve(context.Background()); !errors.Is(err, state.ErrNoDefaultConnection) {
		t.Errorf("Resolve error = %v, want ErrNoDefaultConnection", err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNewAppErrors(t *testing.T) {
	if _, err := NewApp(context.Background(), ServerConfig{}); err == nil {
		t.Error("NewApp without config should fail")
	}

	cfg := sqliteConfig(t)
	if _, err := NewApp(context.Background(), ServerConfig{Config: cfg, Policy: "sometimes"}); err == nil {
		t.Error("NewApp with unknown policy should fail")
	}

	cfg = sqliteConfig(t)
	cfg.Connections["local"] = config.Connection{Name: "local", Type: "sqlite", Database: filepath.Join(t.TempDir(), "missing", "x.db")}
	_, err := NewApp(context.Background(), ServerConfig{Config: cfg})
	if err == nil || !strings.Contains(err.Error(), "failed to initialize connection 'local'") {
		t.Errorf("NewApp with unreachable default error = %v", err)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- listenAndServe(ctx, &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("listenAndServe returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listenAndServe did not return after cancel")
	}
}
