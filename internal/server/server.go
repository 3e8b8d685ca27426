package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/config"
	"github.com/AbdelilahOu/DBRouter/internal/httpapi"
	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/AbdelilahOu/DBRouter/internal/state"
	"github.com/AbdelilahOu/DBRouter/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const shutdownTimeout = 10 * time.Second

type ServerConfig struct {
	Version  string
	Config   *config.Config
	ReadOnly bool
	Policy   string // overrides session.policy when set
	Addr     string // overrides the configured listen address when set
}

// App is the wired core: factory, optional default pool, registry and sweeper.
type App struct {
	Config   *config.Config
	Factory  *client.Factory
	Registry *state.Registry
	Sweeper  *state.Sweeper
	ReadOnly bool

	defaultClient *client.DBClient
}

// NewApp builds the registry from config. When a default connection is
// configured its pool is opened here, so a bad default fails startup.
func NewApp(ctx context.Context, cfg ServerConfig) (*App, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	c := cfg.Config

	policyName := c.Session.Policy
	if cfg.Policy != "" {
		policyName = cfg.Policy
	}
	policy, err := state.ParsePolicy(policyName)
	if err != nil {
		return nil, err
	}

	factory, err := c.NewFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection factory: %w", err)
	}

	var def *client.DBClient
	if c.DefaultConnection != "" {
		def, err = factory.Build(ctx, client.Target{Name: c.DefaultConnection})
		if err != nil {
			logger.LogConnectionEvent("connect", c.DefaultConnection, "", err)
			return nil, fmt.Errorf("failed to initialize connection '%s': %w", c.DefaultConnection, err)
		}
		logger.LogConnectionEvent("connect", c.DefaultConnection, string(def.Kind), nil)
	}

	registry := state.NewRegistry(factory, state.Options{
		TTL:     c.Session.TTL.Std(),
		Policy:  policy,
		Default: def,
	})

	return &App{
		Config:        c,
		Factory:       factory,
		Registry:      registry,
		Sweeper:       state.NewSweeper(registry, c.Session.SweepInterval.Std(), logger.Slog()),
		ReadOnly:      cfg.ReadOnly,
		defaultClient: def,
	}, nil
}

// Start begins expiring idle sessions.
func (a *App) Start(ctx context.Context) {
	a.Sweeper.Start(ctx)
	logger.Info("session registry started", map[string]interface{}{
		"ttl":            a.Registry.TTL().String(),
		"policy":         string(a.Registry.Policy()),
		"default":        a.Config.DefaultConnection,
		"sweep_interval": a.Config.Session.SweepInterval.String(),
	})
}

// Shutdown stops the sweeper, closes every session and then the default pool.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Sweeper.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop sweeper: %w", err))
	}
	n := a.Registry.RemoveAll()
	if a.defaultClient != nil {
		if err := a.defaultClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close default connection: %w", err))
		}
	}
	logger.Info("session registry stopped", map[string]interface{}{"closed_sessions": n})
	return errors.Join(errs...)
}

func (a *App) NewMCPServer(version string) *mcp.Server {
	impl := &mcp.Implementation{Name: "db-router", Version: version}
	server := mcp.NewServer(impl, nil)
	tools.RegisterTools(server, a.Registry, a.Factory, a.Config, a.ReadOnly)
	return server
}

// run wires the app, hands it to serve, and tears it down once serve returns.
func run(cfg ServerConfig, serve func(ctx context.Context, app *App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	app.Start(ctx)

	serveErr := serve(ctx, app)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", err)
	}
	return serveErr
}

func RunStdioServer(cfg ServerConfig) error {
	return run(cfg, func(ctx context.Context, app *App) error {
		server := app.NewMCPServer(cfg.Version)
		logger.Info("MCP server running on stdio", map[string]interface{}{"read_only": cfg.ReadOnly})
		return server.Run(ctx, &mcp.StdioTransport{})
	})
}

func RunHTTPServer(cfg ServerConfig) error {
	return run(cfg, func(ctx context.Context, app *App) error {
		server := app.NewMCPServer(cfg.Version)
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)

		addr := cfg.Addr
		if addr == "" {
			addr = app.Config.Server.HTTPAddr
		}
		logger.Info("MCP server running on HTTP", map[string]interface{}{"addr": addr, "read_only": cfg.ReadOnly})
		return listenAndServe(ctx, &http.Server{Addr: addr, Handler: handler})
	})
}

func RunRESTServer(cfg ServerConfig) error {
	return run(cfg, func(ctx context.Context, app *App) error {
		router := httpapi.NewHandler(app.Registry, logger.Slog()).Router()

		addr := cfg.Addr
		if addr == "" {
			addr = app.Config.Server.RESTAddr
		}
		logger.Info("REST API running", map[string]interface{}{"addr": addr})
		return listenAndServe(ctx, &http.Server{Addr: addr, Handler: router})
	})
}

// listenAndServe serves until ctx is done, then shuts the server down.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
