package main

import (
	"fmt"
	"os"

	"github.com/AbdelilahOu/DBRouter/internal/config"
	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/AbdelilahOu/DBRouter/internal/server"
	"github.com/spf13/cobra"
)

var version = "v0.1.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "db-router",
	Short: "Dynamic database session registry and router",
	Long: `db-router opens database connection pools on request, hands back a session id,
and routes later queries to the pool that id names. Idle sessions expire on their own.
It is served to MCP clients over stdio or HTTP, or as a REST API.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", os.Getenv("DB_ROUTER_CONFIG"), "Path to config file (yaml or json)")
	rootCmd.PersistentFlags().BoolP("read-only", "r", false, "Enable read-only mode (SELECT only)")
	rootCmd.PersistentFlags().String("policy", "", "Session policy: reuse or single-use (overrides config)")
	rootCmd.PersistentFlags().String("addr", "", "Listen address for http and rest (overrides config)")

	// Subcommand: stdio (local transport, like IDE integration)
	stdioCmd := &cobra.Command{
		Use:   "stdio",
		Short: "Run over stdio transport (for local MCP clients)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, server.RunStdioServer)
		},
	}
	rootCmd.AddCommand(stdioCmd)

	// Subcommand: http (MCP streamable HTTP)
	httpCmd := &cobra.Command{
		Use:   "http",
		Short: "Run over HTTP transport (for remote MCP clients)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, server.RunHTTPServer)
		},
	}
	rootCmd.AddCommand(httpCmd)

	// Subcommand: rest (JSON API)
	restCmd := &cobra.Command{
		Use:   "rest",
		Short: "Serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, server.RunRESTServer)
		},
	}
	rootCmd.AddCommand(restCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
}

func runServer(cmd *cobra.Command, run func(server.ServerConfig) error) error {
	configPath, _ := cmd.Flags().GetString("config")
	readOnly, _ := cmd.Flags().GetBool("read-only")
	policy, _ := cmd.Flags().GetString("policy")
	addr, _ := cmd.Flags().GetString("addr")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Initialize(logger.ConfigFromLoggingConfig(cfg.Logging)); err != nil {
		return err
	}
	defer logger.Shutdown()

	if cfg.Path != "" {
		logger.Info("config loaded", map[string]interface{}{"path": cfg.Path, "connections": len(cfg.Connections)})
	}

	return run(server.ServerConfig{
		Version:  version,
		Config:   cfg,
		ReadOnly: readOnly,
		Policy:   policy,
		Addr:     addr,
	})
}
