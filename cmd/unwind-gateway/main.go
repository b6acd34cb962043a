// ABOUTME: Entry point for unwind-gateway, the tool layer behind the Unwind agents
// ABOUTME: Cobra commands to serve tools, mint dev tokens, check the schema, and list tools

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/unwind-gateway/internal/auth"
	"github.com/2389/unwind-gateway/internal/config"
	"github.com/2389/unwind-gateway/internal/store"
	"github.com/2389/unwind-gateway/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                 _           _
 _   _ _ ____      _(_)_ __   __| |
| | | | '_ \ \ /\ / / | '_ \ / _' |
| |_| | | | \ V  V /| | | | | (_| |
 \__,_|_| |_|\_/\_/ |_|_| |_|\__,_|
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "unwind-gateway",
		Short:         "Tenant-scoped data tools for the Unwind agents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (.yaml or .toml); defaults to $UNWIND_CONFIG, then SUPABASE_* environment variables")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newTokenCmd(load),
		newCheckSchemaCmd(load),
		newToolsCmd(),
	)
	return root
}

// loadConfig reads the file at path or $UNWIND_CONFIG, falling back to the environment.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("UNWIND_CONFIG")
	}
	if path == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("loading config from environment: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	var skipSchemaCheck bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over MCP until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			logger := setupLogger(out, cfg.Logging)

			printBanner(out, cfg)
			logger.Info("starting unwind-gateway",
				"version", version,
				"http_addr", cfg.Server.HTTPAddr,
				"max_conns", cfg.Database.MaxConns,
			)
			return runServer(cmd.Context(), cfg, logger, skipSchemaCheck)
		},
	}
	cmd.Flags().BoolVar(&skipSchemaCheck, "skip-schema-check", false, "start even if expected relations or columns are missing")
	return cmd
}

func printBanner(w io.Writer, cfg *config.Config) {
	color.New(color.FgCyan).Fprint(w, banner)
	color.New(color.FgHiBlack).Fprintf(w, "    version: %s\n\n", version)

	green := color.New(color.FgGreen)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Fprint(w, "    ▶ ")
	if cfg.Database.URL != "" {
		fmt.Fprintf(w, "Database:  (url)\n")
	} else {
		fmt.Fprintf(w, "Database:  %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	}
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Pool:      %d..%d conns, %s query timeout\n",
		cfg.Database.MinConns, cfg.Database.MaxConns, cfg.Database.QueryTimeout)
	if cfg.Metrics.Enabled {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "Metrics:   %s\n", cfg.Metrics.Path)
	}
	fmt.Fprintln(w)
}

func newTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		tenant string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a tenant (development and testing)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(tenant) == "" {
				return fmt.Errorf("--tenant is required")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(tenant, ttl)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant (user) id to place in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newCheckSchemaCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check-schema",
		Short: "Verify the database has every relation and column the tools use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := setupLogger(cmd.ErrOrStderr(), cfg.Logging)

			acc := store.New(cfg.PoolConfig(), logger)
			if err := acc.Init(cmd.Context()); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			defer acc.Close()

			out := cmd.OutOrStdout()
			if err := acc.VerifySchema(cmd.Context(), tools.ExpectedSchema); err != nil {
				color.New(color.FgRed).Fprintln(out, "✗ schema mismatch")
				for _, line := range strings.Split(err.Error(), "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				return fmt.Errorf("schema check failed")
			}
			color.New(color.FgGreen).Fprintf(out, "✓ %d relations match\n", len(tools.ExpectedSchema))
			return nil
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools and the agent capability each requires",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := newRegistry(nil, setupLogger(io.Discard, config.LoggingConfig{}))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tAGENT\tDESCRIPTION")
			for _, def := range registry.GetAllTools() {
				agent := "shared"
				if len(def.RequiredCapabilities) > 0 {
					agent = strings.Join(def.RequiredCapabilities, ",")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", def.Name, agent, def.Description)
			}
			return tw.Flush()
		},
	}
}
