package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/logging"
	"github.com/dmmulroy/opensrc-mcp/internal/mcpserver"
)

// newServeCmd creates the serve command, the system's one long-running
// mode: open the manifest and vector store, resume any source that was
// fetched but never finished indexing, then block on the stdio MCP
// transport until the client disconnects.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Starts opensrc-mcp as a long-lived MCP server speaking line-delimited
JSON-RPC over stdin/stdout. Registers exactly one tool, execute, through
which an agent-authored script drives the opensrc query API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logging.SetDataDirResolver(func() string { return cfg.DataDir })

			// MCP protocol requires stdout to carry only the JSON-RPC
			// stream; route all logging to the log file instead.
			cleanup, err := logging.SetupMCPMode()
			if err != nil {
				return fmt.Errorf("setting up logging: %w", err)
			}
			defer cleanup()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("starting up: %w", err)
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Error("shutdown: closing app failed", slog.String("error", err.Error()))
				}
			}()

			a.enqueueUnindexed(ctx)

			srv := mcpserver.New(a.host, cfg, slog.Default())
			return srv.Serve(ctx, "stdio")
		},
	}

	return cmd
}
