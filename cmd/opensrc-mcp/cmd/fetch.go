package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/sandbox"
)

// newFetchCmd creates the fetch command: a thin CLI front door onto the
// same Host.Fetch an agent script reaches through opensrc.fetch(specs).
// Mainly useful for pre-warming a source outside of a sandbox run, or for
// scripting against opensrc-mcp without an MCP client at all.
func newFetchCmd() *cobra.Command {
	var modify bool

	cmd := &cobra.Command{
		Use:   "fetch <spec...>",
		Short: "Fetch one or more packages or repositories",
		Long: `Fetch downloads or clones each spec (e.g. npm:left-pad@1.3.0,
github:golang/go@go1.22.0) into the data directory and queues it for
indexing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("starting up: %w", err)
			}
			defer a.Close()

			results, err := a.host.Fetch(ctx, args, sandbox.FetchOptions{Modify: modify})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != "" {
					fmt.Fprintf(out, "%s: error: %s\n", r.Name, r.Err)
					continue
				}
				status := "fetched"
				if r.AlreadyExisted {
					status = "already tracked"
				}
				fmt.Fprintf(out, "%s: %s (%s)\n", r.Name, status, r.Path)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&modify, "modify", false, "Allow re-fetching a source already tracked at a different version")

	return cmd
}
