package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
)

// newListCmd creates the list command, printing every tracked source.
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			sources := a.host.List()
			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sources tracked")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tVERSION\tFETCHED")
			for _, s := range sources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Type, s.Version, s.FetchedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	return cmd
}
