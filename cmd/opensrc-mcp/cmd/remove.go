package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
)

// newRemoveCmd creates the remove command.
func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <name...>",
		Short: "Remove tracked sources by name",
		Args:  cobra.MinimumNArgs(1),
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

			result, err := a.host.Remove(args)
			if err != nil {
				return err
			}

			for _, name := range result.Removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
			}
			return nil
		},
	}

	return cmd
}
