package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/sandbox"
)

// newCleanCmd creates the clean command: remove a whole category of
// tracked sources at once, mirroring opensrc.clean() in the sandbox API.
func newCleanCmd() *cobra.Command {
	var packages, repos, npm, pypi, crates bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove tracked sources by category",
		Long: `Removes every source matching the selected categories from the
registry, disk, and vector store. At least one category flag is
required; none of them default to "everything".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !packages && !repos && !npm && !pypi && !crates {
				return fmt.Errorf("at least one of --packages, --repos, --npm, --pypi, --crates is required")
			}

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

			result, err := a.host.Clean(sandbox.CleanOptions{
				Packages: packages,
				Repos:    repos,
				NPM:      npm,
				PyPI:     pypi,
				Crates:   crates,
			})
			if err != nil {
				return err
			}

			if len(result.Removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing matched")
				return nil
			}
			for _, name := range result.Removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&packages, "packages", false, "Remove every npm/pypi/crates source")
	cmd.Flags().BoolVar(&repos, "repos", false, "Remove every git repository source")
	cmd.Flags().BoolVar(&npm, "npm", false, "Remove every npm source")
	cmd.Flags().BoolVar(&pypi, "pypi", false, "Remove every PyPI source")
	cmd.Flags().BoolVar(&crates, "crates", false, "Remove every crates.io source")

	return cmd
}
