package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/logging"
)

// newLogsCmd creates the logs command: tail the JSON log file serve
// writes to, since stdout is reserved for the JSON-RPC stream and can
// never carry diagnostics itself.
func newLogsCmd() *cobra.Command {
	var n int
	var level string
	var noColor bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent server log entries",
		Long: `Reads opensrc-mcp's JSON log file and prints the most recent entries in
a human-readable form. Use --level to filter by severity.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logging.SetDataDirResolver(func() string { return cfg.DataDir })

			path, err := logging.FindLogFile("")
			if err != nil {
				return err
			}

			v := logging.NewViewer(logging.ViewerConfig{
				Level:   level,
				NoColor: noColor,
			}, cmd.OutOrStdout())

			entries, err := v.Tail(path, n)
			if err != nil {
				return fmt.Errorf("reading log file: %w", err)
			}
			v.Print(entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "lines", 100, "Number of recent entries to show")
	cmd.Flags().StringVar(&level, "level", "", "Filter by level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")

	return cmd
}
