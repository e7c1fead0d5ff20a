// Package cmd provides the CLI commands for opensrc-mcp.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/logging"
	"github.com/dmmulroy/opensrc-mcp/internal/profiling"
	"github.com/dmmulroy/opensrc-mcp/pkg/version"
)

var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

var (
	debugMode      bool
	loggingCleanup func()
)

// configPath is the optional YAML config file path, shared by every
// subcommand that calls config.Load.
var configPath string

// NewRootCmd creates the root command for the opensrc-mcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opensrc-mcp",
		Short: "MCP server for fetching and querying third-party source code",
		Long: `opensrc-mcp lets an agent fetch packages and repositories, then
query them with lexical grep, AST structural matching, and semantic
search — all driven by a single sandboxed "execute" MCP tool.

Run 'opensrc-mcp serve' to start the server over stdio.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("opensrc-mcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to $OPENSRC_DIR/logs/")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (overrides compiled-in defaults, overridden by env vars)")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts CPU profiling and debug logging if flags
// are set, mirroring the teacher's pre-run hook shape.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error

	if debugMode {
		if cfg, cfgErr := config.Load(configPath); cfgErr == nil {
			logging.SetDataDirResolver(func() string { return cfg.DataDir })
		}
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
	}

	return nil
}

// stopProfilingAndLogging stops profiling and logging started above.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
