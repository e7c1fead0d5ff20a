package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// dataDirFunc resolves the data root logs live under. Set by
// SetDataDirResolver at process startup so this package doesn't import
// internal/config directly (config already depends on very little, but
// logging is lower in the dependency graph and both packages are part of
// the ambient stack the rest of the module builds on).
var dataDirFunc = defaultDataDir

// SetDataDirResolver overrides how DefaultLogDir locates the data root.
// cmd/opensrc-mcp calls this once at startup with config.DataDir.
func SetDataDirResolver(f func() string) {
	if f != nil {
		dataDirFunc = f
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "opensrc-mcp")
	}
	return filepath.Join(home, ".opensrc-mcp")
}

// DefaultLogDir returns the default log directory ($OPENSRC_DIR/logs).
func DefaultLogDir() string {
	return filepath.Join(dataDirFunc(), "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "opensrc-mcp.log")
}

// LogSource represents the source of logs to view.
type LogSource string

const (
	// LogSourceGo is the server's own logs (default, and currently only
	// source — the teacher's second MLX process has no equivalent here).
	LogSourceGo LogSource = "go"
	// LogSourceAll is an alias of LogSourceGo kept for CLI compatibility.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. $OPENSRC_DIR/logs/opensrc-mcp.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	// Try global path
	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Server may not have run with --debug yet.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	// Explicit path takes precedence
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	var paths []string
	var checked []string

	switch source {
	case LogSourceGo, LogSourceAll:
		goPath := DefaultLogPath()
		checked = append(checked, goPath)
		if _, err := os.Stat(goPath); err == nil {
			paths = append(paths, goPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: go, all)", source)
	}

	if len(paths) == 0 {
		hint := getLogHint(source)
		return nil, fmt.Errorf("no log files found for source '%s'.\nChecked: %v\n\n%s", source, checked, hint)
	}

	return paths, nil
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	switch s {
	case "all":
		return LogSourceAll
	default:
		return LogSourceGo
	}
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs for the given source.
func getLogHint(source LogSource) string {
	return "To generate logs:\n  opensrc-mcp serve"
}
