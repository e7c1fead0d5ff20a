package config

import (
	"os"
	"path/filepath"
)

// DataDir resolves the root directory opensrc-mcp persists state under,
// following $OPENSRC_DIR, then XDG_DATA_HOME/opensrc, then
// ~/.local/share/opensrc, matching the teacher's DefaultLogDir fallback
// idiom (never error out of directory resolution; degrade to a sane
// default instead).
func DataDir() string {
	if dir := os.Getenv("OPENSRC_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "opensrc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "share", "opensrc")
}

// SourcesManifestPath returns the path to sources.json under dataDir.
func SourcesManifestPath(dataDir string) string {
	return filepath.Join(dataDir, "sources.json")
}

// VectorDBPath returns the path to the vector store file under dataDir.
func VectorDBPath(dataDir string) string {
	return filepath.Join(dataDir, "vector.db")
}

// PackagesDir returns the root directory for extracted registry packages.
func PackagesDir(dataDir string) string {
	return filepath.Join(dataDir, "packages")
}

// ReposDir returns the root directory for cloned git repositories.
func ReposDir(dataDir string) string {
	return filepath.Join(dataDir, "repos")
}

// LogPath returns the path to the server's JSON log file.
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "opensrc-mcp.log")
}
