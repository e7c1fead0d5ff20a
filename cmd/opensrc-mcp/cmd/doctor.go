package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/embed"
	"github.com/dmmulroy/opensrc-mcp/internal/vectorstore"
)

// doctorCheck is one independently-reported preflight probe.
type doctorCheck struct {
	name string
	pass bool
	note string
}

// newDoctorCmd creates the doctor command: a preflight sweep run before
// trusting `serve` on a new host, checking the things that fail in ways an
// agent can't recover from mid-session (a missing sqlite-vec extension, an
// unwritable data dir, an unreachable embedder).
func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this host can run opensrc-mcp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			checks := []doctorCheck{
				checkDataDirWritable(cfg),
				checkVectorStore(ctx, cfg),
				checkEmbedder(ctx, cfg),
			}

			out := cmd.OutOrStdout()
			failed := false
			for _, c := range checks {
				status := "ok"
				if !c.pass {
					status = "FAIL"
					failed = true
				}
				fmt.Fprintf(out, "[%s] %s: %s\n", status, c.name, c.note)
			}

			if failed {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}

	return cmd
}

// checkDataDirWritable confirms cfg.DataDir exists (creating it if needed)
// and accepts a file write.
func checkDataDirWritable(cfg *config.Config) doctorCheck {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return doctorCheck{"data directory", false, fmt.Sprintf("cannot create %s: %s", cfg.DataDir, err)}
	}
	probe := filepath.Join(cfg.DataDir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return doctorCheck{"data directory", false, fmt.Sprintf("%s is not writable: %s", cfg.DataDir, err)}
	}
	_ = os.Remove(probe)
	return doctorCheck{"data directory", true, cfg.DataDir}
}

// checkVectorStore opens a throwaway sqlite-vec database in the configured
// data dir, which is the only reliable way to confirm the extension loads
// on this platform/architecture before the server commits to it.
func checkVectorStore(ctx context.Context, cfg *config.Config) doctorCheck {
	path := filepath.Join(cfg.DataDir, ".doctor-probe.db")
	defer os.Remove(path)

	store := vectorstore.New(path)
	if err := store.Init(ctx); err != nil {
		return doctorCheck{"sqlite-vec extension", false, err.Error()}
	}
	_ = store.Close()
	return doctorCheck{"sqlite-vec extension", true, "loads and opens"}
}

// checkEmbedder probes the configured Ollama endpoint without requiring
// it: a down embedder degrades semantic search to the static fallback
// rather than failing serve, so this check is informational, not fatal.
func checkEmbedder(ctx context.Context, cfg *config.Config) doctorCheck {
	ollama := embed.NewOllamaEmbedder(cfg.Embedder.Endpoint, cfg.Embedder.Model)
	if ollama.Available(ctx) {
		return doctorCheck{"embedder", true, fmt.Sprintf("ollama reachable at %s", cfg.Embedder.Endpoint)}
	}
	return doctorCheck{"embedder", true, fmt.Sprintf("ollama unreachable at %s, semantic search will use the static fallback", cfg.Embedder.Endpoint)}
}
