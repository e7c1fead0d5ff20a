package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/embed"
	"github.com/dmmulroy/opensrc-mcp/internal/fetch"
	"github.com/dmmulroy/opensrc-mcp/internal/fileaccess"
	"github.com/dmmulroy/opensrc-mcp/internal/index"
	"github.com/dmmulroy/opensrc-mcp/internal/logging"
	"github.com/dmmulroy/opensrc-mcp/internal/mcpserver"
	"github.com/dmmulroy/opensrc-mcp/internal/query"
	"github.com/dmmulroy/opensrc-mcp/internal/source"
	"github.com/dmmulroy/opensrc-mcp/internal/vectorstore"
)

// app is the fully-wired set of long-lived components every subcommand
// operates on. Built once per invocation by newApp.
type app struct {
	cfg      *config.Config
	registry *source.Registry
	store    *vectorstore.SQLiteStore
	engine   *index.Engine
	host     *mcpserver.Host
}

// newApp takes an already-loaded config, loads the source manifest, opens
// the vector store, and wires the Host every subcommand drives. Callers
// must call Close when done.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logging.SetDataDirResolver(func() string { return cfg.DataDir })

	manifestPath := filepath.Join(cfg.DataDir, "sources.json")
	registry := source.New(cfg.DataDir, manifestPath)
	if err := registry.Load(); err != nil {
		return nil, fmt.Errorf("loading source manifest: %w", err)
	}

	store := vectorstore.New(filepath.Join(cfg.DataDir, "vector.db"))
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	files := fileaccess.New(registry)
	embedder := embed.New(ctx, cfg.Embedder.Endpoint, cfg.Embedder.Model)
	engine := index.New(files, chunk.NewDispatcher(), embedder, store, cfg.Index.MaxConcurrentIndex, cfg.Index.BatchSize)
	planner := query.New(files, files, embedder, store, engine)
	fetcher := fetch.NewDefaultFetcher(cfg.DataDir, registry)

	host := mcpserver.NewHost(registry, fetcher, files, planner, engine, store, slog.Default())

	return &app{cfg: cfg, registry: registry, store: store, engine: engine, host: host}, nil
}

// enqueueUnindexed re-queues every tracked source the persisted vector
// store doesn't yet have indexed — the recovery path for a process that
// fetched sources in a previous run but never finished embedding them.
func (a *app) enqueueUnindexed(ctx context.Context) {
	for _, s := range a.registry.List() {
		indexed, err := a.store.IsIndexed(ctx, s.Name)
		if err != nil {
			slog.Warn("startup: checking index status failed", slog.String("source", s.Name), slog.String("error", err.Error()))
			continue
		}
		if indexed {
			continue
		}
		if err := a.engine.Enqueue(ctx, s.Name); err != nil {
			slog.Warn("startup: enqueue failed", slog.String("source", s.Name), slog.String("error", err.Error()))
		}
	}
}

// Close flushes and closes the vector store. The registry has no
// in-memory state beyond what Put/Remove already persisted, so it needs
// no explicit shutdown step.
func (a *app) Close() error {
	ctx := context.Background()
	if err := a.store.Finalize(ctx); err != nil {
		slog.Warn("shutdown: finalizing vector store failed", slog.String("error", err.Error()))
	}
	return a.store.Close()
}
