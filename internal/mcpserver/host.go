// Package mcpserver wires the rest of the module — SourceRegistry,
// FileAccess, QueryPlanner, IndexEngine, Fetcher — into the sandbox.API
// surface and exposes it over MCP as the single `execute` tool.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dmmulroy/opensrc-mcp/internal/fetch"
	"github.com/dmmulroy/opensrc-mcp/internal/fileaccess"
	"github.com/dmmulroy/opensrc-mcp/internal/index"
	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
	"github.com/dmmulroy/opensrc-mcp/internal/query"
	"github.com/dmmulroy/opensrc-mcp/internal/sandbox"
	"github.com/dmmulroy/opensrc-mcp/internal/source"
)

// VectorCleaner is the narrow vectorstore.Store surface Host needs to drop
// a source's chunks when it is removed or cleaned.
type VectorCleaner interface {
	DeleteSource(ctx context.Context, source string) error
}

// Host implements sandbox.API by translating between the sandbox's local
// DTOs and the concrete types of every other package: source.Registry for
// list/has/get/resolve, fileaccess.FileAccess for files/tree/read/readMany,
// query.Planner for grep/astGrep/semanticSearch, fetch.DefaultFetcher (plus
// the registry) for fetch, and the registry/vector store together for
// remove/clean.
type Host struct {
	registry *source.Registry
	fetcher  *fetch.DefaultFetcher
	files    *fileaccess.FileAccess
	planner  *query.Planner
	engine   *index.Engine
	vectors  VectorCleaner
	logger   *slog.Logger
}

// NewHost builds a Host. logger defaults to slog.Default() if nil.
func NewHost(registry *source.Registry, fetcher *fetch.DefaultFetcher, files *fileaccess.FileAccess, planner *query.Planner, engine *index.Engine, vectors VectorCleaner, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		registry: registry,
		fetcher:  fetcher,
		files:    files,
		planner:  planner,
		engine:   engine,
		vectors:  vectors,
		logger:   logger,
	}
}

func toSandboxSource(s source.Source) sandbox.Source {
	return sandbox.Source{
		Type:      string(s.Type),
		Name:      s.Name,
		Version:   s.Version,
		Path:      s.Path,
		FetchedAt: s.FetchedAt,
	}
}

func (h *Host) List() []sandbox.Source {
	sources := h.registry.List()
	out := make([]sandbox.Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, toSandboxSource(s))
	}
	return out
}

func (h *Host) Has(name, version string) bool {
	return h.registry.Has(name, version)
}

func (h *Host) Get(name string) (sandbox.Source, bool) {
	s, ok := h.registry.Get(name)
	if !ok {
		return sandbox.Source{}, false
	}
	return toSandboxSource(s), true
}

func (h *Host) Files(ctx context.Context, src, glob string) ([]sandbox.FileEntry, error) {
	paths, err := h.files.Files(ctx, src, glob)
	if err != nil {
		return nil, err
	}

	root, err := h.registry.ResolvePath(src)
	if err != nil {
		return nil, err
	}

	out := make([]sandbox.FileEntry, 0, len(paths))
	for _, p := range paths {
		info, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(p)))
		size := int64(0)
		if statErr == nil {
			size = info.Size()
		}
		out = append(out, sandbox.FileEntry{Path: p, Size: size, IsDirectory: false})
	}
	return out, nil
}

func (h *Host) Tree(ctx context.Context, src string, depth int, pattern string) (sandbox.TreeNode, error) {
	paths, err := h.files.Files(ctx, src, pattern)
	if err != nil {
		return sandbox.TreeNode{}, err
	}
	return buildTree(paths, depth), nil
}

func (h *Host) Read(ctx context.Context, src, path string) (string, error) {
	return h.files.Read(ctx, src, path)
}

func (h *Host) ReadMany(ctx context.Context, src string, paths []string) (map[string]string, error) {
	return h.files.ReadMany(ctx, src, paths)
}

func (h *Host) Grep(ctx context.Context, pattern string, opts sandbox.GrepOptions) ([]sandbox.GrepMatch, error) {
	matches, err := h.planner.Grep(ctx, pattern, query.GrepOptions{
		Sources:    opts.Sources,
		Include:    opts.Include,
		MaxResults: opts.MaxResults,
	})
	if err != nil {
		return nil, err
	}
	out := make([]sandbox.GrepMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, sandbox.GrepMatch{Source: m.Source, File: m.File, Line: m.Line, Content: m.Content})
	}
	return out, nil
}

func (h *Host) AstGrep(ctx context.Context, src, pattern string, opts sandbox.AstGrepOptions) ([]sandbox.AstMatch, error) {
	matches, err := h.planner.AstGrep(ctx, src, pattern, query.AstGrepOptions{
		Glob:  opts.Glob,
		Lang:  opts.Lang,
		Limit: opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]sandbox.AstMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, sandbox.AstMatch{
			File:      m.File,
			Line:      m.Line,
			Column:    m.Column,
			EndLine:   m.EndLine,
			EndColumn: m.EndColumn,
			Text:      m.Text,
			Metavars:  m.Metavars,
		})
	}
	return out, nil
}

func (h *Host) SemanticSearch(ctx context.Context, q string, opts sandbox.SearchOptions) (sandbox.SemanticSearchOutcome, error) {
	results, status, err := h.planner.SemanticSearch(ctx, q, query.SemanticSearchOptions{
		Sources: opts.Sources,
		TopK:    opts.TopK,
	})
	if err != nil {
		return sandbox.SemanticSearchOutcome{}, err
	}
	if status != nil {
		return sandbox.SemanticSearchOutcome{Status: status.Reason, Sources: status.Sources}, nil
	}

	out := make([]sandbox.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, sandbox.SearchResult{
			Source:     r.Source,
			File:       r.File,
			Identifier: r.Identifier,
			Kind:       string(r.Kind),
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
			Content:    r.Content,
			Score:      r.Score,
		})
	}
	return sandbox.SemanticSearchOutcome{Results: out}, nil
}

func (h *Host) Resolve(spec string) (sandbox.ParsedSpec, error) {
	parsed, err := source.ParseSpec(spec)
	if err != nil {
		return sandbox.ParsedSpec{}, err
	}
	return sandbox.ParsedSpec{
		Type:    string(parsed.Type),
		Name:    parsed.Name,
		Version: parsed.Version,
		Host:    parsed.Host,
	}, nil
}

// Fetch resolves and downloads/clones each spec, registering every newly
// fetched source and enqueueing it for indexing. A source already tracked
// at a different version is left untouched unless opts.Modify is set — the
// specification's fetch(specs, {modify?}) contract.
func (h *Host) Fetch(ctx context.Context, specs []string, opts sandbox.FetchOptions) ([]sandbox.FetchedSource, error) {
	out := make([]sandbox.FetchedSource, 0, len(specs))

	for _, spec := range specs {
		parsed, err := source.ParseSpec(spec)
		if err != nil {
			out = append(out, sandbox.FetchedSource{Name: spec, Err: err.Error()})
			continue
		}
		name := parsed.SourceName()

		if existing, ok := h.registry.Get(name); ok {
			if existing.Version == parsed.Version || parsed.Version == "" {
				out = append(out, sandbox.FetchedSource{Name: name, Path: existing.Path, AlreadyExisted: true})
				continue
			}
			if !opts.Modify {
				out = append(out, sandbox.FetchedSource{
					Name: name, Path: existing.Path, AlreadyExisted: true,
					Err: fmt.Sprintf("already tracked at version %q; pass modify to refetch", existing.Version),
				})
				continue
			}
		}

		src, existed, err := h.fetcher.FetchOne(ctx, spec)
		if err != nil {
			out = append(out, sandbox.FetchedSource{Name: name, Err: err.Error()})
			continue
		}
		if !existed {
			if err := h.registry.Put(src); err != nil {
				out = append(out, sandbox.FetchedSource{Name: name, Err: err.Error()})
				continue
			}
			if err := h.engine.Enqueue(ctx, src.Name); err != nil {
				h.logger.Warn("enqueue after fetch failed",
					slog.String("source", src.Name), slog.String("error", err.Error()))
			}
		}
		out = append(out, sandbox.FetchedSource{Name: src.Name, Path: src.Path, AlreadyExisted: existed})
	}

	return out, nil
}

// Remove deletes the named sources from the registry, their on-disk
// directories, and their vector store rows. Unlike source.Registry.Remove
// this is not a pure manifest edit: it is the orchestration point the
// specification's remove(names) verb actually needs.
func (h *Host) Remove(names []string) (sandbox.RemoveResult, error) {
	ctx := context.Background()

	for _, name := range names {
		if path, err := h.registry.ResolvePath(name); err == nil {
			if err := os.RemoveAll(path); err != nil {
				h.logger.Warn("remove: on-disk cleanup failed",
					slog.String("source", name), slog.String("error", err.Error()))
			}
		}
		if err := h.vectors.DeleteSource(ctx, name); err != nil {
			h.logger.Warn("remove: vector store cleanup failed",
				slog.String("source", name), slog.String("error", err.Error()))
		}
	}

	removed, err := h.registry.Remove(names)
	if err != nil {
		return sandbox.RemoveResult{}, opensrcerr.Wrap(opensrcerr.KindInternal, "mcpserver.Remove", err)
	}
	return sandbox.RemoveResult{Success: true, Removed: removed}, nil
}

// Clean resolves opts to the subset of tracked sources matching the
// requested categories and removes exactly those (specification §6's
// clean({packages?, repos?, npm?, pypi?, crates?})).
func (h *Host) Clean(opts sandbox.CleanOptions) (sandbox.RemoveResult, error) {
	var names []string
	for _, s := range h.registry.List() {
		switch s.Type {
		case source.TypeRepo:
			if opts.Repos {
				names = append(names, s.Name)
			}
		case source.TypeNPM:
			if opts.Packages || opts.NPM {
				names = append(names, s.Name)
			}
		case source.TypePyPI:
			if opts.Packages || opts.PyPI {
				names = append(names, s.Name)
			}
		case source.TypeCrates:
			if opts.Packages || opts.Crates {
				names = append(names, s.Name)
			}
		}
	}
	return h.Remove(names)
}
