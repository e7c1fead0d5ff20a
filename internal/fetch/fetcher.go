package fetch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
	"github.com/dmmulroy/opensrc-mcp/internal/source"
)

// DefaultFetcher implements Fetcher against the real npm/PyPI/crates
// registries and git hosts, landing content under dataDir/packages/... or
// dataDir/repos/... per specification §6's persisted state layout.
type DefaultFetcher struct {
	dataDir  string
	registry Registry
	client   *registryClient
}

// NewDefaultFetcher builds a Fetcher rooted at dataDir, consulting registry
// to detect already-fetched sources.
func NewDefaultFetcher(dataDir string, registry Registry) *DefaultFetcher {
	return &DefaultFetcher{dataDir: dataDir, registry: registry, client: newRegistryClient()}
}

// FetchOne resolves and downloads/clones a single spec, returning the
// populated Source ready to be handed to source.Registry.Put.
func (f *DefaultFetcher) FetchOne(ctx context.Context, spec string) (source.Source, bool, error) {
	parsed, err := source.ParseSpec(spec)
	if err != nil {
		return source.Source{}, false, err
	}

	name := parsed.SourceName()
	if f.registry.Has(name, parsed.Version) {
		existing, _ := f.registry.Get(name)
		return existing, true, nil
	}

	var relPath string
	var resolvedVersion string

	switch parsed.Type {
	case source.TypeRepo:
		relPath = filepath.Join("repos", parsed.Host, parsed.Name)
		if err := cloneRepo(ctx, parsed.Host, parsed.Name, parsed.Version, filepath.Join(f.dataDir, relPath)); err != nil {
			return source.Source{}, false, err
		}
		resolvedVersion = parsed.Version
	case source.TypeNPM:
		relPath = filepath.Join("packages", "npm", parsed.Name)
		resolvedVersion, err = f.client.fetchNPM(ctx, parsed.Name, parsed.Version, filepath.Join(f.dataDir, relPath))
	case source.TypePyPI:
		relPath = filepath.Join("packages", "pypi", parsed.Name)
		resolvedVersion, err = f.client.fetchPyPI(ctx, parsed.Name, parsed.Version, filepath.Join(f.dataDir, relPath))
	case source.TypeCrates:
		relPath = filepath.Join("packages", "crates", parsed.Name)
		resolvedVersion, err = f.client.fetchCrate(ctx, parsed.Name, parsed.Version, filepath.Join(f.dataDir, relPath))
	default:
		return source.Source{}, false, opensrcerr.New(opensrcerr.KindInvalidSpec, "fetch.FetchOne", "unknown source type")
	}
	if err != nil {
		return source.Source{}, false, err
	}

	return source.Source{
		Type:      parsed.Type,
		Name:      name,
		Version:   resolvedVersion,
		Path:      filepath.ToSlash(relPath),
		FetchedAt: time.Now(),
	}, false, nil
}

// Fetch implements Fetcher, running each spec independently so one failure
// does not abort the batch.
func (f *DefaultFetcher) Fetch(ctx context.Context, specs []string) []Result {
	results := make([]Result, len(specs))
	for i, spec := range specs {
		src, existed, err := f.FetchOne(ctx, spec)
		if err != nil {
			results[i] = Result{Name: spec, Err: err}
			continue
		}
		results[i] = Result{Name: src.Name, Path: src.Path, AlreadyExisted: existed}
	}
	return results
}
