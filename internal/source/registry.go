package source

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// Registry is the in-memory SourceRegistry, mirrored to sources.json. It is
// the authoritative working copy during a session (specification §4.8):
// every mutation (fetch, remove, clean) updates memory and writes through
// to the manifest before returning.
type Registry struct {
	mu            sync.RWMutex
	dataDir       string
	manifestPath  string
	sources       map[string]Source // keyed by Name
}

// New creates a Registry rooted at dataDir. Call Load to populate it from
// an existing manifest.
func New(dataDir, manifestPath string) *Registry {
	return &Registry{
		dataDir:      dataDir,
		manifestPath: manifestPath,
		sources:      make(map[string]Source),
	}
}

// Load reads the on-disk manifest into memory. A missing manifest is not an
// error: the registry simply starts empty.
func (r *Registry) Load() error {
	m, err := loadManifest(r.manifestPath)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindInternal, "source.Load", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = make(map[string]Source)
	for _, s := range m.all() {
		r.sources[s.Name] = s
	}
	return nil
}

// List returns all tracked sources. Reads are allowed from any task
// concurrently with mutation (specification §5): the returned slice is a
// snapshot copy.
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out
}

// Get returns the source with the given name, if tracked.
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// Has reports whether name (optionally pinned to version) is already
// tracked. An empty version matches any tracked version.
func (r *Registry) Has(name, version string) bool {
	s, ok := r.Get(name)
	if !ok {
		return false
	}
	return version == "" || s.Version == version
}

// Put adds or replaces a source in place (fetch and re-fetch both funnel
// through here) and writes through to the manifest. The source is stored
// whole under the lock, so List/Get never see it partially written; it is
// visible to them as soon as the lock is released, before the manifest
// write finishes.
func (r *Registry) Put(s Source) error {
	r.mu.Lock()
	r.sources[s.Name] = s
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.persist(snapshot)
}

// Remove deletes the named sources (no-op for names not tracked) and
// returns the subset that were actually removed.
func (r *Registry) Remove(names []string) ([]string, error) {
	r.mu.Lock()
	var removed []string
	for _, name := range names {
		if _, ok := r.sources[name]; ok {
			delete(r.sources, name)
			removed = append(removed, name)
		}
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if len(removed) == 0 {
		return nil, nil
	}
	if err := r.persist(snapshot); err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *Registry) snapshotLocked() []Source {
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out
}

func (r *Registry) persist(sources []Source) error {
	if err := saveManifest(r.manifestPath, sources); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindInternal, "source.persist", err)
	}
	return nil
}

// ResolvePath returns the absolute on-disk directory for a tracked source,
// verified to lie within the data root (the same containment check
// FileAccess applies to user-supplied relative paths).
func (r *Registry) ResolvePath(name string) (string, error) {
	s, ok := r.Get(name)
	if !ok {
		return "", opensrcerr.New(opensrcerr.KindSourceNotFound, "source.ResolvePath", "unknown source: "+name)
	}

	abs := filepath.Join(r.dataDir, s.Path)
	root := filepath.Clean(r.dataDir) + string(filepath.Separator)
	if !strings.HasPrefix(filepath.Clean(abs)+string(filepath.Separator), root) {
		return "", opensrcerr.New(opensrcerr.KindPathTraversal, "source.ResolvePath", "source path escapes data root")
	}
	return abs, nil
}

// DataDir returns the root directory this registry's sources are relative
// to.
func (r *Registry) DataDir() string { return r.dataDir }
