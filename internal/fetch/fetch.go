// Package fetch implements the specification's external Fetcher collaborator:
// given a fetch spec, resolve a registry package or clone a git repository
// into the data root and report where it landed. The rest of the system
// only depends on the Fetcher interface; this package is one concrete,
// swappable implementation of it.
package fetch

import (
	"context"

	"github.com/dmmulroy/opensrc-mcp/internal/source"
)

// Result mirrors the specification's Fetcher result record: one entry per
// requested spec, with AlreadyExisted set when the source was already
// tracked at the requested version/ref.
type Result struct {
	Name           string
	Path           string // relative to the data root
	AlreadyExisted bool
	Err            error
}

// Fetcher resolves fetch specs into on-disk source directories.
type Fetcher interface {
	// Fetch resolves and downloads/clones each spec, returning one Result
	// per input spec in the same order. A per-spec failure populates Err
	// on that Result rather than aborting the batch (specification §7:
	// "fetch for N specs returns one record per spec; some may have
	// succeeded").
	Fetch(ctx context.Context, specs []string) []Result
}

// Registry reports where a fetched source currently lives, so fetchers can
// detect "already exists" without depending on the full orchestrator.
type Registry interface {
	Has(name, version string) bool
	Get(name string) (source.Source, bool)
}
