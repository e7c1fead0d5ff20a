// Package query translates the three agent-facing query verbs — grep,
// astGrep, semanticSearch — into concrete passes over FileAccess, the
// tree-sitter chunker and VectorStore.
package query

import (
	"context"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
	"github.com/dmmulroy/opensrc-mcp/internal/fileaccess"
	"github.com/dmmulroy/opensrc-mcp/internal/index"
	"github.com/dmmulroy/opensrc-mcp/internal/vectorstore"
)

// GrepMatch and GrepOptions are re-exported so callers of this package
// never need to import fileaccess directly for the grep verb.
type GrepMatch = fileaccess.GrepMatch
type GrepOptions = fileaccess.GrepOptions

// AstMatch is one structural hit from AstGrep.
type AstMatch struct {
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Text      string
	Metavars  map[string]string
}

// DefaultAstGrepLimit bounds an AstGrep call when AstGrepOptions.Limit is
// unset.
const DefaultAstGrepLimit = 1000

// AstGrepOptions narrows an AstGrep call.
type AstGrepOptions struct {
	// Glob restricts which files under source are parsed. Empty matches
	// every file with a supported extension.
	Glob string
	// Lang restricts parsing to these tree-sitter language names
	// (typescript, tsx, javascript, jsx, rust). Empty means infer per
	// file from its extension.
	Lang []string
	// Limit caps the number of matches returned across all files.
	Limit int
}

// DefaultTopK is SemanticSearch's default result count.
const DefaultTopK = 20

// SearchResult is one semantic-search hit, already scored.
type SearchResult struct {
	Source     string
	File       string
	Identifier string
	Kind       chunk.Kind
	StartLine  int
	EndLine    int
	Content    string
	Score      float32
}

// SemanticSearchOptions narrows a SemanticSearch call.
type SemanticSearchOptions struct {
	Sources []string
	TopK    int
}

// SemanticSearchStatus reports a non-error reason SemanticSearch produced
// no results: the caller asked about sources that are not yet queryable.
// nil on a normal (possibly empty) result set.
type SemanticSearchStatus struct {
	Reason  string // "not_indexed" or "indexing"
	Sources []string
}

// FileSource is the fileaccess surface AstGrep needs to enumerate and
// read candidate files.
type FileSource interface {
	Files(ctx context.Context, source, glob string) ([]string, error)
	Read(ctx context.Context, source, path string) (string, error)
}

// Grepper is the fileaccess surface Grep delegates to directly.
type Grepper interface {
	Grep(ctx context.Context, pattern string, opts GrepOptions) ([]GrepMatch, error)
}

// Embedder is the narrow embed.Embedder surface SemanticSearch needs.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Scanner is the narrow vectorstore.Store surface SemanticSearch needs.
type Scanner interface {
	Scan(ctx context.Context, queryVec []float32, topK int, sourceFilter []string) ([]vectorstore.ScanResult, error)
	ListIndexed(ctx context.Context) ([]string, error)
}

// IndexStatus reports indexing state; satisfied by *index.Engine.
type IndexStatus interface {
	State(source string) index.State
	Indexing() []string
}
