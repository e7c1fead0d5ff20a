// Package index drives a source from fetched-on-disk to fully-indexed:
// enumerate its files, chunk them, embed the chunks and persist them to the
// vector store, with bounded concurrency across sources and a bounded,
// yielding batch loop within each one.
package index

import (
	"context"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
)

// State is a source's position in the indexing state machine.
type State string

const (
	StateUnknown  State = "unknown"
	StateQueued   State = "queued"
	StateIndexing State = "indexing"
	StateIndexed  State = "indexed"
)

// DefaultMaxConcurrentIndex bounds how many sources may be actively
// indexing at once.
const DefaultMaxConcurrentIndex = 2

// DefaultBatchSize is the number of chunks accumulated before a single
// embed+insert round trip.
const DefaultBatchSize = 50

// allowedExtensions is the chunkable-file allow-list; anything else is
// skipped during enumeration regardless of the ignore list.
var allowedExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".mts": true, ".cts": true, ".mjs": true, ".cjs": true,
	".rs":       true,
	".md":       true,
	".mdx":      true,
	".markdown": true,
}

// ignoredBasenames are files excluded even when their extension is
// allowed.
var ignoredBasenames = map[string]bool{
	"CHANGELOG.md": true,
	"HISTORY.md":   true,
}

// ignoredDirs are path segments that exclude a file regardless of
// extension. FileAccess already prunes node_modules/.git from its own
// enumerations, but the engine applies the full list itself rather than
// relying on that default staying in sync with this one.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	".next":        true,
}

// FileSource reads and enumerates the files of a source; satisfied by
// *fileaccess.FileAccess.
type FileSource interface {
	Files(ctx context.Context, source, glob string) ([]string, error)
	Read(ctx context.Context, source, path string) (string, error)
}

// Chunker is the narrow chunk.Chunker surface this package depends on.
type Chunker interface {
	Chunk(path string, source []byte) ([]chunk.CodeChunk, error)
}

// Embedder is the narrow embed.Embedder surface this package depends on.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the narrow vectorstore.Store surface this package depends
// on.
type VectorStore interface {
	InsertBatch(ctx context.Context, source string, chunks []chunk.CodeChunk, embeddings [][]float32) error
	Finalize(ctx context.Context) error
	MarkIndexed(ctx context.Context, source string) error
	IsIndexed(ctx context.Context, source string) (bool, error)
	DeleteSource(ctx context.Context, source string) error
}
