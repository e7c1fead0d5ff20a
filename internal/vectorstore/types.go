// Package vectorstore persists indexed chunks and their embeddings in a
// single SQLite database with the sqlite-vec extension providing the
// vector column and k-NN scan operator.
package vectorstore

import "github.com/dmmulroy/opensrc-mcp/internal/chunk"

// Dimensions is the fixed embedding width every row in the store must carry.
const Dimensions = 768

// IndexedEntry is one row of the store: a source-qualified CodeChunk.
type IndexedEntry struct {
	ID         int64
	Source     string
	File       string
	Identifier string
	Kind       chunk.Kind
	Parent     string
	StartLine  int
	EndLine    int
	Content    string
}

// ScanResult pairs an IndexedEntry with its cosine distance to the query
// vector that produced it. Distance is ascending order; lower is closer.
type ScanResult struct {
	Entry    IndexedEntry
	Distance float32
}
