package chunk

import (
	"path/filepath"
	"strings"
)

// tsFamilyLanguage maps an extension to the tree-sitter language name used
// to parse it.
var tsFamilyLanguage = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".jsx": "jsx",
}

var markdownExt = map[string]bool{
	".md": true, ".mdx": true, ".markdown": true,
}

// Dispatcher routes a file to one of the four chunking strategies by
// extension: TS/JS-family AST, Rust AST, Markdown, or the sliding-window
// fallback.
type Dispatcher struct{}

// NewDispatcher builds the extension-routed chunker.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Chunk dispatches path to the appropriate strategy based on its extension.
func (d *Dispatcher) Chunk(path string, source []byte) ([]CodeChunk, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if lang, ok := tsFamilyLanguage[ext]; ok {
		return newTSChunker(lang).Chunk(path, source)
	}
	if ext == ".rs" {
		return newRustChunker().Chunk(path, source)
	}
	if markdownExt[ext] {
		return newMarkdownChunker().Chunk(path, source)
	}
	return newWindowChunker().Chunk(path, source)
}

var _ Chunker = (*Dispatcher)(nil)
