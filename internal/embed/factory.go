package embed

import "context"

// New builds the default Embedder: an Ollama-backed embedder if reachable,
// falling back to the deterministic static embedder otherwise so indexing
// and search stay usable without a local Ollama install. Adapted from the
// teacher's internal/embed/factory.go provider-selection switch, narrowed
// to the two backends this port carries (MLX dropped — see DESIGN.md).
func New(ctx context.Context, ollamaHost, ollamaModel string) Embedder {
	ollama := NewOllamaEmbedder(ollamaHost, ollamaModel)
	if ollama.Available(ctx) {
		return NewCachedEmbedder(ollama)
	}
	return NewStaticEmbedder()
}
