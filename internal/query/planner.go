package query

import (
	"context"

	"github.com/dmmulroy/opensrc-mcp/internal/index"
	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// Planner is the QueryPlanner: it turns grep/astGrep/semanticSearch into
// concrete passes over FileAccess, the chunker's tree-sitter parser, and
// VectorStore.
type Planner struct {
	files    FileSource
	grepper  Grepper
	embedder Embedder
	scanner  Scanner
	status   IndexStatus
}

// New builds a Planner from its component dependencies. files and grepper
// are typically the same *fileaccess.FileAccess value.
func New(files FileSource, grepper Grepper, embedder Embedder, scanner Scanner, status IndexStatus) *Planner {
	return &Planner{files: files, grepper: grepper, embedder: embedder, scanner: scanner, status: status}
}

// Grep delegates directly to FileAccess.Grep.
func (p *Planner) Grep(ctx context.Context, pattern string, opts GrepOptions) ([]GrepMatch, error) {
	return p.grepper.Grep(ctx, pattern, opts)
}

// SemanticSearch embeds q and scans the vector store, preserving the
// store's ascending-distance order. It returns a non-nil status instead of
// results when the requested sources aren't queryable yet.
func (p *Planner) SemanticSearch(ctx context.Context, q string, opts SemanticSearchOptions) ([]SearchResult, *SemanticSearchStatus, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	if len(opts.Sources) == 0 {
		indexed, err := p.scanner.ListIndexed(ctx)
		if err != nil {
			return nil, nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "query.SemanticSearch", err)
		}
		if len(indexed) == 0 && len(p.status.Indexing()) == 0 {
			return nil, &SemanticSearchStatus{Reason: "not_indexed"}, nil
		}
	} else {
		var indexing, notIndexed []string
		for _, s := range opts.Sources {
			switch p.status.State(s) {
			case index.StateIndexing:
				indexing = append(indexing, s)
			case index.StateIndexed:
				// queryable
			default:
				notIndexed = append(notIndexed, s)
			}
		}
		if len(indexing) > 0 {
			return nil, &SemanticSearchStatus{Reason: "indexing", Sources: indexing}, nil
		}
		if len(notIndexed) > 0 {
			return nil, &SemanticSearchStatus{Reason: "not_indexed", Sources: notIndexed}, nil
		}
	}

	vec, err := p.embedder.EmbedQuery(ctx, q)
	if err != nil {
		return nil, nil, opensrcerr.Wrap(opensrcerr.KindEmbedError, "query.SemanticSearch", err)
	}

	rows, err := p.scanner.Scan(ctx, vec, topK, opts.Sources)
	if err != nil {
		return nil, nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "query.SemanticSearch", err)
	}

	results := make([]SearchResult, len(rows))
	for i, row := range rows {
		results[i] = SearchResult{
			Source:     row.Entry.Source,
			File:       row.Entry.File,
			Identifier: row.Entry.Identifier,
			Kind:       row.Entry.Kind,
			StartLine:  row.Entry.StartLine,
			EndLine:    row.Entry.EndLine,
			Content:    row.Entry.Content,
			Score:      1 - row.Distance,
		}
	}
	return results, nil, nil
}
