package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
	"github.com/dmmulroy/opensrc-mcp/internal/index"
	"github.com/dmmulroy/opensrc-mcp/internal/vectorstore"
)

type fakeFiles struct {
	files   map[string][]string
	content map[string]string
}

func (f *fakeFiles) Files(_ context.Context, source, _ string) ([]string, error) {
	return f.files[source], nil
}

func (f *fakeFiles) Read(_ context.Context, source, path string) (string, error) {
	return f.content[source+"/"+path], nil
}

type fakeGrepper struct {
	calledPattern string
	calledOpts    GrepOptions
	result        []GrepMatch
}

func (f *fakeGrepper) Grep(_ context.Context, pattern string, opts GrepOptions) ([]GrepMatch, error) {
	f.calledPattern = pattern
	f.calledOpts = opts
	return f.result, nil
}

type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return f.vec, nil
}

type fakeScanner struct {
	indexed []string
	rows    []vectorstore.ScanResult
}

func (f *fakeScanner) Scan(_ context.Context, _ []float32, _ int, _ []string) ([]vectorstore.ScanResult, error) {
	return f.rows, nil
}

func (f *fakeScanner) ListIndexed(_ context.Context) ([]string, error) {
	return f.indexed, nil
}

type fakeStatus struct {
	states   map[string]index.State
	indexing []string
}

func (f *fakeStatus) State(source string) index.State {
	if st, ok := f.states[source]; ok {
		return st
	}
	return index.StateUnknown
}

func (f *fakeStatus) Indexing() []string { return f.indexing }

func TestGrep_Delegates(t *testing.T) {
	grepper := &fakeGrepper{result: []GrepMatch{{Source: "pkg", File: "a.ts", Line: 1, Content: "x"}}}
	p := New(&fakeFiles{}, grepper, &fakeEmbedder{}, &fakeScanner{}, &fakeStatus{})

	out, err := p.Grep(context.Background(), "needle", GrepOptions{Sources: []string{"pkg"}})
	require.NoError(t, err)
	assert.Equal(t, "needle", grepper.calledPattern)
	assert.Equal(t, []string{"pkg"}, grepper.calledOpts.Sources)
	assert.Len(t, out, 1)
}

func TestSemanticSearch_NotIndexedWhenStoreEmptyAndNothingQueued(t *testing.T) {
	p := New(&fakeFiles{}, &fakeGrepper{}, &fakeEmbedder{}, &fakeScanner{}, &fakeStatus{})

	results, status, err := p.SemanticSearch(context.Background(), "query", SemanticSearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, results)
	require.NotNil(t, status)
	assert.Equal(t, "not_indexed", status.Reason)
}

func TestSemanticSearch_NoErrorWhenSomethingIsIndexing(t *testing.T) {
	p := New(&fakeFiles{}, &fakeGrepper{}, &fakeEmbedder{}, &fakeScanner{}, &fakeStatus{indexing: []string{"pkg"}})

	_, status, err := p.SemanticSearch(context.Background(), "query", SemanticSearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestSemanticSearch_ScopedSourceIndexing(t *testing.T) {
	status := &fakeStatus{states: map[string]index.State{"pkg": index.StateIndexing}}
	p := New(&fakeFiles{}, &fakeGrepper{}, &fakeEmbedder{}, &fakeScanner{}, status)

	results, st, err := p.SemanticSearch(context.Background(), "query", SemanticSearchOptions{Sources: []string{"pkg"}})
	require.NoError(t, err)
	assert.Nil(t, results)
	require.NotNil(t, st)
	assert.Equal(t, "indexing", st.Reason)
	assert.Equal(t, []string{"pkg"}, st.Sources)
}

func TestSemanticSearch_ScopedSourceNotIndexed(t *testing.T) {
	status := &fakeStatus{}
	p := New(&fakeFiles{}, &fakeGrepper{}, &fakeEmbedder{}, &fakeScanner{}, status)

	_, st, err := p.SemanticSearch(context.Background(), "query", SemanticSearchOptions{Sources: []string{"pkg"}})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "not_indexed", st.Reason)
}

func TestSemanticSearch_MapsRowsAndPreservesOrder(t *testing.T) {
	scanner := &fakeScanner{
		indexed: []string{"pkg"},
		rows: []vectorstore.ScanResult{
			{Entry: vectorstore.IndexedEntry{Source: "pkg", File: "a.ts", Identifier: "fn1", Kind: chunk.KindFunction, StartLine: 1, EndLine: 2, Content: "fn1()"}, Distance: 0.1},
			{Entry: vectorstore.IndexedEntry{Source: "pkg", File: "b.ts", Identifier: "fn2", Kind: chunk.KindFunction, StartLine: 3, EndLine: 4, Content: "fn2()"}, Distance: 0.4},
		},
	}
	p := New(&fakeFiles{}, &fakeGrepper{}, &fakeEmbedder{vec: []float32{1, 0}}, scanner, &fakeStatus{})

	results, status, err := p.SemanticSearch(context.Background(), "find fn1", SemanticSearchOptions{})
	require.NoError(t, err)
	require.Nil(t, status)
	require.Len(t, results, 2)
	assert.Equal(t, "fn1", results[0].Identifier)
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
	assert.Equal(t, "fn2", results[1].Identifier)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)
}
