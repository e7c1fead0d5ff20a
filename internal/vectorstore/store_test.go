package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewInMemory()
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func unitVector(hot int) []float32 {
	v := make([]float32, Dimensions)
	v[hot] = 1
	return v
}

func sampleChunks(n int) []chunk.CodeChunk {
	chunks := make([]chunk.CodeChunk, n)
	for i := range chunks {
		chunks[i] = chunk.CodeChunk{
			File:       "src/a.ts",
			Identifier: "fn",
			Kind:       chunk.KindFunction,
			StartLine:  i*10 + 1,
			EndLine:    i*10 + 5,
			Content:    "function fn() {}",
		}
	}
	return chunks
}

func TestInsertBatch_LengthMismatchRejected(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertBatch(context.Background(), "pkg-a", sampleChunks(2), [][]float32{unitVector(0)})
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindInvalidSpec, opensrcerr.KindOf(err))
}

func TestInsertBatch_WrongDimensionRejected(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertBatch(context.Background(), "pkg-a", sampleChunks(1), [][]float32{{1, 2, 3}})
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindInvalidSpec, opensrcerr.KindOf(err))
}

func TestInsertBatch_EmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertBatch(context.Background(), "pkg-a", nil, nil))
}

func TestMarkIndexed_IsIndexed_ListIndexed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.IsIndexed(ctx, "pkg-a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkIndexed(ctx, "pkg-a"))
	require.NoError(t, s.MarkIndexed(ctx, "pkg-b"))

	ok, err = s.IsIndexed(ctx, "pkg-a")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := s.ListIndexed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg-a", "pkg-b"}, names)
}

func TestMarkIndexed_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.MarkIndexed(ctx, "pkg-a"))
	require.NoError(t, s.MarkIndexed(ctx, "pkg-a"))

	names, err := s.ListIndexed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg-a"}, names)
}

func TestInsertBatch_ThenScanFindsNearest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := sampleChunks(3)
	embeddings := [][]float32{unitVector(0), unitVector(1), unitVector(2)}
	require.NoError(t, s.InsertBatch(ctx, "pkg-a", chunks, embeddings))
	require.NoError(t, s.Finalize(ctx))

	results, err := s.Scan(ctx, unitVector(0), 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pkg-a", results[0].Entry.Source)
	assert.InDelta(t, 0, results[0].Distance, 1e-4)
}

func TestScan_SourceFilterExcludesOtherSources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBatch(ctx, "pkg-a", sampleChunks(1), [][]float32{unitVector(0)}))
	require.NoError(t, s.InsertBatch(ctx, "pkg-b", sampleChunks(1), [][]float32{unitVector(0)}))
	require.NoError(t, s.Finalize(ctx))

	results, err := s.Scan(ctx, unitVector(0), 5, []string{"pkg-b"})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "pkg-b", r.Entry.Source)
	}
}

func TestScan_WrongDimensionRejected(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Scan(context.Background(), []float32{1, 2}, 10, nil)
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindInvalidSpec, opensrcerr.KindOf(err))
}

func TestScan_EmptyStoreReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Scan(context.Background(), unitVector(0), 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteSource_RemovesRowsAndIndexedFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBatch(ctx, "pkg-a", sampleChunks(2), [][]float32{unitVector(0), unitVector(1)}))
	require.NoError(t, s.Finalize(ctx))
	require.NoError(t, s.MarkIndexed(ctx, "pkg-a"))

	require.NoError(t, s.DeleteSource(ctx, "pkg-a"))

	ok, err := s.IsIndexed(ctx, "pkg-a")
	require.NoError(t, err)
	assert.False(t, ok)

	results, err := s.Scan(ctx, unitVector(0), 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
