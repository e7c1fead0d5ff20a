package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
	"github.com/dmmulroy/opensrc-mcp/internal/fetch"
	"github.com/dmmulroy/opensrc-mcp/internal/fileaccess"
	"github.com/dmmulroy/opensrc-mcp/internal/index"
	"github.com/dmmulroy/opensrc-mcp/internal/query"
	"github.com/dmmulroy/opensrc-mcp/internal/sandbox"
	"github.com/dmmulroy/opensrc-mcp/internal/source"
	"github.com/dmmulroy/opensrc-mcp/internal/vectorstore"
)

// fakeStore is a no-op stand-in for vectorstore.SQLiteStore, narrow enough
// to satisfy index.VectorStore, query.Scanner, and mcpserver.VectorCleaner
// all at once. It records which sources were asked to be deleted so tests
// can assert on Remove/Clean's orchestration.
type fakeStore struct {
	deleted []string
}

func (f *fakeStore) InsertBatch(ctx context.Context, source string, chunks []chunk.CodeChunk, embeddings [][]float32) error {
	return nil
}
func (f *fakeStore) Finalize(ctx context.Context) error                    { return nil }
func (f *fakeStore) MarkIndexed(ctx context.Context, s string) error       { return nil }
func (f *fakeStore) IsIndexed(ctx context.Context, s string) (bool, error) { return false, nil }
func (f *fakeStore) DeleteSource(ctx context.Context, s string) error {
	f.deleted = append(f.deleted, s)
	return nil
}
func (f *fakeStore) Scan(ctx context.Context, queryVec []float32, topK int, sourceFilter []string) ([]vectorstore.ScanResult, error) {
	return nil, nil
}
func (f *fakeStore) ListIndexed(ctx context.Context) ([]string, error) { return nil, nil }

// fakeChunker never gets exercised by these tests (no source reaches the
// real index pipeline), but index.New requires a non-nil Chunker.
type fakeChunker struct{}

func (fakeChunker) Chunk(path string, src []byte) ([]chunk.CodeChunk, error) { return nil, nil }

// fakeEmbedder satisfies both index.Embedder (EmbedBatch) and
// query.Embedder (EmbedQuery).
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// testHost wires a Host against a real Registry/FileAccess/Planner/Engine
// rooted at t.TempDir(), with fakes standing in for chunk/embed/vector
// collaborators that never need to do real work in these tests.
func testHost(t *testing.T) (*Host, *source.Registry, *fakeStore, string) {
	t.Helper()
	dataDir := t.TempDir()
	manifestPath := filepath.Join(dataDir, "sources.json")

	registry := source.New(dataDir, manifestPath)
	require.NoError(t, registry.Load())

	store := &fakeStore{}
	files := fileaccess.New(registry)
	engine := index.New(files, fakeChunker{}, fakeEmbedder{}, store, 2, 50)
	planner := query.New(files, files, fakeEmbedder{}, store, engine)
	fetcher := fetch.NewDefaultFetcher(dataDir, registry)

	host := NewHost(registry, fetcher, files, planner, engine, store, nil)
	return host, registry, store, dataDir
}

func seedSource(t *testing.T, registry *source.Registry, dataDir, name, version string, files map[string]string) source.Source {
	t.Helper()
	rel := filepath.Join("packages", "npm", name)
	root := filepath.Join(dataDir, rel)
	require.NoError(t, os.MkdirAll(root, 0o755))
	for relPath, contents := range files {
		full := filepath.Join(root, filepath.FromSlash(relPath))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
	}
	src := source.Source{
		Type:      source.TypeNPM,
		Name:      name,
		Version:   version,
		Path:      rel,
		FetchedAt: time.Now(),
	}
	require.NoError(t, registry.Put(src))
	return src
}

func TestHost_ListHasGet(t *testing.T) {
	host, registry, _, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{"index.js": "module.exports = {}"})

	assert.True(t, host.Has("left-pad", "1.3.0"))
	assert.False(t, host.Has("left-pad", "9.9.9"))

	list := host.List()
	require.Len(t, list, 1)
	assert.Equal(t, "left-pad", list[0].Name)
	assert.Equal(t, "npm", list[0].Type)

	got, ok := host.Get("left-pad")
	require.True(t, ok)
	assert.Equal(t, "1.3.0", got.Version)

	_, ok = host.Get("does-not-exist")
	assert.False(t, ok)
}

func TestHost_FilesAndRead(t *testing.T) {
	host, registry, _, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{
		"index.js":    "module.exports = leftPad",
		"README.md":   "# left-pad",
		"test/a_test.js": "// test",
	})

	ctx := context.Background()
	entries, err := host.Files(ctx, "left-pad", "")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	for _, e := range entries {
		assert.Greater(t, e.Size, int64(0))
		assert.False(t, e.IsDirectory)
	}

	content, err := host.Read(ctx, "left-pad", "index.js")
	require.NoError(t, err)
	assert.Equal(t, "module.exports = leftPad", content)

	many, err := host.ReadMany(ctx, "left-pad", []string{"index.js", "README.md"})
	require.NoError(t, err)
	assert.Len(t, many, 2)
}

func TestHost_Tree(t *testing.T) {
	host, registry, _, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{
		"index.js":       "x",
		"src/util.js":    "x",
		"src/deep/a.js":  "x",
	})

	tree, err := host.Tree(context.Background(), "left-pad", 0, "")
	require.NoError(t, err)
	assert.Equal(t, ".", tree.Name)
	assert.Equal(t, "dir", tree.Type)

	tree2, err := host.Tree(context.Background(), "left-pad", 1, "")
	require.NoError(t, err)
	for _, c := range tree2.Children {
		if c.Name == "src" {
			assert.Empty(t, c.Children, "depth-truncated dir should have no children")
		}
	}
}

func TestHost_Grep(t *testing.T) {
	host, registry, _, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{
		"index.js": "function leftPad(str, len) { return str }",
	})

	matches, err := host.Grep(context.Background(), "leftPad", sandbox.GrepOptions{Sources: []string{"left-pad"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "left-pad", matches[0].Source)
	assert.Equal(t, "index.js", matches[0].File)
}

func TestHost_Resolve(t *testing.T) {
	host, _, _, _ := testHost(t)
	parsed, err := host.Resolve("npm:left-pad@1.3.0")
	require.NoError(t, err)
	assert.Equal(t, "npm", parsed.Type)
	assert.Equal(t, "left-pad", parsed.Name)
	assert.Equal(t, "1.3.0", parsed.Version)

	_, err = host.Resolve("")
	assert.Error(t, err)
}

func TestHost_Fetch_AlreadyExistedSameVersion(t *testing.T) {
	host, registry, _, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{"index.js": "x"})

	out, err := host.Fetch(context.Background(), []string{"npm:left-pad@1.3.0"}, sandbox.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].AlreadyExisted)
	assert.Empty(t, out[0].Err)
}

func TestHost_Fetch_DifferentVersionWithoutModify(t *testing.T) {
	host, registry, _, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{"index.js": "x"})

	out, err := host.Fetch(context.Background(), []string{"npm:left-pad@2.0.0"}, sandbox.FetchOptions{Modify: false})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].AlreadyExisted)
	assert.Contains(t, out[0].Err, "modify")
}

func TestHost_Fetch_InvalidSpec(t *testing.T) {
	host, _, _, _ := testHost(t)
	out, err := host.Fetch(context.Background(), []string{""}, sandbox.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].Err)
}

func TestHost_Remove(t *testing.T) {
	host, registry, store, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{"index.js": "x"})
	root := filepath.Join(dataDir, "packages", "npm", "left-pad")

	result, err := host.Remove([]string{"left-pad"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"left-pad"}, result.Removed)
	assert.Equal(t, []string{"left-pad"}, store.deleted)
	assert.False(t, host.Has("left-pad", "1.3.0"))

	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr), "on-disk source directory should be removed")
}

func TestHost_Clean(t *testing.T) {
	host, registry, store, dataDir := testHost(t)
	seedSource(t, registry, dataDir, "left-pad", "1.3.0", map[string]string{"index.js": "x"})

	repoSrc := source.Source{
		Type:      source.TypeRepo,
		Name:      "github.com/foo/bar",
		Version:   "main",
		Path:      filepath.Join("repos", "github.com", "foo", "bar"),
		FetchedAt: time.Now(),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, repoSrc.Path), 0o755))
	require.NoError(t, registry.Put(repoSrc))

	result, err := host.Clean(sandbox.CleanOptions{NPM: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"left-pad"}, result.Removed)
	assert.ElementsMatch(t, []string{"left-pad"}, store.deleted)

	_, ok := host.Get("github.com/foo/bar")
	assert.True(t, ok, "clean(npm) must not touch repo sources")
}
