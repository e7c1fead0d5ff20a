package fileaccess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

type fakeResolver struct {
	roots map[string]string
}

func (f *fakeResolver) ResolvePath(name string) (string, error) {
	root, ok := f.roots[name]
	if !ok {
		return "", opensrcerr.New(opensrcerr.KindSourceNotFound, "fakeResolver", "unknown source: "+name)
	}
	return root, nil
}

// newFixture builds a source tree:
//
//	src/a.ts          "export function add() {}"
//	src/b.ts          "const needle = 1"
//	src/nested/c.ts   "needle again"
//	node_modules/dep/x.ts  "needle in dep"
//	.git/HEAD              "needle in git"
//	vendor.min.js          "needle minified"
func newFixture(t *testing.T) *FileAccess {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"src/a.ts":              "export function add() {}\n",
		"src/b.ts":              "const needle = 1\n",
		"src/nested/c.ts":       "needle again\n",
		"node_modules/dep/x.ts": "needle in dep\n",
		".git/HEAD":             "needle in git\n",
		"vendor.min.js":         "needle minified\n",
	}
	for rel, content := range files {
		abs := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}

	return New(&fakeResolver{roots: map[string]string{"pkg": dir}})
}

func TestFiles_IgnoresDefaultDirs(t *testing.T) {
	fa := newFixture(t)
	files, err := fa.Files(context.Background(), "pkg", "")
	require.NoError(t, err)
	assert.Contains(t, files, "src/a.ts")
	assert.Contains(t, files, "src/b.ts")
	assert.Contains(t, files, "src/nested/c.ts")
	assert.NotContains(t, files, "node_modules/dep/x.ts")
	assert.NotContains(t, files, ".git/HEAD")
}

func TestFiles_GlobFilters(t *testing.T) {
	fa := newFixture(t)
	files, err := fa.Files(context.Background(), "pkg", "src/**/*.ts")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.ts", "src/b.ts", "src/nested/c.ts"}, files)
}

func TestFiles_UnknownSource(t *testing.T) {
	fa := newFixture(t)
	_, err := fa.Files(context.Background(), "nope", "")
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindSourceNotFound, opensrcerr.KindOf(err))
}

func TestRead_ReturnsContent(t *testing.T) {
	fa := newFixture(t)
	content, err := fa.Read(context.Background(), "pkg", "src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "export function add() {}\n", content)
}

func TestRead_PathTraversalRejected(t *testing.T) {
	fa := newFixture(t)
	_, err := fa.Read(context.Background(), "pkg", "../../../etc/passwd")
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindPathTraversal, opensrcerr.KindOf(err))
}

func TestRead_MissingFile(t *testing.T) {
	fa := newFixture(t)
	_, err := fa.Read(context.Background(), "pkg", "src/missing.ts")
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindFileReadError, opensrcerr.KindOf(err))
}

func TestReadMany_MixLiteralsAndGlobs(t *testing.T) {
	fa := newFixture(t)
	out, err := fa.ReadMany(context.Background(), "pkg", []string{"src/a.ts", "src/nested/*.ts", "src/missing.ts"})
	require.NoError(t, err)

	assert.Equal(t, "export function add() {}\n", out["src/a.ts"])
	assert.Equal(t, "needle again\n", out["src/nested/c.ts"])
	assert.Contains(t, out["src/missing.ts"], "[Error:")
}

func TestTree_RendersHierarchy(t *testing.T) {
	fa := newFixture(t)
	out, err := fa.Tree(context.Background(), "pkg", 0, "")
	require.NoError(t, err)
	assert.Contains(t, out, "src/")
	assert.Contains(t, out, "a.ts")
	assert.NotContains(t, out, "node_modules")
}

func TestGrep_FindsMatchesAcrossSources(t *testing.T) {
	fa := newFixture(t)
	matches, err := fa.Grep(context.Background(), "needle", GrepOptions{Sources: []string{"pkg"}})
	require.NoError(t, err)

	var files []string
	for _, m := range matches {
		files = append(files, m.File)
		assert.Equal(t, "pkg", m.Source)
	}
	assert.Contains(t, files, "src/b.ts")
	assert.Contains(t, files, "src/nested/c.ts")
	assert.NotContains(t, files, "node_modules/dep/x.ts")
	assert.NotContains(t, files, ".git/HEAD")
	assert.NotContains(t, files, "vendor.min.js")
}

func TestGrep_RespectsMaxResults(t *testing.T) {
	fa := newFixture(t)
	matches, err := fa.Grep(context.Background(), "needle", GrepOptions{Sources: []string{"pkg"}, MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestGrep_IncludeFilter(t *testing.T) {
	fa := newFixture(t)
	matches, err := fa.Grep(context.Background(), "needle", GrepOptions{
		Sources: []string{"pkg"},
		Include: "src/nested/**",
	})
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, "src/nested/c.ts", m.File)
	}
}

func TestGrep_CaseInsensitive(t *testing.T) {
	fa := newFixture(t)
	matches, err := fa.Grep(context.Background(), "NEEDLE", GrepOptions{Sources: []string{"pkg"}})
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}
