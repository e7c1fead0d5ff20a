package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

type fakeAPI struct {
	sources []Source
	files   []FileEntry
	fetchFn func(specs []string, opts FetchOptions) ([]FetchedSource, error)
}

func (f *fakeAPI) List() []Source           { return f.sources }
func (f *fakeAPI) Has(name, version string) bool { return false }
func (f *fakeAPI) Get(name string) (Source, bool) {
	for _, s := range f.sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
func (f *fakeAPI) Files(_ context.Context, _, _ string) ([]FileEntry, error) { return f.files, nil }
func (f *fakeAPI) Tree(_ context.Context, _ string, _ int, _ string) (TreeNode, error) {
	return TreeNode{Name: "root", Type: "dir"}, nil
}
func (f *fakeAPI) Read(_ context.Context, _, path string) (string, error) {
	if path == "missing.ts" {
		return "", opensrcerr.New(opensrcerr.KindFileReadError, "fakeAPI.Read", "no such file")
	}
	return "file contents for " + path, nil
}
func (f *fakeAPI) ReadMany(_ context.Context, _ string, paths []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		out[p] = "content:" + p
	}
	return out, nil
}
func (f *fakeAPI) Grep(_ context.Context, pattern string, _ GrepOptions) ([]GrepMatch, error) {
	return []GrepMatch{{Source: "pkg", File: "a.ts", Line: 1, Content: pattern}}, nil
}
func (f *fakeAPI) AstGrep(_ context.Context, _, _ string, _ AstGrepOptions) ([]AstMatch, error) {
	return nil, nil
}
func (f *fakeAPI) SemanticSearch(_ context.Context, _ string, _ SearchOptions) (SemanticSearchOutcome, error) {
	return SemanticSearchOutcome{Status: "not_indexed"}, nil
}
func (f *fakeAPI) Resolve(spec string) (ParsedSpec, error) {
	return ParsedSpec{Type: "npm", Name: spec}, nil
}
func (f *fakeAPI) Fetch(_ context.Context, specs []string, opts FetchOptions) ([]FetchedSource, error) {
	if f.fetchFn != nil {
		return f.fetchFn(specs, opts)
	}
	return nil, nil
}
func (f *fakeAPI) Remove(names []string) (RemoveResult, error) {
	return RemoveResult{Success: true, Removed: names}, nil
}
func (f *fakeAPI) Clean(CleanOptions) (RemoveResult, error) { return RemoveResult{Success: true}, nil }

func TestRun_ReturnsScriptValue(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	out, err := sb.Run(context.Background(), "() => 1 + 1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, out)
}

func TestRun_ExposesOpensrcList(t *testing.T) {
	api := &fakeAPI{sources: []Source{{Type: "npm", Name: "left-pad", Version: "1.0.0"}}}
	sb := New(api, time.Second)

	out, err := sb.Run(context.Background(), "() => opensrc.list().length")
	require.NoError(t, err)
	assert.EqualValues(t, 1, out)
}

func TestRun_ReadPropagatesNotFoundAsError(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	_, err := sb.Run(context.Background(), `() => opensrc.read("pkg", "missing.ts")`)
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindCodeExecutionError, opensrcerr.KindOf(err))
}

func TestRun_GrepRoundTrip(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	out, err := sb.Run(context.Background(), `() => opensrc.grep("needle", {sources: ["pkg"]})[0].content`)
	require.NoError(t, err)
	assert.Equal(t, "needle", out)
}

func TestRun_SemanticSearchReturnsStatusObject(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	out, err := sb.Run(context.Background(), `() => opensrc.semanticSearch("q").error`)
	require.NoError(t, err)
	assert.Equal(t, "not_indexed", out)
}

func TestRun_ThrownScriptErrorBecomesCodeExecutionError(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	_, err := sb.Run(context.Background(), `() => { throw new Error("boom"); }`)
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindCodeExecutionError, opensrcerr.KindOf(err))
}

func TestRun_NonCallableScriptErrors(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	_, err := sb.Run(context.Background(), `42`)
	require.Error(t, err)
}

func TestRun_DeadlineExceededBecomesExecutionTimeout(t *testing.T) {
	sb := New(&fakeAPI{}, 20*time.Millisecond)
	_, err := sb.Run(context.Background(), `() => { while (true) {} }`)
	require.Error(t, err)
	assert.Equal(t, opensrcerr.KindExecutionTimeout, opensrcerr.KindOf(err))
}

func TestRun_EvalIsNotExposed(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	out, err := sb.Run(context.Background(), `() => typeof eval`)
	require.NoError(t, err)
	assert.Equal(t, "undefined", out)
}

func TestRun_ArrayPrototypeIsFrozenAgainstPollution(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	out, err := sb.Run(context.Background(), `() => {
		try { [].constructor.prototype.push = function() { return "evil"; }; } catch (e) {}
		var a = [];
		a.push(1);
		return a.length;
	}`)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out)
}

func TestRun_ObjectGlobalOnlyExposesAllowedStatics(t *testing.T) {
	sb := New(&fakeAPI{}, time.Second)
	out, err := sb.Run(context.Background(), `() => typeof Object.defineProperty`)
	require.NoError(t, err)
	assert.Equal(t, "undefined", out)
}

func TestRun_FetchRoundTrip(t *testing.T) {
	api := &fakeAPI{fetchFn: func(specs []string, opts FetchOptions) ([]FetchedSource, error) {
		return []FetchedSource{{Name: specs[0], Path: "packages/npm/" + specs[0]}}, nil
	}}
	sb := New(api, time.Second)
	out, err := sb.Run(context.Background(), `() => opensrc.fetch(["left-pad"], {}).map(f => f.path)[0]`)
	require.NoError(t, err)
	assert.Equal(t, "packages/npm/left-pad", out)
}
