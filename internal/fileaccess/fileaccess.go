package fileaccess

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// FileAccess enforces path safety and default ignore patterns for every
// read or enumeration made against a tracked source's directory.
type FileAccess struct {
	resolver Resolver
}

// New returns a FileAccess backed by resolver for turning source names into
// on-disk roots.
func New(resolver Resolver) *FileAccess {
	return &FileAccess{resolver: resolver}
}

// enumerate walks source's root, skipping defaultIgnoredDirs, and returns
// every regular file's path relative to the root, in directory-walk order.
func (fa *FileAccess) enumerate(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if isIgnoredDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if isIgnoredDir(filepath.Dir(rel)) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindFileReadError, "fileaccess.enumerate", err)
	}
	return out, nil
}

// Files lists every file under source matching glob (relative to the
// source root). An empty glob matches every non-ignored file.
func (fa *FileAccess) Files(ctx context.Context, source, glob string) ([]string, error) {
	root, err := resolveRoot(fa.resolver, source)
	if err != nil {
		return nil, err
	}
	all, err := fa.enumerate(root)
	if err != nil {
		return nil, err
	}
	if glob == "" {
		return all, nil
	}
	var out []string
	for _, rel := range all {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, opensrcerr.Wrap(opensrcerr.KindInternal, "fileaccess.Files", ctxErr)
		}
		if matchGlob(glob, rel) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Read returns the UTF-8 contents of path within source.
func (fa *FileAccess) Read(ctx context.Context, source, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", opensrcerr.Wrap(opensrcerr.KindInternal, "fileaccess.Read", err)
	}
	root, err := resolveRoot(fa.resolver, source)
	if err != nil {
		return "", err
	}
	abs, err := safeJoin(root, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", opensrcerr.Wrap(opensrcerr.KindFileReadError, "fileaccess.Read", err)
	}
	return string(data), nil
}

// ReadMany reads a mix of literal paths and glob patterns, expanding globs
// against the source root. A literal path is keyed by the entry as given; a
// glob contributes one key per matched path. A failed read yields a
// "[Error: <msg>]" placeholder value under its key, and a glob that fails
// to expand or matches nothing yields one under the glob itself, rather
// than aborting the whole call.
func (fa *FileAccess) ReadMany(ctx context.Context, source string, pathsOrGlobs []string) (map[string]string, error) {
	root, err := resolveRoot(fa.resolver, source)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(pathsOrGlobs))
	for _, entry := range pathsOrGlobs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, opensrcerr.Wrap(opensrcerr.KindInternal, "fileaccess.ReadMany", ctxErr)
		}

		if isGlobPattern(entry) {
			matches, err := fa.Files(ctx, source, entry)
			if err != nil {
				out[entry] = fmt.Sprintf("[Error: %s]", err)
				continue
			}
			if len(matches) == 0 {
				out[entry] = "[Error: no files matched]"
				continue
			}
			for _, m := range matches {
				out[m] = fa.readLiteral(root, m)
			}
			continue
		}

		out[entry] = fa.readLiteral(root, entry)
	}
	return out, nil
}

func (fa *FileAccess) readLiteral(root, rel string) string {
	abs, err := safeJoin(root, rel)
	if err != nil {
		return fmt.Sprintf("[Error: %s]", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Sprintf("[Error: %s]", err)
	}
	return string(data)
}

func isGlobPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Tree renders an indented directory listing rooted at source, descending
// at most depth levels (depth <= 0 means unlimited). When pattern is
// non-empty only files matching it are shown, though their containing
// directories are always shown.
func (fa *FileAccess) Tree(ctx context.Context, source string, depth int, pattern string) (string, error) {
	root, err := resolveRoot(fa.resolver, source)
	if err != nil {
		return "", err
	}
	files, err := fa.enumerate(root)
	if err != nil {
		return "", err
	}

	type node struct {
		children map[string]*node
		isFile   bool
	}
	newNode := func() *node { return &node{children: map[string]*node{}} }
	top := newNode()

	for _, rel := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", opensrcerr.Wrap(opensrcerr.KindInternal, "fileaccess.Tree", ctxErr)
		}
		if pattern != "" && !matchGlob(pattern, rel) {
			continue
		}
		segs := strings.Split(rel, "/")
		if depth > 0 && len(segs) > depth {
			segs = segs[:depth]
		}
		cur := top
		for i, seg := range segs {
			child, ok := cur.children[seg]
			if !ok {
				child = newNode()
				cur.children[seg] = child
			}
			if i == len(segs)-1 && len(segs) == len(strings.Split(rel, "/")) {
				child.isFile = true
			}
			cur = child
		}
	}

	var b strings.Builder
	var walk func(n *node, prefix string)
	walk = func(n *node, prefix string) {
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child := n.children[name]
			b.WriteString(prefix)
			b.WriteString(name)
			if !child.isFile {
				b.WriteString("/")
			}
			b.WriteString("\n")
			walk(child, prefix+"  ")
		}
	}
	walk(top, "")
	return b.String(), nil
}

// Grep compiles pattern once as a case-insensitive regex and scans every
// file reachable under opts.Sources (after the default and grep-specific
// ignore lists and opts.Include are applied), stopping once
// opts.MaxResults matches have been produced.
func (fa *FileAccess) Grep(ctx context.Context, pattern string, opts GrepOptions) ([]GrepMatch, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindInvalidSpec, "fileaccess.Grep", err)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultGrepMaxResults
	}

	var results []GrepMatch
	for _, source := range opts.Sources {
		if len(results) >= maxResults {
			break
		}
		root, err := resolveRoot(fa.resolver, source)
		if err != nil {
			return nil, err
		}
		files, err := fa.enumerate(root)
		if err != nil {
			return nil, err
		}

		for _, rel := range files {
			if len(results) >= maxResults {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, opensrcerr.Wrap(opensrcerr.KindInternal, "fileaccess.Grep", ctxErr)
			}
			if matchesAny(rel, grepIgnoredFiles) {
				continue
			}
			if opts.Include != "" && !matchGlob(opts.Include, rel) {
				continue
			}

			abs := filepath.Join(root, rel)
			matches, err := grepFile(abs, re, maxResults-len(results))
			if err != nil {
				continue
			}
			for _, m := range matches {
				m.Source = source
				m.File = rel
				results = append(results, m)
			}
		}
	}
	return results, nil
}

func grepFile(abs string, re *regexp.Regexp, remaining int) ([]GrepMatch, error) {
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []GrepMatch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(out) >= remaining {
			break
		}
		line := scanner.Text()
		if re.MatchString(line) {
			content := strings.TrimSpace(line)
			if len(content) > maxGrepLineLen {
				content = content[:maxGrepLineLen]
			}
			out = append(out, GrepMatch{Line: lineNo, Content: content})
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return out, scanErr
	}
	return out, nil
}
