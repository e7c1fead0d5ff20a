package fileaccess

import (
	"path/filepath"
	"strings"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// resolveRoot asks the resolver for source's root directory, wrapping
// SourceNotFound/PathTraversal errors it may already carry.
func resolveRoot(r Resolver, source string) (string, error) {
	root, err := r.ResolvePath(source)
	if err != nil {
		return "", opensrcerr.Wrap(opensrcerr.KindOf(err), "fileaccess.resolveRoot", err)
	}
	return root, nil
}

// safeJoin resolves rel against root and verifies the canonical result is
// still contained within root. rel is always treated as relative; a leading
// "/" or ".." component cannot escape the root because the check is on the
// final cleaned path, not the input string.
func safeJoin(root, rel string) (string, error) {
	root = filepath.Clean(root)
	joined := filepath.Join(root, rel)
	cleaned := filepath.Clean(joined)

	rootWithSep := root + string(filepath.Separator)
	if cleaned != root && !strings.HasPrefix(cleaned+string(filepath.Separator), rootWithSep) {
		return "", opensrcerr.New(opensrcerr.KindPathTraversal, "fileaccess.safeJoin", "path escapes source root: "+rel)
	}
	return cleaned, nil
}
