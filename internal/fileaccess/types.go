// Package fileaccess provides path-traversal-safe read and glob operations
// rooted at a single source's on-disk directory. It is the only package
// that touches indexed-source file contents directly; IndexEngine and
// QueryPlanner both go through it.
package fileaccess

// Resolver maps a tracked source name to its absolute root directory,
// already verified to lie within the data root. source.Registry satisfies
// this.
type Resolver interface {
	ResolvePath(name string) (string, error)
}

// GrepMatch is one line hit from Grep.
type GrepMatch struct {
	Source  string
	File    string
	Line    int
	Content string
}

// GrepOptions narrows a Grep call.
type GrepOptions struct {
	// Sources restricts the scan to these source names. Empty means every
	// source the Resolver knows about is not implied; callers must pass
	// sources explicitly since FileAccess has no listing of "all sources".
	Sources []string
	// Include, when non-empty, is a glob that a candidate file's path
	// (relative to its source root) must match.
	Include string
	// MaxResults caps the number of matches returned. Zero means
	// DefaultGrepMaxResults.
	MaxResults int
}

// DefaultGrepMaxResults is the ceiling applied when GrepOptions.MaxResults
// is unset.
const DefaultGrepMaxResults = 100

// defaultIgnoredDirs are pruned from every enumeration (files, tree, grep).
var defaultIgnoredDirs = []string{"**/node_modules/**", "**/.git/**"}

// grepIgnoredFiles is the extra ignore grep applies on top of defaultIgnoredDirs.
var grepIgnoredFiles = []string{"**/*.min.js"}

const maxGrepLineLen = 200
