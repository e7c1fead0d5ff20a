package fileaccess

import (
	"path/filepath"
	"strings"
)

// matchGlob reports whether the slash-separated relative path matches
// pattern, where "**" in pattern matches zero or more whole path segments
// and every other segment is matched with filepath.Match (supporting "*",
// "?" and character classes within a single segment).
func matchGlob(pattern, relPath string) bool {
	return matchSegments(splitSegments(pattern), splitSegments(relPath))
}

func splitSegments(p string) []string {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pat, name []string) bool {
	if len(pat) == 0 {
		return len(name) == 0
	}
	if pat[0] == "**" {
		if matchSegments(pat[1:], name) {
			return true
		}
		if len(name) == 0 {
			return false
		}
		return matchSegments(pat, name[1:])
	}
	if len(name) == 0 {
		return false
	}
	ok, _ := filepath.Match(pat[0], name[0])
	if !ok {
		return false
	}
	return matchSegments(pat[1:], name[1:])
}

// matchesAny reports whether relPath matches any of patterns.
func matchesAny(relPath string, patterns []string) bool {
	for _, p := range patterns {
		if matchGlob(p, relPath) {
			return true
		}
	}
	return false
}

// isIgnoredDir reports whether the directory at relPath (relative to a
// source root, no trailing slash) should be pruned from a walk.
func isIgnoredDir(relPath string) bool {
	return matchesAny(relPath, defaultIgnoredDirs)
}
