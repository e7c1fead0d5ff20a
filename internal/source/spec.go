package source

import (
	"strings"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// ParsedSpec is the result of parsing a fetch spec string (specification
// §6's grammar) into a concrete source identity and version/ref.
type ParsedSpec struct {
	Type    Type
	Name    string // bare package name, or "owner/repo" for git hosts
	Version string // version (packages) or ref (repos); empty means latest
	Host    string // "github.com" or "gitlab.com" for repo specs
}

// SourceName returns the canonical Registry key for this spec: the bare
// package name for registries, "host/owner/repo" for repositories.
func (p ParsedSpec) SourceName() string {
	if p.Type == TypeRepo {
		return p.Host + "/" + p.Name
	}
	return p.Name
}

// ParseSpec parses one fetch spec per the grammar in specification §6.
//
//	spec        := bareName [ "@" version ]
//	             | "npm:" name [ "@" version ]
//	             | ("pypi:"|"pip:") name [ "==" version ]
//	             | ("crates:"|"cargo:") name [ "@" version ]
//	             | "github:" owner "/" repo [ "@" ref ]
//	             | "gitlab:" owner "/" repo [ "@" ref ]
//	             | owner "/" repo [ "@" ref ]      (* GitHub default *)
func ParseSpec(spec string) (ParsedSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ParsedSpec{}, opensrcerr.New(opensrcerr.KindInvalidSpec, "source.ParseSpec", "empty spec")
	}

	if rest, ok := cut(spec, "npm:"); ok {
		name, version := splitAt(rest, "@")
		return ParsedSpec{Type: TypeNPM, Name: name, Version: version}, nil
	}
	if rest, ok := cutAny(spec, "pypi:", "pip:"); ok {
		name, version := splitAt(rest, "==")
		return ParsedSpec{Type: TypePyPI, Name: name, Version: version}, nil
	}
	if rest, ok := cutAny(spec, "crates:", "cargo:"); ok {
		name, version := splitAt(rest, "@")
		return ParsedSpec{Type: TypeCrates, Name: name, Version: version}, nil
	}
	if rest, ok := cut(spec, "github:"); ok {
		ownerRepo, ref := splitAt(rest, "@")
		if !strings.Contains(ownerRepo, "/") {
			return ParsedSpec{}, opensrcerr.New(opensrcerr.KindInvalidSpec, "source.ParseSpec", "github spec requires owner/repo")
		}
		return ParsedSpec{Type: TypeRepo, Host: "github.com", Name: ownerRepo, Version: ref}, nil
	}
	if rest, ok := cut(spec, "gitlab:"); ok {
		ownerRepo, ref := splitAt(rest, "@")
		if !strings.Contains(ownerRepo, "/") {
			return ParsedSpec{}, opensrcerr.New(opensrcerr.KindInvalidSpec, "source.ParseSpec", "gitlab spec requires owner/repo")
		}
		return ParsedSpec{Type: TypeRepo, Host: "gitlab.com", Name: ownerRepo, Version: ref}, nil
	}

	// Bare owner/repo defaults to GitHub; anything else is a bare
	// registry package name, defaulting to npm.
	ownerRepo, ref := splitAt(spec, "@")
	if strings.Contains(ownerRepo, "/") {
		return ParsedSpec{Type: TypeRepo, Host: "github.com", Name: ownerRepo, Version: ref}, nil
	}

	name, version := splitAt(spec, "@")
	return ParsedSpec{Type: TypeNPM, Name: name, Version: version}, nil
}

func cut(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

func cutAny(s string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := cut(s, p); ok {
			return rest, true
		}
	}
	return "", false
}

func splitAt(s, sep string) (head, tail string) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+len(sep):]
}
