package query

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
)

const (
	singlePlaceholderPrefix = "zzzqastvar_"
	multiPlaceholderPrefix  = "zzzqastmulti_"
)

var (
	multiMetavarRe  = regexp.MustCompile(`\$\$\$([A-Z_][A-Z0-9_]*)`)
	singleMetavarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// rewritePattern replaces $NAME and $$$NAME tokens with identifier-shaped
// placeholders so the pattern parses as ordinary (if semantically
// meaningless) source in the target language.
func rewritePattern(pattern string) string {
	rewritten := multiMetavarRe.ReplaceAllString(pattern, multiPlaceholderPrefix+"$1")
	rewritten = singleMetavarRe.ReplaceAllString(rewritten, singlePlaceholderPrefix+"$1")
	return rewritten
}

// AstGrep parses every glob-matched, language-supported file under source
// and searches its AST for pattern, a code snippet containing $NAME
// (single-node) and $$$NAME (zero-or-more-node) metavariables.
// Unparseable files are skipped silently. Results are collected in
// glob/file iteration order and short-circuit at opts.Limit.
func (p *Planner) AstGrep(ctx context.Context, source, pattern string, opts AstGrepOptions) ([]AstMatch, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultAstGrepLimit
	}

	paths, err := p.files.Files(ctx, source, opts.Glob)
	if err != nil {
		return nil, err
	}

	registry := chunk.DefaultRegistry()
	parser := chunk.NewParserWithRegistry(registry)
	defer parser.Close()

	langAllowed := func(name string) bool {
		if len(opts.Lang) == 0 {
			return true
		}
		for _, l := range opts.Lang {
			if l == name {
				return true
			}
		}
		return false
	}

	var results []AstMatch
	for _, path := range paths {
		if len(results) >= limit {
			break
		}

		ext := strings.ToLower(filepath.Ext(path))
		langConfig, ok := registry.GetByExtension(ext)
		if !ok || !langAllowed(langConfig.Name) {
			continue
		}

		content, err := p.files.Read(ctx, source, path)
		if err != nil {
			continue
		}

		candidateSrc := []byte(content)
		tree, err := parser.Parse(ctx, candidateSrc, langConfig.Name)
		if err != nil || tree.Root == nil {
			continue
		}

		rewritten := rewritePattern(pattern)
		patTree, err := parser.Parse(ctx, []byte(rewritten), langConfig.Name)
		if err != nil || patTree.Root == nil || len(patTree.Root.Children) == 0 {
			continue
		}
		patNode := patTree.Root.Children[0]
		patSrc := []byte(rewritten)

		matches := findMatches(patNode, tree.Root, patSrc, candidateSrc, limit-len(results))
		for _, m := range matches {
			results = append(results, AstMatch{
				File:      path,
				Line:      int(m.node.StartPoint.Row) + 1,
				Column:    int(m.node.StartPoint.Column),
				EndLine:   int(m.node.EndPoint.Row) + 1,
				EndColumn: int(m.node.EndPoint.Column),
				Text:      m.node.GetContent(candidateSrc),
				Metavars:  m.captures,
			})
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

type astMatch struct {
	node     *chunk.Node
	captures map[string]string
}

// findMatches walks every node of root looking for a structural match
// against pat, returning up to max hits in tree order.
func findMatches(pat, root *chunk.Node, patSrc, candSrc []byte, max int) []astMatch {
	var out []astMatch
	root.Walk(func(n *chunk.Node) bool {
		if max > 0 && len(out) >= max {
			return false
		}
		captures := map[string]string{}
		if matchNode(pat, n, patSrc, candSrc, captures) {
			out = append(out, astMatch{node: n, captures: captures})
		}
		return true
	})
	return out
}

// placeholderName reports whether n is a bare identifier carrying the
// given placeholder prefix, and if so returns the metavariable name.
func placeholderName(n *chunk.Node, src []byte, prefix string) (string, bool) {
	if n.Type != "identifier" || len(n.Children) != 0 {
		return "", false
	}
	content := n.GetContent(src)
	if strings.HasPrefix(content, prefix) {
		return strings.TrimPrefix(content, prefix), true
	}
	return "", false
}

// unwrapSingleChild follows a chain of single-child nodes down to its
// innermost node. A metavariable used in statement position (e.g. $$$BODY
// as the whole body of a block) parses wrapped in an expression_statement
// rather than as a bare identifier, so placeholder detection has to look
// through that wrapper rather than at the pattern node directly.
func unwrapSingleChild(n *chunk.Node) *chunk.Node {
	for len(n.Children) == 1 {
		n = n.Children[0]
	}
	return n
}

// placeholderNameUnwrapped checks n directly, then (if that fails) its
// innermost single-child descendant, for the given placeholder prefix.
func placeholderNameUnwrapped(n *chunk.Node, src []byte, prefix string) (string, bool) {
	if name, ok := placeholderName(n, src, prefix); ok {
		return name, true
	}
	if inner := unwrapSingleChild(n); inner != n {
		return placeholderName(inner, src, prefix)
	}
	return "", false
}

// matchNode reports whether cand structurally matches pat, recording any
// metavariable captures along the way.
func matchNode(pat, cand *chunk.Node, patSrc, candSrc []byte, captures map[string]string) bool {
	if name, ok := placeholderNameUnwrapped(pat, patSrc, singlePlaceholderPrefix); ok {
		text := cand.GetContent(candSrc)
		if existing, seen := captures[name]; seen {
			return existing == text
		}
		captures[name] = text
		return true
	}

	if pat.Type != cand.Type {
		return false
	}
	if len(pat.Children) == 0 {
		return pat.GetContent(patSrc) == cand.GetContent(candSrc)
	}
	return matchSeq(pat.Children, 0, cand.Children, 0, patSrc, candSrc, captures)
}

// matchSeq matches a pattern child sequence against a candidate child
// sequence, backtracking over how many candidate nodes each $$$ multi
// placeholder consumes.
func matchSeq(pat []*chunk.Node, pi int, cand []*chunk.Node, ci int, patSrc, candSrc []byte, captures map[string]string) bool {
	if pi == len(pat) {
		return ci == len(cand)
	}

	p := pat[pi]
	if name, ok := placeholderNameUnwrapped(p, patSrc, multiPlaceholderPrefix); ok {
		for take := 0; ci+take <= len(cand); take++ {
			saved, hadSaved := captures[name]
			captures[name] = joinContent(cand[ci:ci+take], candSrc)
			if matchSeq(pat, pi+1, cand, ci+take, patSrc, candSrc, captures) {
				return true
			}
			if hadSaved {
				captures[name] = saved
			} else {
				delete(captures, name)
			}
		}
		return false
	}

	if ci >= len(cand) {
		return false
	}
	if !matchNode(p, cand[ci], patSrc, candSrc, captures) {
		return false
	}
	return matchSeq(pat, pi+1, cand, ci+1, patSrc, candSrc, captures)
}

func joinContent(nodes []*chunk.Node, src []byte) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.GetContent(src)
	}
	return strings.Join(parts, ", ")
}
