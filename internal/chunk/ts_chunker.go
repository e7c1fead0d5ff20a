package chunk

import (
	"context"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// tsChunker extracts one CodeChunk per top-level declaration from a
// TypeScript/JavaScript-family file: named functions, arrow/function-
// expression variable declarations, classes (one chunk for the class plus
// one per method), interfaces, type aliases, and enums. Grounded on the
// teacher's internal/chunk/code_chunker.go + extractor.go symbol-extraction
// walk, adapted from token-budget splitting to one-chunk-per-declaration.
type tsChunker struct {
	parser   *Parser
	language string
}

// newTSChunker builds a chunker bound to one of "typescript", "tsx",
// "javascript", or "jsx".
func newTSChunker(language string) *tsChunker {
	return &tsChunker{parser: NewParser(), language: language}
}

func (c *tsChunker) Chunk(path string, source []byte) ([]CodeChunk, error) {
	tree, err := c.parser.Parse(context.Background(), source, c.language)
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindInternal, "chunk.ts", err)
	}
	if tree == nil || tree.Root == nil {
		return nil, nil
	}

	var out []CodeChunk
	for _, top := range tree.Root.Children {
		out = append(out, c.chunkTopLevel(path, top, source)...)
	}
	return out, nil
}

// chunkTopLevel classifies one top-level statement, unwrapping
// export/export-default wrappers first.
func (c *tsChunker) chunkTopLevel(path string, n *Node, source []byte) []CodeChunk {
	n = unwrapExport(n)
	if n == nil {
		return nil
	}

	switch n.Type {
	case "function_declaration":
		name := identifierChild(n, source, "identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindFunction, "")}

	case "lexical_declaration", "variable_declaration":
		return c.chunkVariableDeclaration(path, n, source)

	case "class_declaration":
		return c.chunkClass(path, n, source)

	case "interface_declaration":
		name := identifierChild(n, source, "type_identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindInterface, "")}

	case "type_alias_declaration":
		name := identifierChild(n, source, "type_identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindType, "")}

	case "enum_declaration":
		name := identifierChild(n, source, "identifier")
		if name == "" {
			name = identifierChild(n, source, "type_identifier")
		}
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindEnum, "")}
	}
	return nil
}

// chunkVariableDeclaration handles `const foo = () => {}` / `const foo =
// function() {}` style bindings. Declarations whose initializer is not a
// function are not emitted as chunks.
func (c *tsChunker) chunkVariableDeclaration(path string, n *Node, source []byte) []CodeChunk {
	var out []CodeChunk
	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}
		var name string
		var isFunc bool
		for _, gc := range child.Children {
			if gc.Type == "identifier" {
				name = gc.GetContent(source)
			}
			if gc.Type == "arrow_function" || gc.Type == "function" || gc.Type == "function_expression" {
				isFunc = true
			}
		}
		if name != "" && isFunc {
			out = append(out, c.makeChunk(path, source, n, name, KindFunction, ""))
		}
	}
	return out
}

// chunkClass emits one chunk for the class itself and one per method.
func (c *tsChunker) chunkClass(path string, n *Node, source []byte) []CodeChunk {
	name := identifierChild(n, source, "type_identifier")
	if name == "" {
		name = identifierChild(n, source, "identifier")
	}
	if name == "" {
		return nil
	}

	out := []CodeChunk{c.makeChunk(path, source, n, name, KindClass, "")}

	body := n.FindChildByType("class_body")
	if body == nil {
		return out
	}
	for _, member := range body.Children {
		if member.Type != "method_definition" {
			continue
		}
		methodName := propertyName(member, source)
		if methodName == "" {
			continue
		}
		out = append(out, c.makeChunk(path, source, member, methodName, KindMethod, name))
	}
	return out
}

func (c *tsChunker) makeChunk(path string, source []byte, n *Node, identifier string, kind Kind, parent string) CodeChunk {
	return CodeChunk{
		File:       path,
		Identifier: identifier,
		Kind:       kind,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Content:    n.GetContent(source),
		Parent:     parent,
	}
}

// unwrapExport descends through `export` and `export default` wrappers to
// the declaration they carry.
func unwrapExport(n *Node) *Node {
	for n != nil && n.Type == "export_statement" {
		var next *Node
		for _, child := range n.Children {
			switch child.Type {
			case "export", "default", "\"export\"", "\"default\"":
				continue
			default:
				next = child
			}
			if next != nil {
				break
			}
		}
		if next == nil {
			return nil
		}
		n = next
	}
	return n
}

// identifierChild returns the content of the first direct child matching
// nodeType.
func identifierChild(n *Node, source []byte, nodeType string) string {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child.GetContent(source)
		}
	}
	return ""
}

// propertyName extracts a method_definition's name, which tree-sitter
// represents as a property_identifier (or, for computed names, skipped).
func propertyName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "property_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}
