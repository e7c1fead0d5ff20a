package chunk

import (
	"context"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// rustChunker extracts one CodeChunk per top-level Rust item: functions,
// structs, enums, traits, mods, and macro definitions as single chunks; impl
// blocks as one chunk for the block itself (identifier "impl T" or "impl
// Trait for T") plus one method chunk per contained function, parented to
// the impl signature. Grounded on the same extractor.go symbol-walk pattern
// used for ts_chunker.go, applied to Rust's grammar.
type rustChunker struct {
	parser *Parser
}

func newRustChunker() *rustChunker {
	return &rustChunker{parser: NewParser()}
}

func (c *rustChunker) Chunk(path string, source []byte) ([]CodeChunk, error) {
	tree, err := c.parser.Parse(context.Background(), source, "rust")
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindInternal, "chunk.rust", err)
	}
	if tree == nil || tree.Root == nil {
		return nil, nil
	}

	var out []CodeChunk
	for _, n := range tree.Root.Children {
		out = append(out, c.chunkItem(path, n, source)...)
	}
	return out, nil
}

func (c *rustChunker) chunkItem(path string, n *Node, source []byte) []CodeChunk {
	switch n.Type {
	case "function_item":
		name := identifierChild(n, source, "identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindFunction, "")}

	case "struct_item":
		name := identifierChild(n, source, "type_identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindStruct, "")}

	case "enum_item":
		name := identifierChild(n, source, "type_identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindEnum, "")}

	case "trait_item":
		name := identifierChild(n, source, "type_identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindTrait, "")}

	case "mod_item":
		name := identifierChild(n, source, "identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindMod, "")}

	case "macro_definition":
		name := identifierChild(n, source, "identifier")
		if name == "" {
			return nil
		}
		return []CodeChunk{c.makeChunk(path, source, n, name, KindMacro, "")}

	case "impl_item":
		return c.chunkImpl(path, n, source)
	}
	return nil
}

// chunkImpl handles `impl Type { ... }` and `impl Trait for Type { ... }`.
func (c *rustChunker) chunkImpl(path string, n *Node, source []byte) []CodeChunk {
	signature := implSignature(n, source)
	if signature == "" {
		return nil
	}

	out := []CodeChunk{c.makeChunk(path, source, n, signature, KindImpl, "")}

	body := n.FindChildByType("declaration_list")
	if body == nil {
		return out
	}
	for _, member := range body.Children {
		if member.Type != "function_item" {
			continue
		}
		name := identifierChild(member, source, "identifier")
		if name == "" {
			continue
		}
		out = append(out, c.makeChunk(path, source, member, name, KindMethod, signature))
	}
	return out
}

// implSignature renders "impl T" or "impl Trait for T" from an impl_item's
// type_identifier children: the first is the trait when there are two (the
// second preceded by a "for" keyword), or the sole self type otherwise.
func implSignature(n *Node, source []byte) string {
	var types []string
	for _, child := range n.Children {
		switch child.Type {
		case "type_identifier", "generic_type", "scoped_type_identifier":
			types = append(types, child.GetContent(source))
		}
	}
	switch len(types) {
	case 0:
		return ""
	case 1:
		return "impl " + types[0]
	default:
		return "impl " + types[0] + " for " + types[len(types)-1]
	}
}

func (c *rustChunker) makeChunk(path string, source []byte, n *Node, identifier string, kind Kind, parent string) CodeChunk {
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
