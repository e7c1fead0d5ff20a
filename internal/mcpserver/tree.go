package mcpserver

import (
	"sort"
	"strings"

	"github.com/dmmulroy/opensrc-mcp/internal/sandbox"
)

// buildTree turns a flat list of file paths (forward-slash separated,
// relative to a source root — the shape fileaccess.Files already returns)
// into the nested sandbox.TreeNode shape the opensrc.tree() sandbox call
// promises. maxDepth truncates children beyond that many path segments
// (0 means unlimited); a truncated directory is still reported, just with
// no Children populated.
func buildTree(paths []string, maxDepth int) sandbox.TreeNode {
	root := sandbox.TreeNode{Name: ".", Type: "dir"}
	dirs := map[string]*sandbox.TreeNode{"": &root}

	for _, p := range paths {
		full := strings.Split(p, "/")
		segments := full
		truncated := false
		if maxDepth > 0 && len(segments) > maxDepth {
			segments = segments[:maxDepth]
			truncated = true
		}

		parentKey := ""
		for i, seg := range segments {
			key := parentKey + "/" + seg
			isLeaf := !truncated && i == len(segments)-1
			parent := dirs[parentKey]

			node := findChild(parent, seg)
			if node == nil {
				nodeType := "dir"
				if isLeaf {
					nodeType = "file"
				}
				parent.Children = append(parent.Children, sandbox.TreeNode{Name: seg, Type: nodeType})
				node = &parent.Children[len(parent.Children)-1]
			}
			if node.Type == "dir" {
				dirs[key] = node
			}
			parentKey = key
		}
	}

	sortTree(&root)
	return root
}

func findChild(parent *sandbox.TreeNode, name string) *sandbox.TreeNode {
	for i := range parent.Children {
		if parent.Children[i].Name == name {
			return &parent.Children[i]
		}
	}
	return nil
}

// sortTree orders directories before files, then lexically, matching the
// teacher's preference for deterministic listing order throughout its own
// file-enumeration helpers.
func sortTree(n *sandbox.TreeNode) {
	sort.Slice(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if (a.Type == "dir") != (b.Type == "dir") {
			return a.Type == "dir"
		}
		return a.Name < b.Name
	})
	for i := range n.Children {
		sortTree(&n.Children[i])
	}
}
