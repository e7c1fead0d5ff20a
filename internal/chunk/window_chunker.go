package chunk

import (
	"strconv"
	"strings"
)

const (
	windowSize    = 50
	windowOverlap = 15
)

// windowChunker is the fallback strategy for files no AST or Markdown
// strategy claims: fixed-size overlapping line windows, so every file
// remains searchable even without language-aware structure.
type windowChunker struct{}

func newWindowChunker() *windowChunker {
	return &windowChunker{}
}

func (c *windowChunker) Chunk(path string, source []byte) ([]CodeChunk, error) {
	lines := splitLines(string(source))
	if len(lines) == 0 {
		return nil, nil
	}

	var out []CodeChunk
	step := windowSize - windowOverlap
	for start := 0; start < len(lines); start += step {
		end := start + windowSize
		if end > len(lines) {
			end = len(lines)
		}

		startLine := start + 1
		endLine := end
		content := strings.Join(lines[start:end], "\n")
		out = append(out, CodeChunk{
			File:       path,
			Identifier: identifierForWindow(startLine, endLine),
			Kind:       KindUnknown,
			StartLine:  startLine,
			EndLine:    endLine,
			Content:    content,
		})

		if end == len(lines) {
			break
		}
	}
	return out, nil
}

func identifierForWindow(start, end int) string {
	return "lines_" + strconv.Itoa(start) + "_" + strconv.Itoa(end)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
