package chunk

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
var fenceRe = regexp.MustCompile("^(```|~~~)(.*)$")

const minCodeblockLen = 20

// markdownChunker emits one "section" chunk per heading span (heading line
// through the line before the next heading of any level, content before the
// first heading labeled "preamble"), plus a separate "codeblock" chunk for
// every fenced code block longer than minCodeblockLen characters. Adapted
// from the teacher's internal/chunk/markdown_chunker.go, dropping its
// token-budget section-splitting in favor of the specification's
// one-section-one-chunk rule.
type markdownChunker struct{}

func newMarkdownChunker() *markdownChunker {
	return &markdownChunker{}
}

type mdHeading struct {
	line  int // 1-indexed
	title string
}

func (c *markdownChunker) Chunk(path string, source []byte) ([]CodeChunk, error) {
	lines := scanLines(string(source))
	if len(lines) == 0 {
		return nil, nil
	}

	headings := findHeadings(lines)
	chunks := c.sectionChunks(path, lines, headings)
	chunks = append(chunks, c.codeblockChunks(path, lines)...)
	return chunks, nil
}

func (c *markdownChunker) sectionChunks(path string, lines []string, headings []mdHeading) []CodeChunk {
	var out []CodeChunk

	starts := make([]int, 0, len(headings)+1)
	titles := make([]string, 0, len(headings)+1)
	if len(headings) == 0 || headings[0].line > 1 {
		starts = append(starts, 1)
		titles = append(titles, "preamble")
	}
	for _, h := range headings {
		starts = append(starts, h.line)
		titles = append(titles, h.title)
	}

	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		content := strings.TrimRight(strings.Join(lines[start-1:end], "\n"), "\n")

		// A section with a heading is empty when it has no body beyond the
		// heading line itself; the preamble (no heading) is empty when the
		// whole span is blank.
		bodyStart := start
		if titles[i] != "preamble" {
			bodyStart = start + 1
		}
		var body string
		if bodyStart <= end {
			body = strings.Join(lines[bodyStart-1:end], "\n")
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		out = append(out, CodeChunk{
			File:       path,
			Identifier: titles[i],
			Kind:       KindSection,
			StartLine:  start,
			EndLine:    end,
			Content:    content,
		})
	}
	return out
}

func (c *markdownChunker) codeblockChunks(path string, lines []string) []CodeChunk {
	var out []CodeChunk
	inFence := false
	fenceMarker := ""
	lang := ""
	start := 0

	flush := func(end int) {
		content := strings.Join(lines[start-1:end], "\n")
		if len(content) <= minCodeblockLen {
			return
		}
		out = append(out, CodeChunk{
			File:       path,
			Identifier: "codeblock_" + normalizeLang(lang) + "_L" + strconv.Itoa(start),
			Kind:       KindCodeblock,
			StartLine:  start,
			EndLine:    end,
			Content:    content,
		})
	}

	for i, raw := range lines {
		lineNo := i + 1
		m := fenceRe.FindStringSubmatch(strings.TrimSpace(raw))
		if !inFence && m != nil {
			inFence = true
			fenceMarker = m[1]
			lang = strings.TrimSpace(m[2])
			start = lineNo
			continue
		}
		if inFence && strings.HasPrefix(strings.TrimSpace(raw), fenceMarker) {
			flush(lineNo)
			inFence = false
			fenceMarker = ""
			lang = ""
		}
	}
	return out
}

func findHeadings(lines []string) []mdHeading {
	var out []mdHeading
	inFence := false
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if fenceRe.MatchString(trimmed) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingRe.FindStringSubmatch(raw); m != nil {
			out = append(out, mdHeading{line: i + 1, title: strings.TrimSpace(m[2])})
		}
	}
	return out
}

func normalizeLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "plain"
	}
	return strings.ToLower(lang)
}

func scanLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
