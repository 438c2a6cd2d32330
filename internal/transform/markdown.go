package transform

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// StripComments removes HTML comments from markdown source, including
// multi-line comments.
func StripComments(src []byte) []byte {
	return htmlCommentRe.ReplaceAll(src, nil)
}

// heading is an internal record of one heading found in the source: its
// verbatim title text, nesting level, and the byte offsets of the heading
// line within src.
type heading struct {
	title string
	level int
	start int // offset of the heading line start
	end   int // offset just past the heading content
}

func parseHeadings(src []byte) []heading {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var heads []heading
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*gmast.Heading)
		if !ok {
			continue
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			continue
		}
		first := lines.At(0)
		last := lines.At(lines.Len() - 1)
		heads = append(heads, heading{
			title: strings.TrimSpace(string(src[first.Start:last.Stop])),
			level: h.Level,
			start: lineStart(src, first.Start),
			end:   last.Stop,
		})
	}
	return heads
}

// lineStart walks back from offset to the beginning of its line. Heading
// segments cover the heading text but not the leading "## " marker.
func lineStart(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	idx := bytes.LastIndexByte(src[:offset], '\n')
	return idx + 1
}

// Sections splits a markdown document into heading-delimited sections.
// Body text between headings is preserved verbatim. A document with no
// headings does not fail: it degrades to a single plain-text section.
func Sections(src []byte) []Section {
	heads := parseHeadings(src)
	if len(heads) == 0 {
		return []Section{{Body: string(src)}}
	}

	sections := make([]Section, 0, len(heads)+1)

	// Text before the first heading becomes an untitled preamble section.
	if pre := strings.TrimSpace(string(src[:heads[0].start])); pre != "" {
		sections = append(sections, Section{Body: pre})
	}

	for i, h := range heads {
		bodyEnd := len(src)
		if i+1 < len(heads) {
			bodyEnd = heads[i+1].start
		}
		bodyStart := h.end
		if bodyStart > bodyEnd {
			bodyStart = bodyEnd
		}
		sections = append(sections, Section{
			Title: h.title,
			Level: h.level,
			Body:  strings.TrimSpace(string(src[bodyStart:bodyEnd])),
		})
	}
	return sections
}

// DocumentTitle returns the text of the first level-1 heading, or ok=false
// when the document has none.
func DocumentTitle(src []byte) (string, bool) {
	for _, h := range parseHeadings(src) {
		if h.level == 1 {
			return h.title, true
		}
	}
	return "", false
}

// mainContent returns the document text from the first level-2 heading
// onwards. Everything before it is header/introduction material that the
// published guide omits. Documents without a level-2 heading are returned
// whole; the caller treats that as a degraded (but not failed) parse.
func mainContent(src []byte) ([]byte, bool) {
	for _, h := range parseHeadings(src) {
		if h.level == 2 {
			return src[h.start:], true
		}
	}
	return src, false
}
