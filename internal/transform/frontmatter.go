package transform

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Frontmatter carries the optional YAML header a guide file may open
// with. Every field overrides the value the transformer would otherwise
// infer.
type Frontmatter struct {
	Title   string `yaml:"title"`
	Type    string `yaml:"type"`
	Version string `yaml:"version"`
}

var fmDelimiter = []byte("---")

// splitFrontmatter separates an optional leading YAML frontmatter block
// from the document body. Malformed YAML does not fail the document: the
// block is left in place and treated as content.
func splitFrontmatter(src []byte) (Frontmatter, []byte) {
	var fm Frontmatter

	trimmed := bytes.TrimLeft(src, "\n\r")
	if !bytes.HasPrefix(trimmed, fmDelimiter) {
		return fm, src
	}
	rest := trimmed[len(fmDelimiter):]
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return fm, src
	}

	end := bytes.Index(rest, append([]byte("\n"), fmDelimiter...))
	if end < 0 {
		return fm, src
	}
	block := rest[:end]
	body := rest[end+1+len(fmDelimiter):]
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return Frontmatter{}, src
	}
	return fm, body
}
