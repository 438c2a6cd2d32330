// Package lint checks a documentation tree for broken links. Markdown
// links are extracted from the goldmark AST, anchors are matched against
// heading slugs, and links in generated HTML are covered too.
package lint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Issue is one broken link finding.
type Issue struct {
	File   string `json:"file"`
	Link   string `json:"link"`
	Reason string `json:"reason"`
}

// Report collects the outcome of one lint run.
type Report struct {
	FilesChecked int     `json:"files_checked"`
	Issues       []Issue `json:"issues"`
}

// Clean reports whether the run found no broken links.
func (r *Report) Clean() bool { return len(r.Issues) == 0 }

// Checker walks a documentation tree and verifies every relative link.
type Checker struct {
	root     string
	patterns []string
}

// NewChecker creates a Checker over root. Patterns are doublestar globs
// relative to root; empty means every markdown file.
func NewChecker(root string, patterns []string) *Checker {
	if len(patterns) == 0 {
		patterns = []string{"**/*.md"}
	}
	return &Checker{root: root, patterns: patterns}
}

// Run checks every matched file and returns the findings. External links
// (anything with a scheme) are not fetched; only relative targets and
// anchors are verified.
func (c *Checker) Run() (*Report, error) {
	files, err := c.matchFiles()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(c.root, rel))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		report.FilesChecked++

		var links []string
		if strings.HasSuffix(rel, ".html") {
			links = extractHTMLLinks(data)
		} else {
			links = extractMarkdownLinks(data)
		}

		for _, link := range links {
			if reason, ok := c.checkLink(rel, data, link); !ok {
				report.Issues = append(report.Issues, Issue{File: rel, Link: link, Reason: reason})
			}
		}
	}
	return report, nil
}

func (c *Checker) matchFiles() ([]string, error) {
	fsys := os.DirFS(c.root)
	seen := make(map[string]struct{})
	for _, pattern := range c.patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			seen[m] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// checkLink verifies one link from file. Returns ok=true when the link
// is external or resolves.
func (c *Checker) checkLink(file string, data []byte, link string) (string, bool) {
	if isExternal(link) {
		return "", true
	}

	target, anchor, _ := strings.Cut(link, "#")

	if target == "" {
		// Same-document anchor
		if anchor != "" && !hasAnchor(data, anchor) {
			return fmt.Sprintf("anchor #%s not found", anchor), false
		}
		return "", true
	}

	resolved := filepath.Join(c.root, filepath.Dir(file), filepath.FromSlash(target))
	info, err := os.Stat(resolved)
	if err != nil {
		return "target does not exist", false
	}

	if anchor != "" && !info.IsDir() && strings.HasSuffix(resolved, ".md") {
		targetData, err := os.ReadFile(resolved)
		if err != nil {
			return "target unreadable", false
		}
		if !hasAnchor(targetData, anchor) {
			return fmt.Sprintf("anchor #%s not found in target", anchor), false
		}
	}
	return "", true
}

func isExternal(link string) bool {
	return strings.Contains(link, "://") ||
		strings.HasPrefix(link, "mailto:") ||
		strings.HasPrefix(link, "tel:")
}
