// Package tokens estimates the token usage of designated files, for
// keeping AI-context documents inside model budgets. The estimate is a
// heuristic (roughly four characters per token for English prose), not a
// model-specific tokenizer.
package tokens

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileCount is the estimate for one file.
type FileCount struct {
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
	Words  int    `json:"words"`
	Tokens int    `json:"tokens"`
}

// Report lists per-file estimates and the total.
type Report struct {
	Files []FileCount `json:"files"`
	Total int         `json:"total"`
}

// Count estimates token usage for every file under root matched by the
// doublestar patterns. Empty patterns means every markdown file.
func Count(root string, patterns []string) (*Report, error) {
	if len(patterns) == 0 {
		patterns = []string{"**/*.md"}
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
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

	report := &Report{}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		fc := FileCount{
			Path:   rel,
			Bytes:  len(data),
			Words:  countWords(data),
			Tokens: Estimate(data),
		}
		report.Files = append(report.Files, fc)
		report.Total += fc.Tokens
	}
	return report, nil
}

// Estimate approximates the token count of a text. English prose runs
// about four characters per token; word-dense text (code, tables) runs
// about three tokens per four words. The larger estimate is returned so
// budget checks err on the safe side.
func Estimate(data []byte) int {
	byChars := len(data) / 4
	byWords := countWords(data) * 4 / 3
	if byWords > byChars {
		return byWords
	}
	return byChars
}

func countWords(data []byte) int {
	return len(strings.Fields(string(data)))
}
