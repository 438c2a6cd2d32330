package tokens

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	// 40 chars of prose, 8 words: chars/4 = 10 beats words*4/3 = 10
	prose := []byte("the quick brown fox jumps over lazy dogs")
	assert.Equal(t, 10, Estimate(prose))

	// Word-dense text where the word estimate dominates
	dense := []byte("a b c d e f g h i j k l")
	assert.Equal(t, 16, Estimate(dense))

	assert.Equal(t, 0, Estimate(nil))
}

func TestCount(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Main\n\nSome prose here.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "guide.md"), []byte("# Guide\n\nMore prose.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not counted"), 0o644))

	report, err := Count(root, nil)
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	// Deterministic ordering by path
	assert.Equal(t, "README.md", report.Files[0].Path)
	assert.Equal(t, "docs/guide.md", report.Files[1].Path)

	total := 0
	for _, fc := range report.Files {
		assert.Positive(t, fc.Bytes)
		assert.Positive(t, fc.Words)
		assert.Positive(t, fc.Tokens)
		total += fc.Tokens
	}
	assert.Equal(t, total, report.Total)
}

func TestCountCustomPatterns(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("beta"), 0o644))

	report, err := Count(root, []string{"**/*.txt"})
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.Equal(t, "b.txt", report.Files[0].Path)
}

func TestCountOverlappingPatternsDeduplicate(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("alpha"), 0o644))

	report, err := Count(root, []string{"**/*.md", "a.md"})
	require.NoError(t, err)
	assert.Len(t, report.Files, 1)
}

func TestCountBadPattern(t *testing.T) {
	_, err := Count(t.TempDir(), []string{"[unterminated"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad pattern")
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 3, countWords([]byte("one  two\nthree")))
	assert.Equal(t, 0, countWords([]byte("   \n\t")))
	assert.Equal(t, 0, countWords(nil))
}
