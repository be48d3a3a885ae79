package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles materializes a fixture tree under root. Keys are slash
// separated relative paths, values are file contents.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func baseNames(paths []string) []string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return names
}

func newTestWalker(t *testing.T, root string, opts ExportOptions) *Walker {
	t.Helper()
	return newExporter(root, opts, NopLogger{}).Walker
}

func TestWalkFiltersTree(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.py":               "print(1)\n",
		"b.txt":              "hello\n",
		"sub/c.py":           "x = 2\n",
		"data.bin":           "\x00\x01binary",
		"node_modules/x.js":  "var x\n",
		".hidden/secret.txt": "s\n",
		".dotfile":           "d\n",
	})

	files, err := newTestWalker(t, dir, ExportOptions{}).Walk(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.txt", "c.py"}, baseNames(files))
}

func TestWalkCountsBinarySkips(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.py":     "print(1)\n",
		"data.bin": "\x00\x01",
	})

	rec := &ExportStats{}
	files, err := newTestWalker(t, dir, ExportOptions{}).Walk(dir, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, baseNames(files))
	assert.Equal(t, 1, rec.BinaryFiles)
	assert.Equal(t, 1, rec.SkippedFiles)
	assert.Equal(t, 0, rec.ProcessedFiles)
}

func TestWalkSizeLimit(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"small.txt": "ok\n",
		"edge.txt":  strings.Repeat("b", 1024),
		"big.txt":   strings.Repeat("a", 2048),
	})

	files, err := newTestWalker(t, dir, ExportOptions{MaxSizeKB: 1}).Walk(dir, nil)
	require.NoError(t, err)
	// Exactly at the cap still passes; only strictly larger files drop.
	assert.Equal(t, []string{"edge.txt", "small.txt"}, baseNames(files))
}

func TestWalkPatternModes(t *testing.T) {
	tests := []struct {
		name  string
		mode  string
		input string
		want  []string
	}{
		{"exclude drops matches", "exclude", "*.py", []string{"b.txt", "readme.md"}},
		{"include keeps matches only", "include", "*.py", []string{"a.py", "c.py"}},
		{"exclude directory pattern", "exclude", "docs/*", []string{"a.py", "b.txt", "c.py"}},
		{"multiple patterns", "exclude", "*.py;docs/*", []string{"b.txt"}},
		{"blank input keeps everything", "exclude", "", []string{"a.py", "b.txt", "readme.md", "c.py"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{
				"a.py":           "1\n",
				"b.txt":          "2\n",
				"sub/c.py":       "3\n",
				"docs/readme.md": "4\n",
			})

			w := newTestWalker(t, dir, ExportOptions{PatternMode: tt.mode, PatternInput: tt.input})
			files, err := w.Walk(dir, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, baseNames(files))
		})
	}
}

func TestWalkHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		".gitignore": "*.log\n!keep.log\n",
		"app.log":    "drop\n",
		"keep.log":   "keep\n",
		"a.txt":      "stay\n",
	})

	files, err := newTestWalker(t, dir, ExportOptions{}).Walk(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "keep.log"}, baseNames(files))
}

func TestWalkRejectsBadOptions(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "x\n"})

	t.Run("invalid pattern mode", func(t *testing.T) {
		_, err := newTestWalker(t, dir, ExportOptions{PatternMode: "both"}).Walk(dir, nil)
		assert.ErrorIs(t, err, errInvalidPatternMode)
	})
	t.Run("negative size limit", func(t *testing.T) {
		_, err := newTestWalker(t, dir, ExportOptions{MaxSizeKB: -1}).Walk(dir, nil)
		assert.ErrorIs(t, err, errInvalidSizeLimit)
	})
	t.Run("missing root", func(t *testing.T) {
		_, err := newTestWalker(t, dir, ExportOptions{}).Walk(filepath.Join(dir, "missing"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "directory not found")
	})
	t.Run("root is a file", func(t *testing.T) {
		_, err := newTestWalker(t, dir, ExportOptions{}).Walk(filepath.Join(dir, "a.txt"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})
}

func TestWalkDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"z.txt":     "1\n",
		"a.txt":     "2\n",
		"m/sub.txt": "3\n",
		"b/n.txt":   "4\n",
	})

	w := newTestWalker(t, dir, ExportOptions{})
	first, err := w.Walk(dir, nil)
	require.NoError(t, err)
	second, err := w.Walk(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, sort.StringsAreSorted(first))
}

func TestWalkProgressCallback(t *testing.T) {
	dir := t.TempDir()
	files := make(map[string]string)
	for i := 0; i < 25; i++ {
		files[fmt.Sprintf("f%02d.txt", i)] = "x\n"
	}
	writeFiles(t, dir, files)

	var ticks []int
	w := newTestWalker(t, dir, ExportOptions{})
	w.Progress = func(accepted int) { ticks = append(ticks, accepted) }
	_, err := w.Walk(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, ticks)
}

func TestContainsVCSSegment(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"a/b.txt", false},
		{".git/config", true},
		{"vendor/.hg/store", true},
		{"gitlike/file", false},
		{"sub/.svn/entries", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsVCSSegment(tt.rel), tt.rel)
	}
}
