package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPickerCandidates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt":       "a\n",
		"src/b.go":    "package b\n",
		".hidden/x":   "x\n",
		".dotfile":    "d\n",
		"ignored.log": "i\n",
		".gitignore":  "*.log\n",
	})

	got, err := listPickerCandidates(dir, NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "src/b.go"}, got)
}

func TestListPickerCandidatesNoGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"one.txt":     "1\n",
		"deep/two.md": "2\n",
	})

	got, err := listPickerCandidates(dir, NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, []string{"deep/two.md", "one.txt"}, got)
}

func TestListPickerCandidatesMissingRoot(t *testing.T) {
	// An unreadable root is not fatal; the picker just has nothing to offer.
	got, err := listPickerCandidates(filepath.Join(t.TempDir(), "ghost"), NopLogger{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStatIsRegular(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"f.txt": "x\n"})

	assert.True(t, statIsRegular(filepath.Join(dir, "f.txt")))
	assert.False(t, statIsRegular(dir))
	assert.False(t, statIsRegular(filepath.Join(dir, "missing")))
}

func TestStatIsDir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"f.txt": "x\n"})

	assert.True(t, statIsDir(dir))
	assert.False(t, statIsDir(filepath.Join(dir, "f.txt")))
	assert.False(t, statIsDir(filepath.Join(dir, "missing")))
}
