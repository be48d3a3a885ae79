package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExportText(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"hello.py":  "print('hi')\n",
		"notes.txt": "alpha beta\n",
	})
	exports := t.TempDir()

	out, stats, err := LocalExport(ExportOptions{LocalDir: src, ExportsDir: exports}, NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(src)+"_export.txt", filepath.Base(out))
	assert.Equal(t, 2, stats.ProcessedFiles)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "Generated by tessera\n"))
	assert.Contains(t, string(content), "Repository: "+filepath.Base(src)+"\n")
	// No git repository, no commit lines.
	assert.NotContains(t, string(content), "Last Commit:")

	// A second run must not overwrite the first artifact.
	out2, _, err := LocalExport(ExportOptions{LocalDir: src, ExportsDir: exports}, NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(src)+"_export(1).txt", filepath.Base(out2))
}

func TestLocalExportJSON(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"a.py": "x = 1\n"})
	exports := t.TempDir()

	out, _, err := LocalExport(ExportOptions{LocalDir: src, ExportsDir: exports, Format: "json"}, NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc exportDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, filepath.Base(src), doc.Repository)
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "a.py", doc.Files[0].Path)
}

func TestLocalExportSubdir(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"top.txt":  "top\n",
		"pkg/a.py": "1\n",
		"pkg/b.py": "2\n",
	})
	exports := t.TempDir()

	out, stats, err := LocalExport(ExportOptions{LocalDir: src, Subdir: "pkg", ExportsDir: exports}, NopLogger{})
	require.NoError(t, err)
	// The subdirectory becomes the repository label and the name stem.
	assert.Equal(t, "pkg_export.txt", filepath.Base(out))
	assert.Equal(t, 2, stats.ProcessedFiles)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Repository: pkg\n")
	assert.NotContains(t, string(content), "top.txt")
}

func TestLocalExportCustomOutputName(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "x\n"})
	exports := t.TempDir()

	out, _, err := LocalExport(ExportOptions{LocalDir: src, ExportsDir: exports, OutputFile: "custom.txt"}, NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "custom.txt", filepath.Base(out))
	wantDir, err := filepath.Abs(exports)
	require.NoError(t, err)
	assert.Equal(t, wantDir, filepath.Dir(out))
}

func TestLocalExportErrors(t *testing.T) {
	exports := t.TempDir()

	t.Run("no directory provided", func(t *testing.T) {
		_, _, err := LocalExport(ExportOptions{ExportsDir: exports}, NopLogger{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no local directory provided")
	})
	t.Run("missing directory", func(t *testing.T) {
		opts := ExportOptions{LocalDir: filepath.Join(t.TempDir(), "gone"), ExportsDir: exports}
		_, _, err := LocalExport(opts, NopLogger{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base directory does not exist")
	})
	t.Run("missing subdirectory", func(t *testing.T) {
		src := t.TempDir()
		writeFiles(t, src, map[string]string{"a.txt": "x\n"})
		_, _, err := LocalExport(ExportOptions{LocalDir: src, Subdir: "nope", ExportsDir: exports}, NopLogger{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "directory does not exist")
	})
}

func TestLocalExportGitRepo(t *testing.T) {
	src := t.TempDir()
	initTestRepo(t, src, map[string]string{"code.py": "print('Hello Git')\n"}, "Initial commit")
	// Present in the worktree but never committed.
	writeFiles(t, src, map[string]string{"new.txt": "uncommitted\n"})
	exports := t.TempDir()

	out, stats, err := LocalExport(ExportOptions{LocalDir: src, ExportsDir: exports}, NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ProcessedFiles)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Last Commit: Initial commit by Test Author on 2023-01-01\n")
	assert.Contains(t, string(content), "Last Commit: No commits found\n")
}

func TestCloneAndExportRejectsBadURL(t *testing.T) {
	exports := t.TempDir()

	_, _, err := CloneAndExport(ExportOptions{RepoURL: "https://example.com/x", ExportsDir: exports}, NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid GitHub URL format")

	_, _, err = CloneAndExport(ExportOptions{ExportsDir: exports}, NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no repository URL provided")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "json", normalizeFormat("json"))
	assert.Equal(t, "text", normalizeFormat(""))
	assert.Equal(t, "text", normalizeFormat("yaml"))
	assert.Equal(t, ".json", exportExtension("json"))
	assert.Equal(t, ".txt", exportExtension("text"))
	assert.Equal(t, ".txt", exportExtension(""))
}
