package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRules(t *testing.T, root string) *IgnoreRules {
	t.Helper()
	log := NopLogger{}
	classifier := NewTextClassifier(log)
	matcher := NewPatternMatcher(log)
	return LoadIgnoreRules(root, classifier, matcher, log)
}

func TestIgnoreRulesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"src/app.py":        "print(1)\n",
		"__pycache__/m.pyc": "x",
		"node_modules/x.js": "var x\n",
	})
	rules := newTestRules(t, dir)

	assert.False(t, rules.ShouldIgnore(filepath.Join(dir, "src", "app.py"), dir, nil))
	assert.False(t, rules.ShouldIgnore(filepath.Join(dir, "src"), dir, nil))
	assert.True(t, rules.ShouldIgnore(filepath.Join(dir, "__pycache__"), dir, nil))
	assert.True(t, rules.ShouldIgnore(filepath.Join(dir, "node_modules"), dir, nil))
}

func TestIgnoreRulesCountsBinary(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"img.jpg": "\xff\xd8\xff"})
	rules := newTestRules(t, dir)

	rec := &ExportStats{}
	assert.True(t, rules.ShouldIgnore(filepath.Join(dir, "img.jpg"), dir, rec))
	assert.Equal(t, 1, rec.BinaryFiles)
	assert.Equal(t, 1, rec.SkippedFiles)
}

func TestIgnoreRulesGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		".gitignore":     "# generated output\n\nbuild/*\n!build/keep.txt\ndist/\n",
		"build/keep.txt": "keep\n",
		"build/out.txt":  "out\n",
		"dist/x.txt":     "x\n",
		"main.go":        "package main\n",
	})
	rules := newTestRules(t, dir)

	assert.True(t, rules.ShouldIgnore(filepath.Join(dir, "build", "out.txt"), dir, nil))
	// The override names one file; its siblings stay ignored.
	assert.False(t, rules.ShouldIgnore(filepath.Join(dir, "build", "keep.txt"), dir, nil))
	// A trailing-slash directory pattern prunes the directory itself.
	assert.True(t, rules.ShouldIgnore(filepath.Join(dir, "dist"), dir, nil))
	assert.False(t, rules.ShouldIgnore(filepath.Join(dir, "main.go"), dir, nil))
}

func TestIgnoreRulesCommentLinesAreInert(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		".gitignore": "# main.go\n",
		"main.go":    "package main\n",
	})
	rules := newTestRules(t, dir)

	assert.False(t, rules.ShouldIgnore(filepath.Join(dir, "main.go"), dir, nil))
}

func TestIgnoreRulesInvalidPatternDropped(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		".gitignore": "**x\n",
		"x":          "content\n",
	})
	rules := newTestRules(t, dir)

	assert.False(t, rules.ShouldIgnore(filepath.Join(dir, "x"), dir, nil))
}

func TestIgnoreRulesWithoutGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"venv/lib.py": "x\n", "src/a.py": "y\n"})
	rules := newTestRules(t, dir)

	assert.True(t, rules.ShouldIgnore(filepath.Join(dir, "venv"), dir, nil))
	assert.False(t, rules.ShouldIgnore(filepath.Join(dir, "src"), dir, nil))
}
