package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTextByExtension(t *testing.T) {
	c := NewTextClassifier(NopLogger{})

	tests := []struct {
		path string
		want bool
	}{
		{"main.py", true},
		{"notes.txt", true},
		{"index.html", true},
		{"photo.jpg", false},
		{"report.PDF", false},
		{"archive.zip", false},
		{"lib.so", false},
	}
	for _, tt := range tests {
		// Extension verdicts need no file on disk.
		assert.Equal(t, tt.want, c.IsText(tt.path), tt.path)
	}
}

func TestIsTextByMIMEType(t *testing.T) {
	c := NewTextClassifier(NopLogger{})

	// .png resolves through the built-in MIME table to image/png.
	assert.False(t, c.IsText("chart.png"))
}

func TestIsTextBySniffing(t *testing.T) {
	c := NewTextClassifier(NopLogger{})
	dir := t.TempDir()

	readme := filepath.Join(dir, "README")
	require.NoError(t, os.WriteFile(readme, []byte("plain text, no extension\n"), 0o644))
	assert.True(t, c.IsText(readme))

	blob := filepath.Join(dir, "blob")
	require.NoError(t, os.WriteFile(blob, []byte{0x7f, 0x45, 0x00, 0x01}, 0o644))
	assert.False(t, c.IsText(blob))

	// Unknown extension, nothing on disk: unreadable means binary.
	assert.False(t, c.IsText(filepath.Join(dir, "missing")))
}

func TestMarkTextExtensions(t *testing.T) {
	c := NewTextClassifier(NopLogger{})

	assert.False(t, c.IsText(filepath.Join(t.TempDir(), "book.xlsx")))
	c.MarkTextExtensions(".XLSX")
	assert.True(t, c.IsText("book.xlsx"))

	// The binary set still wins over marked extensions.
	c.MarkTextExtensions(".jpg")
	assert.False(t, c.IsText("photo.jpg"))
}
