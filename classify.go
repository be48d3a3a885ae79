package main

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Extensions that short-circuit classification before any MIME or content
// inspection happens. The extension verdict always wins.
var binaryExtensions = map[string]bool{
	".bin": true, ".jpg": true, ".jpeg": true, ".pdf": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".zip": true, ".tar": true, ".gz": true,
}

var textExtensions = map[string]bool{
	".txt": true, ".py": true, ".md": true, ".json": true,
	".yml": true, ".yaml": true, ".ini": true, ".cfg": true,
	".sh": true, ".bash": true, ".js": true, ".css": true,
	".html": true, ".xml": true, ".rst": true, ".bat": true,
	".java": true, ".cpp": true, ".h": true, ".hpp": true,
	".cs": true, ".rb": true, ".php": true, ".go": true, ".rs": true,
}

// MIME types outside text/* that still count as text.
var textLikeMIMETypes = map[string]bool{
	"application/json": true,
	"application/xml":  true,
}

// TextClassifier decides whether a file is text or binary.
type TextClassifier struct {
	log       Logger
	extraText map[string]bool
}

func NewTextClassifier(log Logger) *TextClassifier {
	if log == nil {
		log = NopLogger{}
	}
	return &TextClassifier{log: log}
}

// MarkTextExtensions widens this classifier's text set. The conversion
// scanner marks container formats such as .xlsx so directory enumeration
// keeps them even though their content is not text. Extensions in the
// binary set stay binary.
func (c *TextClassifier) MarkTextExtensions(exts ...string) {
	if c.extraText == nil {
		c.extraText = make(map[string]bool, len(exts))
	}
	for _, ext := range exts {
		c.extraText[strings.ToLower(ext)] = true
	}
}

// IsText classifies path, in order: known extension sets, MIME type guessed
// from the name, then a bounded content sniff. Unknown content with no NUL
// byte in its first 1 KB is treated as text. I/O trouble while sniffing
// means binary, never an error.
func (c *TextClassifier) IsText(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))

	if binaryExtensions[ext] {
		return false
	}
	if textExtensions[ext] || c.extraText[ext] {
		return true
	}

	if mt := mime.TypeByExtension(ext); mt != "" {
		if mediatype, _, err := mime.ParseMediaType(mt); err == nil {
			mt = mediatype
		}
		if strings.HasPrefix(mt, "text/") {
			return true
		}
		if textLikeMIMETypes[mt] {
			return true
		}
		// A recognized non-text type, e.g. application/octet-stream.
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		c.log.Debugf("classify: cannot open %s: %v", path, err)
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		c.log.Debugf("classify: cannot read %s: %v", path, err)
		return false
	}
	if bytes.IndexByte(buf[:n], 0x00) >= 0 {
		return false
	}
	return true
}
