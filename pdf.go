package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // margin in mm
	pdfLineHeight = 5   // line height in mm
	pdfFontSize   = 9
	pdfTabWidth   = 4 // spaces per tab
)

// renderPDF writes content to a syntax-highlighted A4 PDF at outputPath.
// title becomes the page heading. When highlighting fails the content is
// written as plain Courier text instead.
func renderPDF(outputPath, title, content string, hints *LanguageHints, log Logger) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, fmt.Sprintf("File: %s", title), "", "L", false)
	pdf.Ln(pdfLineHeight / 2)
	pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
	pdf.Ln(pdfLineHeight / 2)

	if err := writeHighlightedText(pdf, style, content, title, hints); err != nil {
		log.Warnf("syntax highlighting failed for %s, writing plain text: %v", title, err)
		pdf.SetFont("Courier", "", pdfFontSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, content, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("saving PDF to %s: %w", outputPath, err)
	}
	log.Debugf("saved PDF to %s", outputPath)
	return nil
}

// writeHighlightedText tokenises content with chroma and writes each
// token in the style's font face and color. The lexer comes from content
// analysis first, then the language hints for path, then the fallback.
func writeHighlightedText(pdf *gofpdf.Fpdf, style *chroma.Style, content, path string, hints *LanguageHints) error {
	lexer := lexers.Analyse(content)
	if lexer == nil {
		if lang, ok := hints.LanguageFor(path); ok {
			lexer = lexers.Get(lang)
		}
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return fmt.Errorf("tokenising %s: %w", path, err)
	}

	pdf.SetFont("Courier", "", pdfFontSize)

	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)

		fontStyle := ""
		if entry.Bold == chroma.Yes {
			fontStyle += "B"
		}
		if entry.Italic == chroma.Yes {
			fontStyle += "I"
		}
		pdf.SetFontStyle(fontStyle)

		if entry.Colour.IsSet() {
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		} else if fg := style.Get(chroma.Text).Colour; fg.IsSet() {
			pdf.SetTextColor(int(fg.Red()), int(fg.Green()), int(fg.Blue()))
		} else {
			pdf.SetTextColor(0, 0, 0)
		}

		value := strings.ReplaceAll(token.Value, "\t", strings.Repeat(" ", pdfTabWidth))
		pdf.Write(pdfLineHeight, value)
	}
	pdf.Ln(-1)

	return nil
}
