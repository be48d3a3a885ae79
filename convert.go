package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
)

// ErrCapabilityUnavailable marks a conversion this build has no codec
// for. It is a normal, reportable condition.
var ErrCapabilityUnavailable = errors.New("conversion capability unavailable")

// Capabilities reports which conversion codecs a build carries. The set
// is fixed when the binary is linked; nothing is installed at runtime.
type Capabilities interface {
	Has(name string) bool
}

type capabilitySet map[string]bool

func (c capabilitySet) Has(name string) bool { return c[name] }

// BuiltinCapabilities returns the codec set linked into this binary.
// Input codecs are named by format (html, xlsx, csv, text); output-side
// codecs carry an -output suffix.
func BuiltinCapabilities() Capabilities {
	return capabilitySet{
		"html":            true,
		"xlsx":            true,
		"csv":             true,
		"text":            true,
		"pdf-output":      true,
		"markdown-output": true,
	}
}

// knownCapabilities is every codec name the tool understands, present in
// this build or not.
var knownCapabilities = []string{
	"csv", "doc", "docx", "html", "image-output",
	"markdown-output", "pdf", "pdf-output", "pptx", "text", "xlsx",
}

// CapabilityNames lists the capabilities caps answers true for, sorted.
func CapabilityNames(caps Capabilities) []string {
	var have []string
	for _, name := range knownCapabilities {
		if caps.Has(name) {
			have = append(have, name)
		}
	}
	sort.Strings(have)
	return have
}

// ParsePageRange expands a page selection such as "1-5", "1,3,5" or
// "1-3,7-9" into a sorted, de-duplicated list of page numbers. Reversed
// bounds are swapped rather than rejected.
func ParsePageRange(pageRange string) ([]int, error) {
	pageRange = strings.TrimSpace(pageRange)
	if pageRange == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(pageRange, ",") {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			bounds := strings.Split(part, "-")
			if len(bounds) != 2 {
				return nil, fmt.Errorf("invalid page number or range: %s", part)
			}
			start, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid page number or range: %s", part)
			}
			if start > end {
				start, end = end, start
			}
			for p := start; p <= end; p++ {
				seen[p] = true
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number or range: %s", part)
		}
		seen[p] = true
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// inputCodec names the codec responsible for a file extension. Anything
// unrecognized is treated as plain text input.
func inputCodec(ext string) string {
	switch ext {
	case ".html", ".htm":
		return "html"
	case ".xlsx":
		return "xlsx"
	case ".csv":
		return "csv"
	case ".docx":
		return "docx"
	case ".doc":
		return "doc"
	case ".pptx":
		return "pptx"
	case ".pdf":
		return "pdf"
	default:
		return "text"
	}
}

// pagedInputs are formats where a page selection means something.
var pagedInputs = map[string]bool{"docx": true, "doc": true, "pptx": true, "pdf": true}

// convertOutputPath names the artifact after its source, keeping the
// input extension for provenance: report.html converted to text becomes
// report.html.text. Collisions get sequential suffixes.
func convertOutputPath(outDir, input, format string) string {
	return SequentialPath(filepath.Join(outDir, filepath.Base(input)+"."+format))
}

// isWebURL reports whether input is a page address rather than a path.
func isWebURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// fetchRemoteHTML downloads a page next to the conversion outputs so the
// regular html codec can pick it up. Only html responses are accepted.
func fetchRemoteHTML(rawURL, outDir string, log Logger) (string, error) {
	log.Infof("Fetching %s", rawURL)
	res, err := http.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: status %d", rawURL, res.StatusCode)
	}
	contentType := res.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return "", fmt.Errorf("fetching %s: not an html page (%s)", rawURL, contentType)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}

	name := "page.html"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != ".html" && ext != ".htm" {
		name += ".html"
	}

	local := SequentialPath(filepath.Join(outDir, name))
	if err := os.WriteFile(local, body, 0o644); err != nil {
		return "", fmt.Errorf("saving %s: %w", local, err)
	}
	return local, nil
}

// ConvertDocument converts a single document, every convertible file
// under a directory, or a fetched web page into opts.Format. It returns
// the artifact path (the output directory when the input was a
// directory).
func ConvertDocument(opts ConvertOptions, caps Capabilities, log Logger) (string, error) {
	if opts.Input == "" {
		return "", errors.New("no input file provided")
	}

	pages, err := ParsePageRange(opts.Pages)
	if err != nil {
		return "", err
	}

	outDir, err := prepareExportsDir(opts.OutputDir, log)
	if err != nil {
		return "", err
	}

	input := opts.Input
	if isWebURL(input) {
		input, err = fetchRemoteHTML(input, outDir, log)
		if err != nil {
			return "", err
		}
		return convertFile(input, opts.Format, outDir, pages, caps, log)
	}

	fi, err := os.Stat(input)
	if err != nil {
		return "", fmt.Errorf("input not found: %s", input)
	}
	if fi.IsDir() {
		return convertDirectory(input, opts.Format, outDir, caps, log)
	}
	return convertFile(input, opts.Format, outDir, pages, caps, log)
}

// convertDirectory enumerates convertible files with the same walker the
// exporter uses and converts each one. Per-file failures warn and the
// scan continues; files no codec claims are skipped quietly.
func convertDirectory(dir, format, outDir string, caps Capabilities, log Logger) (string, error) {
	classifier := NewTextClassifier(log)
	classifier.MarkTextExtensions(".xlsx")
	matcher := NewPatternMatcher(log)
	rules := LoadIgnoreRules(dir, classifier, matcher, log)
	walker := &Walker{Rules: rules, Matcher: matcher, Log: log}

	files, err := walker.Walk(dir, nil)
	if err != nil {
		return "", err
	}

	converted := 0
	for _, path := range files {
		if _, err := convertFile(path, format, outDir, nil, caps, log); err != nil {
			if errors.Is(err, ErrCapabilityUnavailable) {
				log.Debugf("skipping %s: %v", path, err)
			} else {
				log.Warnf("failed to convert %s: %v", path, err)
			}
			continue
		}
		converted++
	}
	if converted == 0 {
		return "", fmt.Errorf("no convertible files under %s", dir)
	}
	log.Infof("Converted %d files into %s", converted, outDir)
	return outDir, nil
}

func convertFile(input, format, outDir string, pages []int, caps Capabilities, log Logger) (string, error) {
	format = strings.ToLower(format)
	if format == "" {
		format = "text"
	}

	ext := strings.ToLower(filepath.Ext(input))
	codec := inputCodec(ext)
	if !caps.Has(codec) {
		return "", fmt.Errorf("%w: no %s input codec in this build", ErrCapabilityUnavailable, codec)
	}
	if len(pages) > 0 && !pagedInputs[codec] {
		log.Warnf("page range ignored for %s input", codec)
	}

	switch codec {
	case "html":
		return convertHTML(input, format, outDir, caps, log)
	case "xlsx":
		return convertXLSX(input, format, outDir, log)
	case "csv":
		return convertCSV(input, format, outDir, log)
	default:
		return convertText(input, format, outDir, caps, log)
	}
}

// htmlToText parses markup and returns its visible text with script and
// style content dropped and whitespace collapsed to one line per block.
func htmlToText(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func convertHTML(input, format, outDir string, caps Capabilities, log Logger) (string, error) {
	raw, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", input, err)
	}

	switch format {
	case "text":
		text, err := htmlToText(raw)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", input, err)
		}
		return writeConverted(outDir, input, format, []byte(text), log)

	case "markdown":
		if !caps.Has("markdown-output") {
			return "", fmt.Errorf("%w: no markdown output in this build", ErrCapabilityUnavailable)
		}
		conv := md.NewConverter("", true, nil)
		markdown, err := conv.ConvertString(string(raw))
		if err != nil {
			return "", fmt.Errorf("converting %s to markdown: %w", input, err)
		}
		return writeConverted(outDir, input, format, []byte(markdown), log)

	case "pdf":
		if !caps.Has("pdf-output") {
			return "", fmt.Errorf("%w: no pdf output in this build", ErrCapabilityUnavailable)
		}
		text, err := htmlToText(raw)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", input, err)
		}
		out := convertOutputPath(outDir, input, format)
		if err := renderPDF(out, filepath.Base(input), text, nil, log); err != nil {
			return "", err
		}
		log.Infof("Converted %s to %s", input, out)
		return out, nil

	default:
		return "", fmt.Errorf("cannot convert html to %s", format)
	}
}

func convertXLSX(input, format, outDir string, log Logger) (string, error) {
	wb, err := excelize.OpenFile(input)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", input, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("no sheets in %s", input)
	}

	switch format {
	case "csv":
		rows, err := wb.GetRows(sheets[0])
		if err != nil {
			return "", fmt.Errorf("reading sheet %s: %w", sheets[0], err)
		}
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		for _, row := range rows {
			if err := cw.Write(row); err != nil {
				return "", fmt.Errorf("writing csv row: %w", err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return "", fmt.Errorf("writing csv: %w", err)
		}
		return writeConverted(outDir, input, format, buf.Bytes(), log)

	case "text":
		var b strings.Builder
		for _, sheet := range sheets {
			rows, err := wb.GetRows(sheet)
			if err != nil {
				return "", fmt.Errorf("reading sheet %s: %w", sheet, err)
			}
			b.WriteString("Sheet: " + sheet + "\n")
			for _, row := range rows {
				b.WriteString(strings.Join(row, "\t"))
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
		}
		return writeConverted(outDir, input, format, []byte(b.String()), log)

	default:
		return "", fmt.Errorf("cannot convert xlsx to %s", format)
	}
}

func convertCSV(input, format, outDir string, log Logger) (string, error) {
	if format != "text" {
		return "", fmt.Errorf("cannot convert csv to %s", format)
	}

	f, err := os.Open(input)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", input, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", input, err)
	}

	var b strings.Builder
	for _, record := range records {
		b.WriteString(strings.Join(record, "\t"))
		b.WriteByte('\n')
	}
	return writeConverted(outDir, input, format, []byte(b.String()), log)
}

func convertText(input, format, outDir string, caps Capabilities, log Logger) (string, error) {
	switch format {
	case "text":
		content, err := os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", input, err)
		}
		return writeConverted(outDir, input, format, content, log)

	case "pdf":
		if !caps.Has("pdf-output") {
			return "", fmt.Errorf("%w: no pdf output in this build", ErrCapabilityUnavailable)
		}
		content, err := os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", input, err)
		}
		hints, err := LoadLanguageHints(log)
		if err != nil {
			log.Debugf("no language hints: %v", err)
			hints = nil
		}
		out := convertOutputPath(outDir, input, format)
		if err := renderPDF(out, filepath.Base(input), string(content), hints, log); err != nil {
			return "", err
		}
		log.Infof("Converted %s to %s", input, out)
		return out, nil

	case "image":
		return "", fmt.Errorf("%w: no image output in this build", ErrCapabilityUnavailable)

	default:
		return "", fmt.Errorf("cannot convert text to %s", format)
	}
}

// writeConverted places content at the sequentially-named output path for
// input and format.
func writeConverted(outDir, input, format string, content []byte, log Logger) (string, error) {
	out := convertOutputPath(outDir, input, format)
	if err := os.WriteFile(out, content, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	log.Infof("Converted %s to %s", input, out)
	return out, nil
}
