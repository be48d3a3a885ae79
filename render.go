package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const separatorWidth = 80

// Exporter renders the filtered file set into a single artifact. Every
// path it receives from the walker has already passed the ignore rules and
// the classifier; the exporter only reads content and enriches it with
// commit metadata.
type Exporter struct {
	Walker *Walker
	Rules  *IgnoreRules
	Log    Logger
}

// Render walks root and writes the artifact for style ("text" or "json")
// to outputPath. commits may be nil, in which case no per-file commit
// lines are emitted. The returned stats reflect everything the run saw,
// including binary skips from the walk.
func (e *Exporter) Render(root, repoName, outputPath, style string, commits CommitSource) (*ExportStats, error) {
	log := e.Log
	if log == nil {
		log = NopLogger{}
	}
	if style != "text" && style != "json" {
		return nil, fmt.Errorf("unsupported export style %q (want \"text\" or \"json\")", style)
	}

	base, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	stats := &ExportStats{}
	files, err := e.Walker.Walk(base, stats)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	log.Debugf("writing to output file: %s", outputPath)

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if style == "json" {
		err = e.renderJSON(w, base, repoName, files, commits, stats, log)
	} else {
		err = e.renderText(w, base, repoName, files, commits, stats, log)
	}
	if err != nil {
		return stats, err
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("writing %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		return stats, fmt.Errorf("closing %s: %w", outputPath, err)
	}

	log.Infof("Export complete. Processed %d files, skipped %d files", stats.ProcessedFiles, stats.SkippedFiles)
	log.Infof("Total characters: %s", groupThousands(stats.TotalChars))
	log.Infof("Total lines: %s", groupThousands(stats.TotalLines))
	log.Infof("Total tokens: %s", groupThousands(stats.TotalTokens))
	return stats, nil
}

func (e *Exporter) renderText(w io.Writer, base, repoName string, files []string, commits CommitSource, stats *ExportStats, log Logger) error {
	rule := strings.Repeat("=", separatorWidth)

	fmt.Fprintf(w, "Generated by tessera\n")
	fmt.Fprintf(w, "%s\n\n", rule)
	fmt.Fprintf(w, "Repository: %s\n\n", repoName)

	fmt.Fprintf(w, "Directory Structure:\n")
	fmt.Fprintf(w, "------------------\n")
	e.writeDirectoryTree(w, base, log)
	fmt.Fprintf(w, "\n%s\n\n", rule)

	total := len(files)
	for i, path := range files {
		if (i+1)%progressInterval == 0 {
			log.Infof("Processing files: %d/%d", i+1, total)
		}

		content, ok := readTextContent(path, stats, log)
		if !ok {
			continue
		}

		fmt.Fprintf(w, "File: %s\n", path)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", separatorWidth))

		if commits != nil {
			e.writeCommitLine(w, base, path, commits, log)
		}

		w.Write(content)
		fmt.Fprintf(w, "\n%s\n\n", rule)

		recordContent(stats, content)
		log.Debugf("processed file: %s", path)
	}

	fmt.Fprintf(w, "\nFile Statistics:\n")
	fmt.Fprintf(w, "--------------\n")
	fmt.Fprintf(w, "Total files processed: %d\n", stats.ProcessedFiles)
	fmt.Fprintf(w, "Binary files skipped: %d\n", stats.BinaryFiles)
	fmt.Fprintf(w, "Files with errors: %d\n", stats.ErrorFiles)
	fmt.Fprintf(w, "Total characters: %s\n", groupThousands(stats.TotalChars))
	fmt.Fprintf(w, "Total lines: %s\n", groupThousands(stats.TotalLines))
	fmt.Fprintf(w, "Total tokens: %s\n", groupThousands(stats.TotalTokens))
	return nil
}

func (e *Exporter) writeCommitLine(w io.Writer, base, path string, commits CommitSource, log Logger) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		log.Warnf("could not get commit info for %s: %v", path, err)
		fmt.Fprintf(w, "Last Commit: Unknown\n\n")
		return
	}
	info, err := commits.LastCommit(filepath.ToSlash(rel))
	switch {
	case err != nil:
		log.Warnf("could not get commit info for %s: %v", path, err)
		fmt.Fprintf(w, "Last Commit: Unknown\n\n")
	case info == nil:
		fmt.Fprintf(w, "Last Commit: No commits found\n\n")
	default:
		fmt.Fprintf(w, "Last Commit: %s by %s on %s\n\n",
			info.Message, info.Author, info.Date.Format("2006-01-02"))
	}
}

type commitJSON struct {
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

type fileEntry struct {
	Path       string      `json:"path"`
	Content    string      `json:"content"`
	LastCommit *commitJSON `json:"last_commit"`
}

type exportDocument struct {
	Repository string      `json:"repository"`
	Files      []fileEntry `json:"files"`
}

func (e *Exporter) renderJSON(w io.Writer, base, repoName string, files []string, commits CommitSource, stats *ExportStats, log Logger) error {
	entries := make([]fileEntry, 0, len(files))

	total := len(files)
	for i, path := range files {
		if (i+1)%progressInterval == 0 {
			log.Infof("Processing files: %d/%d", i+1, total)
		}

		content, ok := readTextContent(path, stats, log)
		if !ok {
			continue
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			log.Warnf("failed to process %s: %v", path, err)
			stats.SkippedFiles++
			stats.ErrorFiles++
			continue
		}

		entry := fileEntry{Path: filepath.ToSlash(rel), Content: string(content)}
		if commits != nil {
			info, err := commits.LastCommit(entry.Path)
			if err != nil {
				log.Warnf("could not get commit info for %s: %v", path, err)
			} else if info != nil {
				entry.LastCommit = &commitJSON{
					Message: info.Message,
					Author:  info.Author,
					Date:    info.Date.Format("2006-01-02T15:04:05Z07:00"),
				}
			}
		}
		entries = append(entries, entry)

		recordContent(stats, content)
		log.Debugf("processed file: %s", path)
	}

	data, err := json.MarshalIndent(exportDocument{Repository: repoName, Files: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export document: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// readTextContent reads one file and validates it decodes as UTF-8. A read
// or decode failure counts as a skipped file with an error; the export
// goes on.
func readTextContent(path string, stats *ExportStats, log Logger) ([]byte, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("failed to process %s: %v", path, err)
		stats.SkippedFiles++
		stats.ErrorFiles++
		return nil, false
	}
	if !utf8.Valid(content) {
		log.Warnf("failed to process %s: content is not valid UTF-8", path)
		stats.SkippedFiles++
		stats.ErrorFiles++
		return nil, false
	}
	return content, true
}

func recordContent(stats *ExportStats, content []byte) {
	stats.ProcessedFiles++
	stats.TotalChars += utf8.RuneCount(content)
	stats.TotalLines += bytes.Count(content, []byte("\n")) + 1
	stats.TotalTokens += len(strings.Fields(string(content)))
}

// writeDirectoryTree renders the indented structure listing. It walks with
// the same ignore rules as the export pass but additionally hides dotfiles
// and files whose name contains "test"; that filter applies to this
// listing only, never to the export body. Ignored directories disappear
// wholesale.
func (e *Exporter) writeDirectoryTree(w io.Writer, base string, log Logger) {
	type frame struct {
		dir   string
		depth int
	}

	stack := []frame{{base, 0}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(fr.dir)
		if err != nil {
			log.Warnf("cannot list %s: %v", fr.dir, err)
			continue
		}

		if fr.dir != base {
			fmt.Fprintf(w, "%s└── %s/\n", strings.Repeat("  ", fr.depth-1), filepath.Base(fr.dir))
		}

		var subdirs []string
		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(fr.dir, name)

			if entry.IsDir() {
				if strings.HasPrefix(name, ".") {
					continue
				}
				if e.Rules.ShouldIgnore(full, base, nil) {
					log.Debugf("skipping ignored directory: %s", full)
					continue
				}
				subdirs = append(subdirs, full)
				continue
			}

			if strings.HasPrefix(name, ".") || strings.Contains(strings.ToLower(name), "test") {
				continue
			}
			if e.Rules.ShouldIgnore(full, base, nil) {
				log.Debugf("skipping ignored file: %s", full)
				continue
			}
			fmt.Fprintf(w, "%s└── %s\n", strings.Repeat("  ", fr.depth), name)
		}

		sort.Strings(subdirs)
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, frame{subdirs[i], fr.depth + 1})
		}
	}
}

// SequentialPath returns outputPath unchanged when neither it nor any
// numbered sibling exists; otherwise it picks "stem(N).ext" with N one
// greater than the highest suffix seen. Existing artifacts are never
// overwritten.
func SequentialPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	ext := filepath.Ext(outputPath)
	stem := strings.TrimSuffix(filepath.Base(outputPath), ext)
	if i := strings.Index(stem, "("); i >= 0 {
		stem = stem[:i]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return outputPath
	}

	exists := false
	maxN := 0
	for _, entry := range entries {
		name := entry.Name()
		if name == stem+ext {
			exists = true
			continue
		}
		if strings.HasPrefix(name, stem+"(") && strings.HasSuffix(name, ")"+ext) {
			exists = true
			numStr := name[len(stem)+1 : len(name)-len(ext)-1]
			if n, err := strconv.Atoi(numStr); err == nil && n > maxN {
				maxN = n
			}
		}
	}
	if !exists {
		return outputPath
	}
	return filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, maxN+1, ext))
}

// groupThousands formats n with comma separators, e.g. "1,234,567".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
