package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Coarse progress signal frequency, in accepted files.
const progressInterval = 10

var (
	errInvalidPatternMode = errors.New("pattern mode must be \"exclude\" or \"include\"")
	errInvalidSizeLimit   = errors.New("size limit must not be negative")
)

var vcsSegments = map[string]bool{".git": true, ".svn": true, ".hg": true}

func containsVCSSegment(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if vcsSegments[seg] {
			return true
		}
	}
	return false
}

// Walker enumerates exportable files under a root. The zero value is not
// usable; Rules and Matcher must be set.
type Walker struct {
	Rules        *IgnoreRules
	Matcher      *PatternMatcher
	Log          Logger
	MaxSizeKB    int    // files above the cap are skipped; 0 means no cap
	PatternMode  string // "exclude" (default) or "include"
	PatternInput string // semicolon-separated glob patterns
	Progress     func(accepted int)
}

// resolveRoot turns root into an absolute, symlink-resolved path so that
// relative paths computed against it stay identical across the walk and
// render passes.
func resolveRoot(root string) (string, error) {
	base, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", root, err)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	return base, nil
}

// Walk returns the absolute paths of every file under root that survives
// the dotfile, size, pattern and ignore filters, lexicographically sorted.
// The traversal is an explicit worklist: directories are read in name
// order and pruned wholesale when the ignore rules match them, so the
// result is deterministic for an unchanged tree. Binary skips are counted
// into rec when it is non-nil. An unreadable directory fails the whole
// walk.
func (w *Walker) Walk(root string, rec *ExportStats) ([]string, error) {
	log := w.Log
	if log == nil {
		log = NopLogger{}
	}

	mode := w.PatternMode
	if mode == "" {
		mode = "exclude"
	}
	if mode != "exclude" && mode != "include" {
		return nil, fmt.Errorf("%w: got %q", errInvalidPatternMode, w.PatternMode)
	}
	if w.MaxSizeKB < 0 {
		return nil, fmt.Errorf("%w: got %d", errInvalidSizeLimit, w.MaxSizeKB)
	}

	base, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s: %w", base, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", base)
	}

	hasPatterns := strings.TrimSpace(w.PatternInput) != ""
	maxBytes := int64(w.MaxSizeKB) * 1024
	log.Debugf("scanning directory: %s", base)

	var out []string
	stack := []string{base}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", dir, err)
		}
		// os.ReadDir sorts by name; push subdirectories in reverse so the
		// LIFO worklist visits them in name order.
		var subdirs []string
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			full := filepath.Join(dir, name)

			if entry.IsDir() {
				if w.Rules.ShouldIgnore(full, base, nil) {
					log.Debugf("pruning ignored directory: %s", full)
					continue
				}
				subdirs = append(subdirs, full)
				continue
			}

			info, err := os.Stat(full)
			if err != nil {
				log.Warnf("error checking %s: %v", full, err)
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if rel, err := filepath.Rel(base, full); err == nil && containsVCSSegment(rel) {
				continue
			}
			if maxBytes > 0 && info.Size() > maxBytes {
				log.Debugf("skipping %s: exceeds size limit of %dKB (%.1fKB)",
					full, w.MaxSizeKB, float64(info.Size())/1024)
				continue
			}

			if hasPatterns {
				matched := w.Matcher.Matches(full, w.PatternInput, base)
				if mode == "exclude" && matched {
					log.Debugf("skipping %s: matches exclude pattern", full)
					continue
				}
				if mode == "include" && !matched {
					log.Debugf("skipping %s: doesn't match include pattern", full)
					continue
				}
			}

			if w.Rules.ShouldIgnore(full, base, rec) {
				continue
			}

			out = append(out, full)
			if w.Progress != nil && len(out)%progressInterval == 0 {
				w.Progress(len(out))
			}
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	sort.Strings(out)
	log.Infof("found %d files in %s after filtering", len(out), root)
	return out, nil
}
