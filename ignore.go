package main

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Built-in ignore set, always active: VCS metadata, build artifacts,
// dependency and virtualenv directories, common binary extensions.
var defaultIgnorePatterns = []string{
	"__pycache__/*",
	"*.pyc",
	"*.pyo",
	"*.pyd",
	"*.so",
	"*.dll",
	"*.dylib",
	"*.exe",
	"*.bin",
	"*.jpg",
	"*.jpeg",
	"*.pdf",
	"*.zip",
	"*.tar.gz",
	".git/*",
	".svn/*",
	".hg/*",
	"node_modules/*",
	"venv/*",
	".env/*",
}

// IgnoreRules composes the built-in defaults, the root .gitignore's ignore
// and override ("!") patterns, and the binary-file rule into a single
// per-path decision. Immutable once loaded.
type IgnoreRules struct {
	ignore     []string
	override   []string
	classifier *TextClassifier
	matcher    *PatternMatcher
	log        Logger
}

// LoadIgnoreRules builds the rule set for root. A .gitignore at root adds
// its non-comment lines: plain lines to the ignore set, "!" lines (prefix
// stripped) to the override set. Read failures degrade to defaults only.
func LoadIgnoreRules(root string, classifier *TextClassifier, matcher *PatternMatcher, log Logger) *IgnoreRules {
	if log == nil {
		log = NopLogger{}
	}
	r := &IgnoreRules{classifier: classifier, matcher: matcher, log: log}

	ignoreSeen := make(map[string]bool)
	overrideSeen := make(map[string]bool)
	for _, p := range defaultIgnorePatterns {
		r.addIgnore(p, ignoreSeen)
	}

	gitignorePath := filepath.Join(root, ".gitignore")
	if fi, err := os.Stat(gitignorePath); err == nil && fi.Mode().IsRegular() {
		f, err := os.Open(gitignorePath)
		if err != nil {
			log.Warnf("error reading .gitignore: %v", err)
		} else {
			defer f.Close()
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				if strings.HasPrefix(line, "!") {
					r.addOverride(strings.TrimPrefix(line, "!"), overrideSeen)
				} else {
					r.addIgnore(line, ignoreSeen)
				}
			}
			if err := scanner.Err(); err != nil {
				log.Warnf("error reading .gitignore: %v", err)
			}
			log.Debugf("loaded %d ignore and %d override patterns", len(r.ignore), len(r.override))
		}
	} else {
		log.Debugf("no .gitignore found at %s, using defaults", root)
	}

	// Set semantics with a deterministic evaluation order.
	sort.Strings(r.ignore)
	sort.Strings(r.override)
	return r
}

func (r *IgnoreRules) addIgnore(p string, seen map[string]bool) {
	if p, ok := r.cleanPattern(p); ok && !seen[p] {
		seen[p] = true
		r.ignore = append(r.ignore, p)
	}
}

func (r *IgnoreRules) addOverride(p string, seen map[string]bool) {
	if p, ok := r.cleanPattern(p); ok && !seen[p] {
		seen[p] = true
		r.override = append(r.override, p)
	}
}

func (r *IgnoreRules) cleanPattern(p string) (string, bool) {
	p = strings.TrimSpace(p)
	for strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	if p == "" {
		return "", false
	}
	if hasBareDoubleStar(p) {
		r.log.Warnf("dropping invalid ignore pattern %q", p)
		return "", false
	}
	return p, true
}

// ShouldIgnore decides whether path is excluded from export. Binary files
// are never exportable, regardless of patterns; directories skip that
// check (a directory cannot be content-sniffed) and are judged on pattern
// rules alone. Overrides always beat ignores. On any evaluation failure
// the path is ignored. When rec is non-nil, binary skips are counted.
func (r *IgnoreRules) ShouldIgnore(path, root string, rec *ExportStats) bool {
	isDir := false
	if fi, err := os.Stat(path); err == nil {
		isDir = fi.IsDir()
	}
	if !isDir && !r.classifier.IsText(path) {
		r.log.Debugf("skipped binary file: %s", path)
		if rec != nil {
			rec.BinaryFiles++
			rec.SkippedFiles++
		}
		return true
	}

	if len(r.ignore) == 0 && len(r.override) == 0 {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		r.log.Warnf("cannot relativize %s against %s: %v", path, root, err)
		return true
	}
	return r.patternVerdict(filepath.ToSlash(rel))
}

// patternVerdict evaluates the override set first, then the ignore set.
// Overrides match the relative path literally; ignore patterns also match
// through their directory variants so a pattern like "build/*" prunes the
// directory itself. A panic inside matching counts as an ignore (fail
// closed).
func (r *IgnoreRules) patternVerdict(rel string) (ignored bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warnf("pattern evaluation failed for %s: %v", rel, p)
			ignored = true
		}
	}()

	for _, p := range r.override {
		if r.matcher.matchExact(rel, p) {
			r.log.Debugf("including %s (override pattern %q)", rel, p)
			return false
		}
	}
	for _, p := range r.ignore {
		if r.matcher.matchSub(rel, p) {
			r.log.Debugf("ignoring %s (pattern %q)", rel, p)
			return true
		}
	}
	return false
}
