package main

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/danwakefield/fnmatch"
)

// PatternMatcher evaluates paths against semicolon-separated glob patterns.
// Matching is case-insensitive throughout.
type PatternMatcher struct {
	log Logger
}

func NewPatternMatcher(log Logger) *PatternMatcher {
	if log == nil {
		log = NopLogger{}
	}
	return &PatternMatcher{log: log}
}

// Matches reports whether pathStr matches any sub-pattern in patternInput.
// An empty or blank pattern input never matches, and neither does an empty
// path. baseDir defaults to the current working directory; the path is made
// relative to it (or to the nearest containing ancestor) before matching.
func (m *PatternMatcher) Matches(pathStr, patternInput, baseDir string) bool {
	if pathStr == "" {
		return false
	}
	if strings.TrimSpace(patternInput) == "" {
		return false
	}

	norm, ok := m.normalize(pathStr, baseDir)
	if !ok {
		return false
	}

	for _, sub := range strings.Split(patternInput, ";") {
		p := strings.TrimSpace(sub)
		if p == "" {
			continue
		}
		for strings.HasSuffix(p, "/") {
			p = strings.TrimSuffix(p, "/")
		}
		if p == "" {
			continue
		}
		if hasBareDoubleStar(p) {
			m.log.Warnf("invalid pattern %q: '**' must be followed by '/'", p)
			continue
		}
		if m.matchSub(norm, p) {
			return true
		}
	}
	return false
}

// hasBareDoubleStar reports the invalid "**literal" form: a double star
// immediately followed by something other than '/' or end of pattern.
func hasBareDoubleStar(p string) bool {
	for i := 0; i+1 < len(p); i++ {
		if p[i] != '*' || p[i+1] != '*' {
			continue
		}
		if i > 0 && p[i-1] == '*' {
			continue
		}
		if i+2 < len(p) && p[i+2] != '/' && p[i+2] != '*' {
			return true
		}
		if i+2 < len(p) && p[i+2] == '*' {
			// three or more stars in a row
			return true
		}
	}
	return false
}

// matchExact tests one cleaned pattern against the whole normalized path,
// with none of matchSub's directory variants. Gitignore override patterns
// use it so a "!" line only revives the paths it literally names.
func (m *PatternMatcher) matchExact(norm, p string) bool {
	return fnmatch.Match(p, norm, fnmatch.FNM_CASEFOLD)
}

// matchSub tests one cleaned sub-pattern and its depth/directory variants
// against a normalized slash path.
func (m *PatternMatcher) matchSub(norm, p string) bool {
	variants := []string{p}
	if !strings.HasPrefix(p, "**/") {
		variants = append(variants, "**/"+p)
	}
	if strings.Contains(p, "/") && !strings.HasSuffix(p, "/*") {
		variants = append(variants, p+"/*")
	}
	for _, v := range variants {
		if m.matchOne(norm, v) {
			return true
		}
	}
	return false
}

func (m *PatternMatcher) matchOne(pathStr, pattern string) bool {
	name := path.Base(pathStr)

	// Extension patterns look at the filename only.
	if strings.HasPrefix(pattern, "*.") && !strings.Contains(pattern, "/") {
		return fnmatch.Match(pattern, name, fnmatch.FNM_CASEFOLD)
	}

	if strings.Contains(pattern, "/") {
		if fnmatch.Match(pattern, pathStr, fnmatch.FNM_CASEFOLD) {
			return true
		}
		// Coarser containment fallback: any path segment equal to the
		// pattern's first directory segment.
		first := pattern[:strings.Index(pattern, "/")]
		if first == "" || first == "**" {
			return false
		}
		for _, seg := range strings.Split(pathStr, "/") {
			if fnmatch.Match(first, seg, fnmatch.FNM_CASEFOLD) {
				return true
			}
		}
		return false
	}

	if strings.ContainsAny(pattern, "*?[") {
		if fnmatch.Match(pattern, pathStr, fnmatch.FNM_CASEFOLD) {
			return true
		}
		if fnmatch.Match(pattern, name, fnmatch.FNM_CASEFOLD) {
			return true
		}
		for _, seg := range strings.Split(pathStr, "/") {
			if fnmatch.Match(pattern, seg, fnmatch.FNM_CASEFOLD) {
				return true
			}
		}
		return false
	}

	// Plain patterns: full path or filename, glob equivalence.
	return fnmatch.Match(pattern, pathStr, fnmatch.FNM_CASEFOLD) ||
		fnmatch.Match(pattern, name, fnmatch.FNM_CASEFOLD)
}

// normalize makes pathStr relative to baseDir when possible, walking up
// baseDir's ancestors until one contains the path; failing that it keeps
// the absolute path. The result always uses forward slashes.
func (m *PatternMatcher) normalize(pathStr, baseDir string) (string, bool) {
	abs, err := filepath.Abs(pathStr)
	if err != nil {
		m.log.Warnf("cannot resolve path %q: %v", pathStr, err)
		return "", false
	}

	base := baseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return filepath.ToSlash(abs), true
		}
		base = wd
	}

	if abase, err := filepath.Abs(base); err == nil {
		for dir := abase; ; {
			rel, err := filepath.Rel(dir, abs)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return filepath.ToSlash(rel), true
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return filepath.ToSlash(abs), true
}
