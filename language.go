package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LanguageInfo is one entry from languages.yml. Only the fields used for
// file detection are parsed.
type LanguageInfo struct {
	Type         string   `yaml:"type"`
	Extensions   []string `yaml:"extensions"`
	Filenames    []string `yaml:"filenames"`
	Interpreters []string `yaml:"interpreters"`
}

// LanguageHints resolves file paths to language names for the PDF
// highlighter. A nil receiver is valid and matches nothing.
type LanguageHints struct {
	langs        map[string]LanguageInfo
	extensionMap map[string]string
	filenameMap  map[string]string
}

// LoadLanguageHints reads languages.yml from the user config directory or
// the working directory. The hints are optional; callers downgrade a
// missing file to no hints.
func LoadLanguageHints(log Logger) (*LanguageHints, error) {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "tessera", "languages.yml"))
	}
	candidates = append(candidates, "languages.yml")

	var langFile string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			langFile = p
			break
		}
	}
	if langFile == "" {
		return nil, fmt.Errorf("languages.yml not found")
	}

	log.Debugf("loading language definitions from %s", langFile)
	raw, err := os.ReadFile(langFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", langFile, err)
	}

	var langs map[string]LanguageInfo
	if err := yaml.Unmarshal(raw, &langs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", langFile, err)
	}

	hints := &LanguageHints{
		langs:        langs,
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
	}
	for name, info := range langs {
		for _, ext := range info.Extensions {
			lower := strings.ToLower(ext)
			if hints.extensionMap[lower] == "" {
				hints.extensionMap[lower] = name
			}
		}
		for _, fname := range info.Filenames {
			if hints.filenameMap[fname] == "" {
				hints.filenameMap[fname] = name
			}
		}
	}
	log.Debugf("loaded %d languages (%d extensions, %d filenames)",
		len(hints.langs), len(hints.extensionMap), len(hints.filenameMap))
	return hints, nil
}

// LanguageFor resolves a path to a language name. Exact filename matches
// beat extension matches.
func (h *LanguageHints) LanguageFor(path string) (string, bool) {
	if h == nil {
		return "", false
	}
	base := filepath.Base(path)
	if lang, ok := h.filenameMap[base]; ok {
		return lang, true
	}
	if ext := strings.ToLower(filepath.Ext(base)); ext != "" {
		if lang, ok := h.extensionMap[ext]; ok {
			return lang, true
		}
	}
	return "", false
}
