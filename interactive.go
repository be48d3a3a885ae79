package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	gitignore "github.com/monochromegane/go-gitignore"
)

// pickerMaxDepth bounds candidate enumeration so a pathological tree
// cannot stall the picker before it opens.
const pickerMaxDepth = 16

// listPickerCandidates enumerates the files offered by the interactive
// picker as relative slash paths. Dot entries are skipped, and anything
// matched by the root .gitignore is filtered up front to keep the list
// short.
func listPickerCandidates(root string, log Logger) ([]string, error) {
	base, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	var ign gitignore.IgnoreMatcher
	if gi := filepath.Join(base, ".gitignore"); statIsRegular(gi) {
		matcher, err := gitignore.NewGitIgnore(gi)
		if err != nil {
			log.Warnf("cannot parse %s: %v", gi, err)
		} else {
			ign = matcher
		}
	}

	type frame struct {
		dir   string
		depth int
	}
	var candidates []string
	stack := []frame{{base, 0}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(fr.dir)
		if err != nil {
			log.Warnf("cannot list %s: %v", fr.dir, err)
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			full := filepath.Join(fr.dir, name)
			if ign != nil && ign.Match(full, entry.IsDir()) {
				continue
			}
			if entry.IsDir() {
				if fr.depth+1 < pickerMaxDepth {
					stack = append(stack, frame{full, fr.depth + 1})
				}
				continue
			}
			rel, err := filepath.Rel(base, full)
			if err != nil {
				continue
			}
			candidates = append(candidates, filepath.ToSlash(rel))
		}
	}
	sort.Strings(candidates)
	return candidates, nil
}

func statIsRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func statIsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// PickIncludePatterns presents a fuzzy multi-select over the files under
// root and returns the chosen paths joined into an include pattern input.
// An aborted selection returns "" with no error.
func PickIncludePatterns(root string, log Logger) (string, error) {
	candidates, err := listPickerCandidates(root, log)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no files found to select from")
	}

	idx, err := fuzzyfinder.FindMulti(
		candidates,
		func(i int) string { return candidates[i] },
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Select files to include. Press Tab to multi-select, Enter to confirm."
			}
			full := filepath.Join(root, filepath.FromSlash(candidates[i]))
			info, statErr := os.Stat(full)
			if statErr != nil {
				return fmt.Sprintf("Path: %s\nError getting info: %v", candidates[i], statErr)
			}
			return fmt.Sprintf("Path: %s\nSize: %d bytes", candidates[i], info.Size())
		}),
	)
	if err != nil {
		if err == fuzzyfinder.ErrAbort {
			log.Infof("Interactive selection aborted")
			return "", nil
		}
		return "", fmt.Errorf("fuzzy finder error: %w", err)
	}

	selected := make([]string, len(idx))
	for i, index := range idx {
		selected[i] = candidates[index]
	}
	return strings.Join(selected, ";"), nil
}
