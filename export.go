package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const defaultExportsDir = "exports"

// exportExtension maps an artifact format to its file extension.
func exportExtension(format string) string {
	if format == "json" {
		return ".json"
	}
	return ".txt"
}

// normalizeFormat collapses the format flag to one of the two supported
// styles. Anything that is not json renders as text.
func normalizeFormat(format string) string {
	if format == "json" {
		return "json"
	}
	return "text"
}

// prepareExportsDir creates the exports directory and returns its
// absolute path.
func prepareExportsDir(dir string, log Logger) (string, error) {
	if dir == "" {
		dir = defaultExportsDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving exports directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("creating exports directory %s: %w", abs, err)
	}
	log.Debugf("using exports directory: %s", abs)
	return abs, nil
}

// newExporter wires the classifier, pattern matcher and ignore rules for
// one export rooted at dir.
func newExporter(dir string, opts ExportOptions, log Logger) *Exporter {
	classifier := NewTextClassifier(log)
	matcher := NewPatternMatcher(log)
	rules := LoadIgnoreRules(dir, classifier, matcher, log)
	walker := &Walker{
		Rules:        rules,
		Matcher:      matcher,
		Log:          log,
		MaxSizeKB:    opts.MaxSizeKB,
		PatternMode:  opts.PatternMode,
		PatternInput: opts.PatternInput,
	}
	return &Exporter{Walker: walker, Rules: rules, Log: log}
}

// LocalExport renders a local directory into an artifact inside the
// exports directory and returns the artifact path. The directory becomes
// the repository label; when it is itself a git repository the artifact
// carries per-file commit info.
func LocalExport(opts ExportOptions, log Logger) (string, *ExportStats, error) {
	log.Infof("Starting export of local directory")

	if opts.LocalDir == "" {
		return "", nil, errors.New("no local directory provided")
	}
	if _, err := os.Stat(opts.LocalDir); err != nil {
		return "", nil, fmt.Errorf("base directory does not exist: %s", opts.LocalDir)
	}

	target := opts.LocalDir
	if opts.Subdir != "" {
		target = filepath.Join(opts.LocalDir, filepath.FromSlash(opts.Subdir))
		log.Infof("Using subdirectory: %s", opts.Subdir)
	}
	target, err := resolveRoot(target)
	if err != nil {
		return "", nil, err
	}
	fi, err := os.Stat(target)
	if err != nil {
		return "", nil, fmt.Errorf("directory does not exist: %s", target)
	}
	if !fi.IsDir() {
		return "", nil, fmt.Errorf("not a directory: %s", target)
	}

	repoName := filepath.Base(target)
	if repoName == "." || repoName == string(filepath.Separator) || repoName == "" {
		repoName = "local-export"
	}

	format := normalizeFormat(opts.Format)
	outputName := opts.OutputFile
	if outputName == "" {
		outputName = repoName + "_export" + exportExtension(format)
	}
	exportsDir, err := prepareExportsDir(opts.ExportsDir, log)
	if err != nil {
		return "", nil, err
	}
	outputPath := SequentialPath(filepath.Join(exportsDir, outputName))
	log.Debugf("using output path: %s", outputPath)

	var commits CommitSource
	if gi, err := os.Stat(filepath.Join(target, ".git")); err == nil && gi.IsDir() {
		src, err := NewGitCommitSource(target)
		switch {
		case err != nil:
			log.Warnf("directory has .git but is not a valid repository, skipping commit info: %v", err)
		case src != nil:
			log.Infof("Found local git repository: %s", target)
			commits = src
		}
	} else {
		log.Infof("Local directory is not a git repository: %s", target)
	}

	exporter := newExporter(target, opts, log)
	stats, err := exporter.Render(target, repoName, outputPath, format, commits)
	if err != nil {
		return "", stats, err
	}
	log.Infof("Local directory exported to %s", outputPath)
	return outputPath, stats, nil
}

// CloneAndExport clones a repository into a temporary directory,
// optionally checks out a branch or commit, and renders the tree (or a
// subdirectory of it) into an artifact. The temporary clone is removed
// afterwards unless opts.SkipRemove is set.
func CloneAndExport(opts ExportOptions, log Logger) (string, *ExportStats, error) {
	log.Infof("Starting export of repository %s", opts.RepoURL)

	format := normalizeFormat(opts.Format)

	cloneURL, urlBranch, urlSubdir, err := ParseGitHubURL(opts.RepoURL, opts.UseSubdirURL, log)
	if err != nil {
		return "", nil, err
	}

	if opts.Token != "" {
		masked := "REDACTED"
		if len(opts.Token) > 6 {
			masked = opts.Token[:3] + "..." + opts.Token[len(opts.Token)-3:]
		}
		log.Debugf("using token: %s", masked)
		cloneURL = BuildAuthURL(cloneURL, opts.Token, log)
	}

	repoName := repoNameFromURL(cloneURL)
	outputName := opts.OutputFile
	if outputName == "" {
		outputName = "tessera_export" + exportExtension(format)
	}
	exportsDir, err := prepareExportsDir(opts.ExportsDir, log)
	if err != nil {
		return "", nil, err
	}
	outputPath := SequentialPath(filepath.Join(exportsDir, outputName))
	log.Debugf("using output path: %s", outputPath)

	tempDir, repo, err := cloneRepo(cloneURL, log)
	if err != nil {
		return "", nil, err
	}
	if opts.SkipRemove {
		log.Infof("Repository retained at %s", tempDir)
	} else {
		defer func() {
			if err := os.RemoveAll(tempDir); err != nil {
				log.Warnf("failed to clean up repository: %v", err)
			} else {
				log.Infof("Cleaned up temporary repository")
			}
		}()
	}

	branch := opts.Branch
	if branch == "" {
		branch = urlBranch
	}
	if branch != "" {
		clean := sanitizeCheckoutTarget(branch, log)
		if err := checkoutTarget(repo, clean, log); err != nil {
			return "", nil, err
		}
	} else {
		log.Infof("Using default branch")
	}

	subdir := opts.Subdir
	if subdir == "" {
		subdir = urlSubdir
	}
	target := tempDir
	prefix := ""
	if subdir != "" {
		target = filepath.Join(tempDir, filepath.FromSlash(subdir))
		fi, err := os.Stat(target)
		if err != nil || !fi.IsDir() {
			return "", nil, fmt.Errorf("subdirectory %s does not exist in the repository", subdir)
		}
		prefix = sanitizeSubdir(subdir)
		log.Infof("Exporting from subdirectory: %s", subdir)
	} else {
		log.Infof("Exporting from repository root")
	}

	commits := &gitCommitSource{repo: repo, prefix: prefix}

	exporter := newExporter(target, opts, log)
	stats, err := exporter.Render(target, repoName, outputPath, format, commits)
	if err != nil {
		return "", stats, err
	}
	log.Infof("Repository exported to %s", outputPath)
	return outputPath, stats, nil
}
