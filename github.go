package main

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	githubRepoPattern = regexp.MustCompile(`^https?://github\.com/([^/]+/[^/]+)`)
	treePathPattern   = regexp.MustCompile(`/tree/([^/]+)(?:/(.+))?`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	invalidRefChars   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// specialSuffixes are virtual GitHub paths that collapse to the base
// repository. Everything after them is ignored.
var specialSuffixes = []string{"/pulls", "/issues", "/actions", "/wiki", "/settings", "/security"}

// ParseGitHubURL extracts the clone URL, branch and optional subdirectory
// from a GitHub repository URL. Deep URLs such as /pulls or
// /tree/<branch>/<dir> collapse to the base repository; the returned
// clone URL always uses https and ends in .git. The subdirectory is only
// reported when useSubdir is set.
func ParseGitHubURL(rawURL string, useSubdir bool, log Logger) (cloneURL, branch, subdir string, err error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", "", "", errors.New("no repository URL provided")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	log.Debugf("normalized URL: %s", trimmed)

	m := githubRepoPattern.FindStringSubmatchIndex(trimmed)
	if m == nil {
		return "", "", "", fmt.Errorf("invalid GitHub URL format: %s", trimmed)
	}
	baseRepo := trimmed[m[2]:m[3]]
	remaining := trimmed[m[1]:]

	for _, suffix := range specialSuffixes {
		if strings.HasPrefix(remaining, suffix) {
			log.Debugf("removing special suffix: %s", suffix)
			remaining = ""
			break
		}
	}

	if tm := treePathPattern.FindStringSubmatch(remaining); tm != nil {
		branch = sanitizeBranch(tm[1], log)
		if useSubdir && tm[2] != "" {
			subdir = sanitizeSubdir(tm[2])
		} else if tm[2] != "" {
			log.Debugf("ignoring subdirectory in URL")
		}
	}

	cloneURL = "https://github.com/" + baseRepo
	if !strings.HasSuffix(cloneURL, ".git") {
		cloneURL += ".git"
	}
	log.Debugf("parsed URL: %s branch=%q subdir=%q", cloneURL, branch, subdir)
	return cloneURL, branch, subdir, nil
}

// sanitizeBranch cleans a branch name lifted out of a URL. HEAD markers
// and whitespace are stripped, query and fragment parts are cut off, and
// a name that sanitizes away entirely falls back to main.
func sanitizeBranch(raw string, log Logger) string {
	branch := strings.TrimSpace(raw)
	if branch == "" {
		return ""
	}
	if strings.Contains(branch, "HEAD") {
		branch = strings.TrimSpace(strings.ReplaceAll(branch, "HEAD", ""))
		log.Warnf("removed HEAD reference from branch name: %s", branch)
	}
	if strings.ContainsAny(branch, " \t\n\r") {
		sanitized := whitespaceRun.ReplaceAllString(branch, "")
		sanitized = invalidRefChars.ReplaceAllString(sanitized, "")
		if sanitized != branch {
			log.Warnf("sanitized branch name from %q to %q", branch, sanitized)
		}
		branch = sanitized
	}
	branch, _, _ = strings.Cut(branch, "?")
	branch, _, _ = strings.Cut(branch, "#")
	if branch == "" {
		log.Warnf("branch name was empty after sanitization, using main")
		return "main"
	}
	return branch
}

// sanitizeSubdir normalizes the subdirectory part of a /tree/ URL to a
// clean, slash-separated, relative path. An empty result means the whole
// repository.
func sanitizeSubdir(raw string) string {
	subdir := strings.TrimSpace(raw)
	if subdir == "" {
		return ""
	}
	subdir, _, _ = strings.Cut(subdir, "?")
	subdir, _, _ = strings.Cut(subdir, "#")
	subdir = strings.TrimSpace(subdir)
	if subdir == "" {
		return ""
	}
	subdir = strings.ReplaceAll(path.Clean(subdir), `\`, "/")
	subdir = strings.TrimPrefix(subdir, "/")
	subdir = strings.TrimSuffix(subdir, "/")
	if subdir == "." {
		return ""
	}
	return subdir
}

// BuildAuthURL embeds a personal access token into cloneURL, forcing
// https. Either input being empty yields an empty result.
func BuildAuthURL(cloneURL, token string, log Logger) string {
	if cloneURL == "" || token == "" {
		return ""
	}
	if !strings.HasPrefix(cloneURL, "https://") {
		log.Warnf("token auth requires https, converting URL")
		cloneURL = strings.Replace(cloneURL, "http://", "https://", 1)
		if !strings.HasPrefix(cloneURL, "https://") {
			cloneURL = "https://" + cloneURL
		}
	}
	return strings.Replace(cloneURL, "https://", "https://"+token+"@", 1)
}

// repoNameFromURL derives the repository name from a clone URL tail.
func repoNameFromURL(cloneURL string) string {
	name := path.Base(strings.TrimSuffix(cloneURL, "/"))
	return strings.TrimSuffix(name, ".git")
}
