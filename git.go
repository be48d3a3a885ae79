package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// isGitURL reports whether input names a remote repository rather than a
// local path. Scheme-less github.com paths count; ParseGitHubURL defaults
// their scheme later. Callers stat the input first, so an existing
// directory never reaches this check.
func isGitURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "git@") ||
		strings.HasPrefix(input, "github.com/") ||
		strings.HasSuffix(input, ".git")
}

// redactURL masks credentials embedded in a clone URL so it is safe to log.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User("***")
	return u.String()
}

// cloneRepo clones cloneURL into a fresh temporary directory and returns
// the directory together with the opened repository. The directory is
// removed again when the clone fails.
func cloneRepo(cloneURL string, log Logger) (string, *git.Repository, error) {
	tempDir, err := os.MkdirTemp("", "tessera-clone-")
	if err != nil {
		return "", nil, fmt.Errorf("creating temporary directory: %w", err)
	}

	log.Infof("Cloning %s into %s", redactURL(cloneURL), tempDir)
	repo, err := git.PlainClone(tempDir, false, &git.CloneOptions{URL: cloneURL})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", nil, fmt.Errorf("cloning %s: %w", redactURL(cloneURL), err)
	}

	log.Infof("Finished cloning %s", redactURL(cloneURL))
	return tempDir, repo, nil
}

// isCommitHash reports whether s is a full 40-character hex object name.
func isCommitHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// sanitizeCheckoutTarget validates a branch or commit name coming from a
// flag. Anything containing HEAD or characters outside [A-Za-z0-9._-]
// falls back to main.
func sanitizeCheckoutTarget(target string, log Logger) string {
	if strings.Contains(target, "HEAD") {
		log.Warnf("invalid branch name format: %s", target)
		return "main"
	}
	clean := strings.TrimSpace(strings.ReplaceAll(target, "\t", ""))
	if clean == "" {
		return "main"
	}
	for _, r := range clean {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			log.Warnf("invalid branch name format: %s", clean)
			return "main"
		}
	}
	return clean
}

// checkoutTarget moves the worktree to target, which may be a full commit
// hash or a branch name. Branch names are tried locally first, then as
// origin remote refs. When nothing resolves, the default branches main and
// master are tried before the original failure is reported.
func checkoutTarget(repo *git.Repository, target string, log Logger) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	var firstErr error
	if isCommitHash(target) {
		firstErr = wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(target)})
		if firstErr == nil {
			log.Infof("Checked out commit %s", target)
			return nil
		}
	} else {
		firstErr = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(target)})
		if firstErr == nil {
			log.Infof("Checked out branch %s", target)
			return nil
		}
		if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewRemoteReferenceName("origin", target)}); err == nil {
			log.Infof("Checked out branch origin/%s", target)
			return nil
		}
	}

	log.Warnf("could not check out %q: %v", target, firstErr)
	for _, name := range []string{"main", "master"} {
		if name == target {
			continue
		}
		log.Warnf("trying fallback branch: %s", name)
		if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}); err == nil {
			log.Infof("Checked out fallback branch %s", name)
			return nil
		}
	}
	return fmt.Errorf("checking out %q: %w", target, firstErr)
}

// gitCommitSource resolves per-file commit metadata from a repository.
// prefix, when set, is the slash-separated subdirectory the export is
// scoped to; lookups are rebased onto it so paths stay relative to the
// repository root.
type gitCommitSource struct {
	repo   *git.Repository
	prefix string
}

// NewGitCommitSource opens the repository rooted exactly at dir. It
// returns (nil, nil) when dir is not a repository, which callers treat as
// exporting without commit enrichment.
func NewGitCommitSource(dir string) (*gitCommitSource, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	return &gitCommitSource{repo: repo}, nil
}

// LastCommit returns the newest commit touching relPath, or (nil, nil)
// when the path has no history.
func (s *gitCommitSource) LastCommit(relPath string) (*CommitInfo, error) {
	lookup := relPath
	if s.prefix != "" {
		lookup = path.Join(s.prefix, relPath)
	}

	iter, err := s.repo.Log(&git.LogOptions{
		FileName: &lookup,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	c, err := iter.Next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &CommitInfo{
		Message: strings.TrimSpace(c.Message),
		Author:  c.Author.Name,
		Date:    c.Committer.When,
	}, nil
}
