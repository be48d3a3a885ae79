package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		useSubdir  bool
		wantClone  string
		wantBranch string
		wantSubdir string
		wantErr    string
	}{
		{
			name:      "basic https url",
			url:       "https://github.com/owner/repo",
			wantClone: "https://github.com/owner/repo.git",
		},
		{
			name:      "git suffix not doubled",
			url:       "https://github.com/owner/repo.git",
			wantClone: "https://github.com/owner/repo.git",
		},
		{
			name:      "scheme defaulted",
			url:       "github.com/owner/repo",
			wantClone: "https://github.com/owner/repo.git",
		},
		{
			name:       "http scheme accepted",
			url:        "http://github.com/owner/repo/tree/dev",
			wantClone:  "https://github.com/owner/repo.git",
			wantBranch: "dev",
		},
		{
			name:      "pulls suffix collapses to base repo",
			url:       "https://github.com/owner/repo/pulls",
			wantClone: "https://github.com/owner/repo.git",
		},
		{
			name:      "issues suffix collapses to base repo",
			url:       "https://github.com/owner/repo/issues/42",
			wantClone: "https://github.com/owner/repo.git",
		},
		{
			name:       "tree url yields branch",
			url:        "https://github.com/owner/repo/tree/dev",
			wantClone:  "https://github.com/owner/repo.git",
			wantBranch: "dev",
		},
		{
			name:       "tree url with subdirectory enabled",
			url:        "https://github.com/owner/repo/tree/dev/src/lib",
			useSubdir:  true,
			wantClone:  "https://github.com/owner/repo.git",
			wantBranch: "dev",
			wantSubdir: "src/lib",
		},
		{
			name:       "tree url with subdirectory disabled",
			url:        "https://github.com/owner/repo/tree/dev/src/lib",
			wantClone:  "https://github.com/owner/repo.git",
			wantBranch: "dev",
		},
		{
			name:    "empty url",
			url:     "  ",
			wantErr: "no repository URL provided",
		},
		{
			name:    "not github",
			url:     "https://gitlab.com/owner/repo",
			wantErr: "invalid GitHub URL format",
		},
		{
			name:    "owner without repository",
			url:     "https://github.com/owner",
			wantErr: "invalid GitHub URL format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clone, branch, subdir, err := ParseGitHubURL(tt.url, tt.useSubdir, NopLogger{})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantClone, clone)
			assert.Equal(t, tt.wantBranch, branch)
			assert.Equal(t, tt.wantSubdir, subdir)
		})
	}
}

func TestSanitizeBranch(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"main", "main"},
		{" dev ", "dev"},
		{"v1.2.3", "v1.2.3"},
		{"HEAD", "main"},
		{"HEADmain", "main"},
		{"feature branch", "featurebranch"},
		{"fix?x=1", "fix"},
		{"dev#readme", "dev"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeBranch(tt.raw, NopLogger{}), "raw=%q", tt.raw)
	}
}

func TestSanitizeSubdir(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"src/lib", "src/lib"},
		{"src/lib/", "src/lib"},
		{"/src//lib", "src/lib"},
		{`a\b`, "a/b"},
		{"docs?plain=1", "docs"},
		{"docs#anchor", "docs"},
		{".", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeSubdir(tt.raw), "raw=%q", tt.raw)
	}
}

func TestBuildAuthURL(t *testing.T) {
	log := NopLogger{}

	assert.Equal(t, "https://tok@github.com/o/r.git",
		BuildAuthURL("https://github.com/o/r.git", "tok", log))
	assert.Equal(t, "https://tok@github.com/o/r.git",
		BuildAuthURL("http://github.com/o/r.git", "tok", log))
	assert.Equal(t, "https://tok@github.com/o/r.git",
		BuildAuthURL("github.com/o/r.git", "tok", log))
	assert.Equal(t, "", BuildAuthURL("", "tok", log))
	assert.Equal(t, "", BuildAuthURL("https://github.com/o/r.git", "", log))
}

func TestRepoNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/o/repo.git", "repo"},
		{"https://github.com/o/repo", "repo"},
		{"https://github.com/o/repo/", "repo"},
		{"https://tok@github.com/o/repo.git", "repo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repoNameFromURL(tt.url), tt.url)
	}
}
