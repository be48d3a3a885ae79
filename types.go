package main

import "time"

// CommitInfo describes the most recent commit touching a file. Absence of
// history is modeled as a nil *CommitInfo, not an error.
type CommitInfo struct {
	Message string
	Author  string
	Date    time.Time
}

// CommitSource looks up last-commit metadata for a path relative to the
// repository root. Implementations must return (nil, nil) when the path has
// no commits, and an error only for actual lookup failures.
type CommitSource interface {
	LastCommit(relPath string) (*CommitInfo, error)
}

// ExportStats holds the aggregate counters for one export run. It is owned
// by the render pass; the walker's ignore evaluation records binary skips
// into it so the final numbers reflect everything the run saw.
type ExportStats struct {
	ProcessedFiles int `json:"processed_files"`
	SkippedFiles   int `json:"skipped_files"`
	BinaryFiles    int `json:"binary_files"`
	ErrorFiles     int `json:"error_files"`
	TotalChars     int `json:"total_chars"`
	TotalLines     int `json:"total_lines"`
	TotalTokens    int `json:"total_tokens"`
}

// ExportOptions carries everything an export run needs. Resolved once in
// main.go from flags and config; the engine never consults global state.
type ExportOptions struct {
	RepoURL      string // remote repository to clone, empty for local exports
	LocalDir     string // local directory to export
	Branch       string // branch or commit to check out (clone only)
	Subdir       string // subdirectory to export instead of the root
	Token        string // access token for private repositories
	Format       string // "text" or "json"
	OutputFile   string // artifact file name, defaulted when empty
	ExportsDir   string // directory artifacts are written into
	PatternMode  string // "exclude" or "include"
	PatternInput string // semicolon-separated glob patterns
	MaxSizeKB    int    // per-file size cap in KB, 0 for no limit
	SkipRemove   bool   // keep the temporary clone directory
	UseSubdirURL bool   // honor /tree/<branch>/<subdir> in the URL
}

// ConvertOptions carries the parameters of one document conversion.
type ConvertOptions struct {
	Input     string // input file or directory
	Format    string // "text", "csv", "markdown" or "pdf"
	OutputDir string // destination directory, defaulted when empty
	Pages     string // page-range expression, e.g. "1,3-5"
}

// WebOptions configures the embedded web server.
type WebOptions struct {
	Host       string
	Port       int
	ExportsDir string
	UploadsDir string
}
