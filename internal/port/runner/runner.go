// Package runner defines the side-effect runner ports used by the code
// modifier pipeline: formatting, testing and version-control delivery.
package runner

import "context"

// TestResult is the outcome of one test-suite invocation.
type TestResult struct {
	Passed    bool
	RawOutput string
}

// Formatter formats a proposed file body. It must be idempotent and
// deterministic; it never verifies semantics (the test stage does that).
type Formatter interface {
	Format(ctx context.Context, relPath, content string) (string, error)
}

// TestRunner runs the configured test command against an isolated working copy.
type TestRunner interface {
	Run(ctx context.Context, dir string) (TestResult, error)
}

// Committer applies an approved diff to the real working tree and records it
// in version control. Implementations must clean up a partially applied patch
// on failure so the tree is never left half-patched.
type Committer interface {
	// ApplyAndCommit applies the unified diff in dir and commits with message.
	// Returns the commit hash.
	ApplyAndCommit(ctx context.Context, dir, diff, message string) (string, error)

	// Status returns branch, head commit and dirty flag for dir.
	Status(ctx context.Context, dir string) (RepoStatus, error)
}

// RepoStatus is a snapshot of the working tree's git state.
type RepoStatus struct {
	Branch             string `json:"branch"`
	CommitHash         string `json:"commit_hash"`
	UncommittedChanges bool   `json:"uncommitted_changes"`
}
