// Package gitcli implements the runner.Committer port using local git CLI
// commands. All operations funnel through a concurrency pool so commits to
// the shared working tree are serialized.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/frankie-agent/frankie/internal/git"
	"github.com/frankie-agent/frankie/internal/port/runner"
)

// Committer applies diffs and records commits via the git CLI. Read
// operations run on the ops pool; writes funnel through the commit pool,
// which should have limit 1 so commits to the shared tree never interleave.
type Committer struct {
	ops     *git.Pool
	commits *git.Pool
}

// NewCommitter creates a Committer over the two git pools.
func NewCommitter(ops, commits *git.Pool) *Committer {
	return &Committer{ops: ops, commits: commits}
}

// ApplyAndCommit applies the unified diff inside dir, stages everything and
// commits with the given message. LLM-generated diffs often carry slightly
// wrong hunk counts or a missing trailing newline, so the patch is applied
// with --recount and --inaccurate-eof. On any failure the working tree is
// rolled back with reset --hard so it is never left half-patched.
func (c *Committer) ApplyAndCommit(ctx context.Context, dir, diff, message string) (string, error) {
	var hash string
	err := c.commits.Run(ctx, func() error {
		patch, err := writePatchFile(diff)
		if err != nil {
			return err
		}
		defer func() { _ = os.Remove(patch) }()

		if _, err := runGit(ctx, dir, "apply", "--recount", "--inaccurate-eof", "--allow-empty", patch); err != nil {
			c.rollback(ctx, dir)
			return fmt.Errorf("gitcli: apply patch: %w", err)
		}

		if _, err := runGit(ctx, dir, "add", "-A"); err != nil {
			c.rollback(ctx, dir)
			return fmt.Errorf("gitcli: stage changes: %w", err)
		}

		if _, err := runGit(ctx, dir, "commit", "-m", message); err != nil {
			c.rollback(ctx, dir)
			return fmt.Errorf("gitcli: commit: %w", err)
		}

		out, err := runGit(ctx, dir, "rev-parse", "HEAD")
		if err != nil {
			return fmt.Errorf("gitcli: resolve head: %w", err)
		}
		hash = strings.TrimSpace(out)
		return nil
	})
	return hash, err
}

// Status returns branch, head commit and dirty flag for dir.
func (c *Committer) Status(ctx context.Context, dir string) (runner.RepoStatus, error) {
	var status runner.RepoStatus
	err := c.ops.Run(ctx, func() error {
		branch, err := runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return fmt.Errorf("gitcli: get branch: %w", err)
		}
		status.Branch = strings.TrimSpace(branch)

		head, err := runGit(ctx, dir, "rev-parse", "HEAD")
		if err != nil {
			return fmt.Errorf("gitcli: get head: %w", err)
		}
		status.CommitHash = strings.TrimSpace(head)

		porcelain, err := runGit(ctx, dir, "status", "--porcelain")
		if err != nil {
			return fmt.Errorf("gitcli: porcelain status: %w", err)
		}
		status.UncommittedChanges = strings.TrimSpace(porcelain) != ""
		return nil
	})
	return status, err
}

func (c *Committer) rollback(ctx context.Context, dir string) {
	_, _ = runGit(ctx, dir, "reset", "--hard", "HEAD")
}

// DiffFiles produces a unified diff between two files on disk, with the
// given label used for both sides of the header. git diff --no-index exits
// with code 1 when the files differ, which is not an error here.
func DiffFiles(ctx context.Context, oldPath, newPath, label string) (string, error) {
	args := []string{
		"diff", "--no-index",
		"--src-prefix=a/", "--dst-prefix=b/",
		oldPath, newPath,
	}
	cmd := exec.CommandContext(ctx, "git", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return "", fmt.Errorf("gitcli: diff: %s: %w", strings.TrimSpace(stderr.String()), err)
		}
	}

	diff := stdout.String()
	if diff == "" {
		return "", nil
	}
	return rewriteDiffPaths(diff, oldPath, newPath, label), nil
}

// rewriteDiffPaths replaces the temp-file paths git printed with the
// repository-relative path of the target file.
func rewriteDiffPaths(diff, oldPath, newPath, label string) string {
	diff = strings.ReplaceAll(diff, "a/"+strings.TrimPrefix(oldPath, "/"), "a/"+label)
	diff = strings.ReplaceAll(diff, "b/"+strings.TrimPrefix(newPath, "/"), "b/"+label)
	return diff
}

// writePatchFile stores the diff in a temp file for git apply.
func writePatchFile(diff string) (string, error) {
	f, err := os.CreateTemp("", "frankie-*.patch")
	if err != nil {
		return "", fmt.Errorf("gitcli: create patch file: %w", err)
	}
	if _, err := f.WriteString(diff); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("gitcli: write patch file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("gitcli: close patch file: %w", err)
	}
	return f.Name(), nil
}

// runGit executes a git command and returns its stdout.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = filepath.Clean(dir)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
