// Package git wraps the git subprocesses the commit flow needs: repository
// discovery, the staged diff, the current branch, and the commit itself.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"ollacommit/cli/internal/erruser"
)

var (
	// ErrNotRepository indicates the directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")
	// ErrCommitFailed indicates git commit exited non-zero.
	ErrCommitFailed = errors.New("git commit failed")
)

// RepoRoot returns the absolute path of the git repository root containing dir.
// Runs "git rev-parse --show-toplevel" with Dir=dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("This is not a git repository 🙅‍♂️", fmt.Errorf("%w: %w", ErrNotRepository, err))
	}
	root := strings.TrimSpace(string(out))
	return filepath.Abs(root)
}

// StagedDiff returns the output of "git diff --staged" untouched. Colour and
// external diff drivers from the user's git config are disabled so the text is
// a plain unified diff. An empty string means nothing is staged.
func StagedDiff(ctx context.Context, repoRoot string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--staged", "--no-color", "--no-ext-diff")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("Could not read staged changes.", err)
	}
	return string(out), nil
}

// CurrentBranch returns "git branch --show-current" with newlines removed.
// Detached HEAD yields "".
func CurrentBranch(ctx context.Context, repoRoot string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "branch", "--show-current")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("Could not read the current branch.", err)
	}
	return strings.ReplaceAll(strings.TrimSpace(string(out)), "\n", ""), nil
}

// Commit runs "git commit -F -" in repoRoot with message on stdin, so the
// message reaches git byte for byte. On failure the returned error wraps
// ErrCommitFailed and carries git's output verbatim.
func Commit(ctx context.Context, repoRoot, message string) error {
	cmd := exec.CommandContext(ctx, "git", "commit", "-F", "-")
	cmd.Dir = repoRoot
	cmd.Env = commitEnv()
	cmd.Stdin = strings.NewReader(message)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return erruser.New("Commit failed.", fmt.Errorf("%w: %w\n%s", ErrCommitFailed, err, strings.TrimSpace(string(out))))
	}
	return nil
}

// Committer commits into a fixed repository.
type Committer struct {
	RepoRoot string
}

// Commit implements the commit step of the pipeline.
func (c Committer) Commit(ctx context.Context, message string) error {
	return Commit(ctx, c.RepoRoot, message)
}
