// Package git wraps the git CLI for the two facts a QC run records: the
// repository root that relative report directories resolve against, and the
// HEAD commit written into every report as the generator commit.
package git

import (
	"os/exec"
	"strings"
)

// run executes git with args in dir ("" means the working directory) and
// returns its trimmed stdout.
func run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// GetRepositoryRoot returns the absolute path to the repository root
func GetRepositoryRoot(dir string) (string, error) {
	return run(dir, "rev-parse", "--show-toplevel")
}

// IsGitRepository checks if dir is within a git repository
func IsGitRepository(dir string) bool {
	_, err := run(dir, "rev-parse", "--git-dir")
	return err == nil
}

// HeadCommit returns the full hash HEAD points to.
func HeadCommit(dir string) (string, error) {
	return run(dir, "rev-parse", "HEAD")
}

// CommitOr returns the HEAD commit of dir, or fallback when git is missing,
// dir is not a repository, or it has no commits yet.
func CommitOr(dir, fallback string) string {
	sha, err := HeadCommit(dir)
	if err != nil || sha == "" {
		return fallback
	}
	return sha
}
