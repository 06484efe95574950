// Package git_test tests repository root and HEAD commit lookup against a scratch repository.
// Related: internal/git/git.go
// Tags: git, commit, repository
package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository with one commit, skipping when git is absent.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"-c", "user.name=qc", "-c", "user.email=qc@example.com", "commit", "-q", "--allow-empty", "-m", "init"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	return dir
}

func TestHeadCommit(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	sha, err := HeadCommit(dir)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{40}$`), sha)
	assert.Equal(t, sha, CommitOr(dir, "unknown"))
}

func TestGetRepositoryRoot(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	sub := filepath.Join(dir, "data", "lanes")
	require.NoError(t, os.MkdirAll(sub, 0755))

	root, err := GetRepositoryRoot(sub)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, IsGitRepository(sub))
}

func TestCommitOr_OutsideRepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if IsGitRepository(dir) {
		t.Skip("temp dir is inside a git repository")
	}
	assert.Equal(t, "unknown", CommitOr(dir, "unknown"))
	_, err := GetRepositoryRoot(dir)
	assert.Error(t, err)
}
