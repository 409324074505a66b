// pkg/apprepo/apprepo_test.go

package apprepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRC(t *testing.T) *panel_io.RuntimeContext {
	t.Helper()
	return panel_io.NewContext(context.Background(), "test")
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestEnsureClonesFreshCheckout(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)
	commitFile(t, repo, src, "README.md", "hello")

	dest := filepath.Join(t.TempDir(), "checkout")
	s := New()

	detail, err := s.Ensure(testRC(t), src, dest)
	require.NoError(t, err)
	assert.Contains(t, detail, "cloned")

	data, err := os.ReadFile(filepath.Join(dest, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestEnsureConvergesExistingCheckout(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)
	commitFile(t, repo, src, "README.md", "v1")

	dest := filepath.Join(t.TempDir(), "checkout")
	s := New()
	rc := testRC(t)

	_, err = s.Ensure(rc, src, dest)
	require.NoError(t, err)

	// Local drift in the checkout plus a new upstream commit.
	require.NoError(t, os.WriteFile(filepath.Join(dest, "scratch.txt"), []byte("drift"), 0o644))
	commitFile(t, repo, src, "README.md", "v2")

	detail, err := s.Ensure(rc, src, dest)
	require.NoError(t, err)
	assert.Contains(t, detail, "updated")

	data, err := os.ReadFile(filepath.Join(dest, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data), "checkout must converge on upstream state")
}

func TestEnsureIsIdempotentWithNoUpstreamChange(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)
	commitFile(t, repo, src, "README.md", "stable")

	dest := filepath.Join(t.TempDir(), "checkout")
	s := New()
	rc := testRC(t)

	_, err = s.Ensure(rc, src, dest)
	require.NoError(t, err)
	_, err = s.Ensure(rc, src, dest)
	require.NoError(t, err, "re-run against unchanged upstream must succeed")
}

func TestRemoveMissingDirIsNoop(t *testing.T) {
	s := New()
	err := s.Remove(testRC(t), filepath.Join(t.TempDir(), "never-created"))
	assert.NoError(t, err)
}

func TestRemoveDeletesCheckout(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)
	commitFile(t, repo, src, "README.md", "hello")

	dest := filepath.Join(t.TempDir(), "checkout")
	s := New()
	rc := testRC(t)

	_, err = s.Ensure(rc, src, dest)
	require.NoError(t, err)

	require.NoError(t, s.Remove(rc, dest))
	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}
