// pkg/apprepo/apprepo.go
//
// Application checkout management via go-git. Ensure converges: a fresh host
// gets a clone, an existing checkout gets fetched and hard-reset to the
// remote head, so local drift never breaks a re-run.

package apprepo

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	cerr "github.com/cockroachdb/errors"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Syncer clones and updates the application repository.
type Syncer struct{}

// New returns a Syncer.
func New() *Syncer {
	return &Syncer{}
}

// Ensure makes dir an up-to-date checkout of url. The returned detail says
// whether it cloned or updated.
func (s *Syncer) Ensure(rc *panel_io.RuntimeContext, url, dir string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	repo, err := git.PlainOpen(dir)
	if err == git.ErrRepositoryNotExists {
		logger.Info("Cloning repository", zap.String("url", url), zap.String("dir", dir))
		_, err := git.PlainCloneContext(rc.Ctx, dir, false, &git.CloneOptions{
			URL: url,
		})
		if err != nil {
			return "", cerr.Wrapf(err, "clone %s", url)
		}
		return "cloned " + url, nil
	}
	if err != nil {
		return "", cerr.Wrapf(err, "open checkout at %s", dir)
	}

	logger.Info("Updating existing checkout", zap.String("dir", dir))
	if err := repo.FetchContext(rc.Ctx, &git.FetchOptions{}); err != nil && err != git.NoErrAlreadyUpToDate {
		return "", cerr.Wrap(err, "fetch")
	}

	head, err := remoteHead(repo)
	if err != nil {
		return "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", cerr.Wrap(err, "worktree")
	}
	if err := wt.Reset(&git.ResetOptions{Commit: head, Mode: git.HardReset}); err != nil {
		return "", cerr.Wrap(err, "reset to remote head")
	}
	return "updated to " + head.String()[:12], nil
}

// remoteHead resolves the commit the remote's default branch points at,
// trying origin/HEAD first and the common branch names after.
func remoteHead(repo *git.Repository) (plumbing.Hash, error) {
	for _, name := range []string{
		"refs/remotes/origin/HEAD",
		"refs/remotes/origin/main",
		"refs/remotes/origin/master",
	} {
		ref, err := repo.Reference(plumbing.ReferenceName(name), true)
		if err == nil {
			return ref.Hash(), nil
		}
	}

	// A local-only repository (as in tests) has no remote refs; fall back
	// to its own HEAD.
	ref, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, cerr.Wrap(err, "resolve remote head")
	}
	return ref.Hash(), nil
}

// Remove deletes the checkout directory. Removing an absent directory is a
// no-op so rollback after a failed clone still succeeds.
func (s *Syncer) Remove(rc *panel_io.RuntimeContext, dir string) error {
	otelzap.Ctx(rc.Ctx).Info("Removing checkout", zap.String("dir", dir))
	if err := os.RemoveAll(dir); err != nil {
		return cerr.Wrapf(err, "remove %s", dir)
	}
	return nil
}
