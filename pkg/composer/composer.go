// pkg/composer/composer.go

package composer

import (
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Installer runs composer inside the application checkout. Composer resolves
// against the committed lock file, so re-runs converge on the same vendor
// tree.
type Installer struct {
	Runner execute.RunnerFunc
}

// New returns an Installer that shells out to composer.
func New() *Installer {
	return &Installer{Runner: execute.Run}
}

// Install installs production dependencies for the checkout at dir.
func (i *Installer) Install(rc *panel_io.RuntimeContext, dir string) error {
	otelzap.Ctx(rc.Ctx).Info("Installing composer dependencies", zap.String("dir", dir))
	_, err := i.Runner(rc.Ctx, execute.Options{
		Command: "composer",
		Args:    []string{"install", "--no-dev", "--no-interaction", "--optimize-autoloader"},
		Dir:     dir,
		Env:     []string{"COMPOSER_ALLOW_SUPERUSER=1"},
	})
	return err
}
