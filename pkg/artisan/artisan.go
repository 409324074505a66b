// pkg/artisan/artisan.go

package artisan

import (
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Runner invokes the application's own console commands (php artisan ...)
// inside the checkout.
type Runner struct {
	Runner execute.RunnerFunc
}

// New returns a Runner that shells out to the php binary.
func New() *Runner {
	return &Runner{Runner: execute.Run}
}

// Run executes one artisan command in dir.
func (r *Runner) Run(rc *panel_io.RuntimeContext, dir string, args ...string) error {
	otelzap.Ctx(rc.Ctx).Info("Running artisan command", zap.Strings("args", args))
	_, err := r.Runner(rc.Ctx, execute.Options{
		Command: "php",
		Args:    append([]string{"artisan"}, args...),
		Dir:     dir,
	})
	return err
}
