// pkg/ufw/ufw.go

package ufw

import (
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Firewall manages ufw allow rules. Allowing an already-allowed rule is a
// no-op, so re-runs converge. Rules are never removed: other services on the
// host may rely on the same ports.
type Firewall struct {
	Runner execute.RunnerFunc
}

// New returns a Firewall that shells out to ufw.
func New() *Firewall {
	return &Firewall{Runner: execute.Run}
}

// Allow opens the named service or port profile.
func (f *Firewall) Allow(rc *panel_io.RuntimeContext, rule string) error {
	otelzap.Ctx(rc.Ctx).Info("Allowing firewall rule", zap.String("rule", rule))
	_, err := f.Runner(rc.Ctx, execute.Options{
		Command: "ufw",
		Args:    []string{"allow", rule},
	})
	return err
}
