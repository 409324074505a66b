// pkg/apt/apt.go
//
// Debian/Ubuntu package management. Install is idempotent by apt's own
// semantics: already-installed packages are a no-op. There is no remove
// operation in this package at all; the installed set is shared host state.

package apt

import (
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Manager drives apt-get non-interactively.
type Manager struct {
	Runner execute.RunnerFunc
}

// New returns a Manager that shells out to apt-get.
func New() *Manager {
	return &Manager{Runner: execute.Run}
}

func (m *Manager) env() []string {
	return []string{"DEBIAN_FRONTEND=noninteractive"}
}

// Update refreshes the package index.
func (m *Manager) Update(rc *panel_io.RuntimeContext) error {
	otelzap.Ctx(rc.Ctx).Info("Updating package index")
	_, err := m.Runner(rc.Ctx, execute.Options{
		Command: "apt-get",
		Args:    []string{"update", "-y"},
		Env:     m.env(),
	})
	return err
}

// Install installs the named packages in one transaction.
func (m *Manager) Install(rc *panel_io.RuntimeContext, names []string) error {
	otelzap.Ctx(rc.Ctx).Info("Installing packages", zap.Int("count", len(names)))
	args := append([]string{"install", "-y"}, names...)
	_, err := m.Runner(rc.Ctx, execute.Options{
		Command: "apt-get",
		Args:    args,
		Env:     m.env(),
	})
	return err
}
