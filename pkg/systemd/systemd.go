// pkg/systemd/systemd.go
//
// The queue worker's systemd unit. Register writes the unit file and reloads
// the daemon; the usual systemctl verbs are thin wrappers. Only the managed
// unit is ever written or removed.

package systemd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const unitTemplate = `[Unit]
Description=Control panel queue worker
After=network.target redis-server.service

[Service]
User=www-data
Group=www-data
Restart=always
RestartSec=5
WorkingDirectory=%s
ExecStart=/usr/bin/php %s/artisan queue:work --sleep=3 --tries=3

[Install]
WantedBy=multi-user.target
`

// Manager registers and controls the worker service.
type Manager struct {
	UnitDir string
	Runner  execute.RunnerFunc
}

// New returns a Manager writing units to the system location.
func New() *Manager {
	return &Manager{UnitDir: shared.SystemdDir, Runner: execute.Run}
}

func (m *Manager) unitPath(name string) string {
	return filepath.Join(m.UnitDir, name+".service")
}

// Register writes the unit file and reloads systemd. Overwriting an existing
// unit converges on re-runs.
func (m *Manager) Register(rc *panel_io.RuntimeContext, name, appDir string) error {
	path := m.unitPath(name)
	content := fmt.Sprintf(unitTemplate, appDir, appDir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return cerr.Wrapf(err, "write unit %s", path)
	}

	otelzap.Ctx(rc.Ctx).Info("Registered service unit",
		zap.String("service", name), zap.String("unit", path))
	return m.systemctl(rc, "daemon-reload")
}

// Enable marks the service to start at boot.
func (m *Manager) Enable(rc *panel_io.RuntimeContext, name string) error {
	return m.systemctl(rc, "enable", name)
}

// Start starts the service now.
func (m *Manager) Start(rc *panel_io.RuntimeContext, name string) error {
	return m.systemctl(rc, "start", name)
}

// Stop stops the service.
func (m *Manager) Stop(rc *panel_io.RuntimeContext, name string) error {
	return m.systemctl(rc, "stop", name)
}

// Disable unmarks the service from boot startup.
func (m *Manager) Disable(rc *panel_io.RuntimeContext, name string) error {
	return m.systemctl(rc, "disable", name)
}

// Remove deletes the unit file and reloads systemd. An absent unit is
// tolerated so teardown after a partial install still succeeds.
func (m *Manager) Remove(rc *panel_io.RuntimeContext, name string) error {
	path := m.unitPath(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cerr.Wrapf(err, "remove unit %s", path)
	}
	otelzap.Ctx(rc.Ctx).Info("Removed service unit", zap.String("service", name))
	return m.systemctl(rc, "daemon-reload")
}

func (m *Manager) systemctl(rc *panel_io.RuntimeContext, args ...string) error {
	_, err := m.Runner(rc.Ctx, execute.Options{
		Command: "systemctl",
		Args:    args,
	})
	return err
}
