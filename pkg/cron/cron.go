// pkg/cron/cron.go
//
// The recurring schedule entry lives in its own /etc/cron.d file named after
// the managed schedule id, so removal targets exactly what was installed and
// never edits another package's crontab.

package cron

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Scheduler installs the per-minute schedule runner entry.
type Scheduler struct {
	CronDir string
}

// New returns a Scheduler writing to /etc/cron.d.
func New() *Scheduler {
	return &Scheduler{CronDir: shared.CronDir}
}

// InstallSchedule writes the cron.d entry. Overwriting converges on re-runs.
func (s *Scheduler) InstallSchedule(rc *panel_io.RuntimeContext, id, appDir string) error {
	path := filepath.Join(s.CronDir, id)
	entry := fmt.Sprintf("* * * * * www-data cd %s && php artisan schedule:run >> /dev/null 2>&1\n", appDir)
	if err := os.WriteFile(path, []byte(entry), 0o644); err != nil {
		return cerr.Wrapf(err, "write schedule entry %s", path)
	}

	otelzap.Ctx(rc.Ctx).Info("Installed schedule entry", zap.String("id", id))
	return nil
}

// RemoveSchedule deletes the managed entry. Absent entries are tolerated.
func (s *Scheduler) RemoveSchedule(rc *panel_io.RuntimeContext, id string) error {
	path := filepath.Join(s.CronDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cerr.Wrapf(err, "remove schedule entry %s", path)
	}
	otelzap.Ctx(rc.Ctx).Info("Removed schedule entry", zap.String("id", id))
	return nil
}
