// pkg/provision/executor.go

package provision

import (
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Executor walks a plan in order, recording every outcome in the run ledger.
//
// Failure policy: a failed fatal step aborts the run immediately and the
// partial ledger is returned alongside the error so the caller can offer
// rollback. A failed non-fatal step is recorded and the run continues.
// The executor itself never prompts; confirmation and the rollback offer
// are the caller's concern.
type Executor struct{}

// Run applies the steps in order. The returned ledger always reflects every
// step attempted, including the failed one that aborted the run.
func (e *Executor) Run(rc *panel_io.RuntimeContext, steps []*Step) (*Ledger, error) {
	logger := otelzap.Ctx(rc.Ctx)
	ledger := NewLedger(rc.RunID)

	for i, step := range steps {
		logger.Info("Executing step",
			zap.String("step", step.ID),
			zap.Int("position", i+1),
			zap.Int("total", len(steps)),
			zap.Bool("fatal", step.Fatal))

		result := step.Apply(rc)
		ledger.Append(step.ID, result)

		switch result.Outcome {
		case Succeeded:
			logger.Info("Step completed",
				zap.String("step", step.ID),
				zap.String("detail", result.Detail))
		case Skipped:
			logger.Info("Step skipped",
				zap.String("step", step.ID),
				zap.String("reason", result.Detail))
		case Failed:
			if step.Fatal {
				logger.Error("Fatal step failed, aborting run",
					zap.String("step", step.ID),
					zap.String("detail", result.Detail))
				return ledger, panel_err.NewStepFailure(step.ID, true, cerr.New(result.Detail))
			}
			logger.Warn("Non-fatal step failed, continuing",
				zap.String("step", step.ID),
				zap.String("detail", result.Detail))
		}
	}

	logger.Info("Provisioning run complete",
		zap.Int("succeeded", ledger.Count(Succeeded)),
		zap.Int("skipped", ledger.Count(Skipped)),
		zap.Int("failed", ledger.Count(Failed)))
	return ledger, nil
}
