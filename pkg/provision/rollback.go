// pkg/provision/rollback.go
//
// Rollback walks the run ledger in reverse and undoes the steps that both
// succeeded and are recoverable. Everything else is left alone: shared host
// packages survive, skipped and failed steps have nothing to reverse.

package provision

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// OfferRollback asks the operator whether to undo the recoverable steps of a
// failed run. Declining is not an error; the partial state is simply left in
// place for inspection. With assumeYes set, rollback proceeds unprompted.
func OfferRollback(rc *panel_io.RuntimeContext, ledger *Ledger, steps []*Step, assumeYes bool) error {
	candidates := rollbackCandidates(ledger, steps)
	if len(candidates) == 0 {
		otelzap.Ctx(rc.Ctx).Info("Nothing to roll back")
		return nil
	}

	if !assumeYes {
		fmt.Printf("\nThe run left %d recoverable step(s) applied:\n", len(candidates))
		for _, c := range candidates {
			fmt.Printf("  - %s\n", c.step.ID)
		}
		proceed, err := panel_io.PromptYesNo(rc, "Roll back these steps now?", true)
		if err != nil {
			return err
		}
		if !proceed {
			otelzap.Ctx(rc.Ctx).Warn("Rollback declined, partial state left in place")
			return nil
		}
	}

	return Rollback(rc, ledger, steps)
}

// Rollback undoes every succeeded recoverable step, newest first. Individual
// undo failures are collected rather than halting: each remaining step still
// gets its chance to be reversed.
func Rollback(rc *panel_io.RuntimeContext, ledger *Ledger, steps []*Step) error {
	logger := otelzap.Ctx(rc.Ctx)
	candidates := rollbackCandidates(ledger, steps)

	logger.Info("Rolling back", zap.Int("steps", len(candidates)))

	var result *multierror.Error
	for _, c := range candidates {
		logger.Info("Rolling back step", zap.String("step", c.step.ID))
		if err := c.step.Undo(rc); err != nil {
			logger.Error("Rollback of step failed",
				zap.String("step", c.step.ID), zap.Error(err))
			result = multierror.Append(result, &panel_err.RollbackFailure{StepID: c.step.ID, Err: err})
			continue
		}
		logger.Info("Step rolled back", zap.String("step", c.step.ID))
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	logger.Info("Rollback complete")
	return nil
}

type rollbackCandidate struct {
	step  *Step
	entry Entry
}

// rollbackCandidates returns the succeeded, recoverable ledger entries in
// reverse execution order, each resolved to its step.
func rollbackCandidates(ledger *Ledger, steps []*Step) []rollbackCandidate {
	byID := make(map[string]*Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	entries := ledger.Entries()
	var out []rollbackCandidate
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Result.Outcome != Succeeded || !e.Result.Recoverable {
			continue
		}
		step, ok := byID[e.StepID]
		if !ok {
			continue
		}
		out = append(out, rollbackCandidate{step: step, entry: e})
	}
	return out
}
