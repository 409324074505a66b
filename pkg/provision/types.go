// pkg/provision/types.go

package provision

import (
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
)

// Outcome classifies the result of applying one provisioning step.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"
)

// StepResult is the recorded outcome of one step application.
type StepResult struct {
	Outcome     Outcome
	Detail      string
	Recoverable bool
}

// Step is one idempotent unit of provisioning work. Steps are constructed by
// the planner, consumed by the executor, and never mutated. Later steps may
// assume earlier ones succeeded.
type Step struct {
	ID          string
	Description string

	// Fatal steps abort the run when they fail; non-fatal failures are
	// recorded and the run continues.
	Fatal bool

	// Recoverable steps have a meaningful undo inside the managed
	// footprint. Steps that only touch shared host state (package
	// installation, firewall rules) are not recoverable.
	Recoverable bool

	skip  func(rc *panel_io.RuntimeContext) (bool, string)
	apply func(rc *panel_io.RuntimeContext) (string, error)
	undo  func(rc *panel_io.RuntimeContext) error
}

// Apply runs the step and reports its outcome. Re-applying an
// already-applied step converges instead of failing: every apply function is
// written against existing host state.
func (s *Step) Apply(rc *panel_io.RuntimeContext) StepResult {
	if s.skip != nil {
		if yes, reason := s.skip(rc); yes {
			return StepResult{Outcome: Skipped, Detail: reason, Recoverable: s.Recoverable}
		}
	}

	detail, err := s.apply(rc)
	if err != nil {
		return StepResult{Outcome: Failed, Detail: err.Error(), Recoverable: s.Recoverable}
	}
	return StepResult{Outcome: Succeeded, Detail: detail, Recoverable: s.Recoverable}
}

// Undo reverses the step, best-effort. Safe on steps without an undo action.
func (s *Step) Undo(rc *panel_io.RuntimeContext) error {
	if s.undo == nil {
		return nil
	}
	return s.undo(rc)
}

// Entry pairs a step id with its recorded result.
type Entry struct {
	StepID string
	Result StepResult
}

// Ledger is the ordered record of step outcomes for one run: append-only
// during forward execution, read in reverse during rollback, and discarded
// at the end of the run.
type Ledger struct {
	RunID   string
	entries []Entry
}

// NewLedger creates an empty ledger for one run.
func NewLedger(runID string) *Ledger {
	return &Ledger{RunID: runID}
}

// Append records a step outcome.
func (l *Ledger) Append(stepID string, result StepResult) {
	l.entries = append(l.entries, Entry{StepID: stepID, Result: result})
}

// Entries returns a copy of the recorded outcomes in execution order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded outcomes.
func (l *Ledger) Len() int { return len(l.entries) }

// Count returns how many entries share the given outcome.
func (l *Ledger) Count(outcome Outcome) int {
	n := 0
	for _, e := range l.entries {
		if e.Result.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failures returns the entries that recorded a failure, fatal or not. They
// are surfaced in the final summary even when the run succeeds overall.
func (l *Ledger) Failures() []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Result.Outcome == Failed {
			out = append(out, e)
		}
	}
	return out
}
