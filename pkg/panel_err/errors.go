// pkg/panel_err/errors.go
//
// Error taxonomy for provisioning runs. Every error a command returns maps
// to one of the documented exit codes: 0 success, 1 validation or fatal step
// failure, 2 operator-declined confirmation.

package panel_err

import (
	"errors"
	"fmt"

	cerr "github.com/cockroachdb/errors"
)

// ValidationError reports bad or missing required input. It is surfaced
// immediately, before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError with a hint attached.
func NewValidationError(field, reason string) error {
	return cerr.WithHint(&ValidationError{Field: field, Reason: reason},
		"fix the input and run the command again")
}

// StepFailure reports a provisioning step whose external collaborator
// returned non-success. Fatal failures abort the run and trigger the
// rollback offer; non-fatal failures are recorded and the run continues.
type StepFailure struct {
	StepID string
	Fatal  bool
	Err    error
}

func (e *StepFailure) Error() string {
	kind := "non-fatal"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("step %s failed (%s): %v", e.StepID, kind, e.Err)
}

func (e *StepFailure) Unwrap() error { return e.Err }

// NewStepFailure wraps a collaborator error with the failing step identity.
func NewStepFailure(stepID string, fatal bool, err error) error {
	return &StepFailure{StepID: stepID, Fatal: fatal, Err: err}
}

// RollbackFailure reports that undoing a single step failed. It is logged
// per step and never halts the rollback of the remaining steps.
type RollbackFailure struct {
	StepID string
	Err    error
}

func (e *RollbackFailure) Error() string {
	return fmt.Sprintf("rollback of step %s failed: %v", e.StepID, e.Err)
}

func (e *RollbackFailure) Unwrap() error { return e.Err }

// ConfirmationDeclined is not an error condition: the operator reviewed the
// summary and chose not to proceed. Commands exit 2, cleanly.
type ConfirmationDeclined struct {
	Operation string
}

func (e *ConfirmationDeclined) Error() string {
	return fmt.Sprintf("operator declined: %s", e.Operation)
}

// NewConfirmationDeclined records a declined confirmation.
func NewConfirmationDeclined(operation string) error {
	return &ConfirmationDeclined{Operation: operation}
}

// IsConfirmationDeclined checks whether err represents a declined prompt.
func IsConfirmationDeclined(err error) bool {
	var d *ConfirmationDeclined
	return errors.As(err, &d)
}

// IsValidation checks whether err is a validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ExitCode maps an error to the documented CLI exit codes.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsConfirmationDeclined(err):
		return 2
	default:
		return 1
	}
}
