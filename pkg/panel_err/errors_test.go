// pkg/panel_err/errors_test.go

package panel_err

import (
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(NewConfirmationDeclined("install")))
	assert.Equal(t, 1, ExitCode(NewValidationError("domain", "cannot be empty")))
	assert.Equal(t, 1, ExitCode(NewStepFailure("database", true, cerr.New("mysql exited 1"))))
}

func TestExitCodeSurvivesWrapping(t *testing.T) {
	err := cerr.Wrap(NewConfirmationDeclined("uninstall"), "confirming teardown")
	assert.True(t, IsConfirmationDeclined(err))
	assert.Equal(t, 2, ExitCode(err))
}

func TestStepFailureMessage(t *testing.T) {
	err := NewStepFailure("dependencies", true, cerr.New("composer exited 1"))
	assert.Contains(t, err.Error(), "dependencies")
	assert.Contains(t, err.Error(), "fatal")

	var sf *StepFailure
	assert.True(t, cerr.As(err, &sf))
	assert.True(t, sf.Fatal)
}

func TestValidationDetection(t *testing.T) {
	err := NewValidationError("db-engine", "must be mariadb or mysql")
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(cerr.New("something else")))
}
