// pkg/panel_cli/wrap_test.go

package panel_cli

import (
	"testing"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWrapped(t *testing.T, fn func(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error) error {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: Wrap(fn)}
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestWrapPassesThroughSuccess(t *testing.T) {
	err := runWrapped(t, func(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		require.NotNil(t, rc)
		require.NotEmpty(t, rc.RunID)
		return nil
	})
	assert.NoError(t, err)
}

func TestWrapRecoversPanicIntoError(t *testing.T) {
	err := runWrapped(t, func(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		panic("step exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step exploded")
}

func TestWrapPreservesDeclinedConfirmation(t *testing.T) {
	err := runWrapped(t, func(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return panel_err.NewConfirmationDeclined("install")
	})
	require.Error(t, err)
	assert.True(t, panel_err.IsConfirmationDeclined(err))
	assert.Equal(t, 2, panel_err.ExitCode(err))
}
