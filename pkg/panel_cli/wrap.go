// pkg/panel_cli/wrap.go

package panel_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// Wrap adapts a RuntimeContext-based command function to cobra, providing
// panic recovery, telemetry, and final outcome logging.
func Wrap(fn func(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		rc := panel_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		err = fn(rc, cmd, args)
		if err != nil && !panel_err.IsConfirmationDeclined(err) && !panel_err.IsValidation(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
