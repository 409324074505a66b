// cmd/root.go

package cmd

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/panelctl/cmd/install"
	"github.com/CodeMonkeyCybersecurity/panelctl/cmd/plan"
	"github.com/CodeMonkeyCybersecurity/panelctl/cmd/uninstall"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	"github.com/spf13/cobra"
)

// RootCmd is the base command for panelctl.
var RootCmd = &cobra.Command{
	Use:     "panelctl",
	Short:   "Provision and manage a control panel installation on Ubuntu",
	Version: shared.Version,
	Long: `panelctl provisions a complete control panel stack on an Ubuntu host:
nginx, PHP-FPM, MariaDB or MySQL, Redis, a queue worker service, a cron
schedule and an optional TLS certificate.

Runs are idempotent: re-running install against a partially provisioned
host converges instead of failing. A failed install offers to roll back
exactly what it created; shared packages are never removed.

Exit codes: 0 success, 1 validation or fatal step failure, 2 operator
declined a confirmation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// RegisterCommands attaches every subcommand to the root.
func RegisterCommands() {
	RootCmd.AddCommand(install.NewCommand())
	RootCmd.AddCommand(uninstall.NewCommand())
	RootCmd.AddCommand(plan.NewCommand())
}

// Execute runs the CLI and exits with the documented code.
func Execute() {
	RegisterCommands()

	err := RootCmd.Execute()
	defer logger.Sync()

	if err != nil {
		code := panel_err.ExitCode(err)
		if panel_err.IsConfirmationDeclined(err) {
			fmt.Fprintln(os.Stderr, "Aborted.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(code)
	}
}
