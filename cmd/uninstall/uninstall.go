// cmd/uninstall/uninstall.go

package uninstall

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/apprepo"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/certbot"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/cron"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/mysql"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/nginx"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_cli"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/systemd"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/uninstall"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// NewCommand builds the uninstall command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the control panel from this host",
		Long: `Remove everything install created: the queue worker service, the cron
schedule, the nginx site, the TLS certificate, the application database and
user, and the application directory.

Shared packages (nginx, PHP, the database server, redis, certbot) are left
installed; other applications on the host may depend on them.`,
		RunE: panel_cli.Wrap(runUninstall),
	}

	flags := cmd.Flags()
	flags.BoolP("yes", "y", false, "skip the confirmation prompt")
	flags.String("mysql-root-password", "", "database root password; empty uses socket auth")

	return cmd
}

func runUninstall(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	assumeYes, _ := cmd.Flags().GetBool("yes")
	rootPassword, _ := cmd.Flags().GetString("mysql-root-password")

	target, err := uninstall.DiscoverTarget(rc, shared.EnvFilePath)
	if err != nil {
		return err
	}

	if err := uninstall.Confirm(rc, target, assumeYes); err != nil {
		return err
	}

	db := mysql.New(target.DBHost, rootPassword)
	handler := panel_cli.NewSignalHandler(rc.Ctx)
	handler.RegisterCleanup(db.Cleanup)
	defer handler.Stop()
	defer func() {
		if err := db.Cleanup(); err != nil {
			logger.Warn("Credential cleanup failed", zap.Error(err))
		}
	}()
	rc.Ctx = handler.Context()

	deps := &uninstall.Deps{
		Repo:     apprepo.New(),
		DB:       db,
		Web:      nginx.New(),
		Services: systemd.New(),
		Schedule: cron.New(),
		Certs:    certbot.New(),
	}

	if err := uninstall.Run(rc, target, deps); err != nil {
		fmt.Printf("\nUninstall partially completed: %v\n", err)
		fmt.Println("Fix the reported targets and re-run uninstall; completed removals are no-ops.")
		return err
	}

	fmt.Println("\nUninstall complete. Shared packages were left installed.")
	return nil
}
