// cmd/install/install.go
//
// The install command: collect input, confirm, plan, execute, and on a fatal
// failure offer to roll back what the run created.

package install

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/apprepo"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/apt"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/artisan"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/cachecheck"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/certbot"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/composer"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/cron"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/envfile"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/mysql"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/nginx"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_cli"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/phpfpm"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/provision"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/systemd"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/ufw"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// flagKeys maps flag names to the collector's viper keys.
var flagKeys = map[string]string{
	"domain":              "domain",
	"ssl-email":           "ssl_email",
	"db-engine":           "db_engine",
	"db-host":             "db_host",
	"db-port":             "db_port",
	"db-name":             "db_name",
	"db-user":             "db_user",
	"db-password":         "db_password",
	"mysql-root-password": "mysql_root_password",
}

// NewCommand builds the install command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Provision the control panel on this host",
		Long: `Provision the full control panel stack. Without --non-interactive the
command prompts for anything not already supplied by flags or PANELCTL_*
environment variables. Re-running against a partially provisioned host is
safe: completed work is converged, not repeated.`,
		RunE: panel_cli.Wrap(runInstall),
	}

	flags := cmd.Flags()
	flags.String("domain", "", "panel domain name (e.g. panel.example.com)")
	flags.String("ssl-email", "", "email for the TLS certificate; empty skips HTTPS")
	flags.String("db-engine", string(config.DefaultDBEngine), "database engine: mariadb or mysql")
	flags.String("db-host", config.DefaultDBHost, "database host")
	flags.Int("db-port", config.DefaultDBPort, "database port")
	flags.String("db-name", config.DefaultDBName, "application database name")
	flags.String("db-user", config.DefaultDBUser, "application database user")
	flags.String("db-password", "", "application database password; empty generates one")
	flags.String("mysql-root-password", "", "database root password; empty uses socket auth")
	flags.Bool("non-interactive", false, "never prompt; take input from flags and environment")
	flags.BoolP("yes", "y", false, "skip confirmation prompts")

	return cmd
}

func runInstall(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")
	assumeYes, _ := cmd.Flags().GetBool("yes")

	// Explicitly-set flags win over environment variables; untouched flags
	// leave the collector's own defaults in charge.
	v := config.NewViper()
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	source := config.Interactive
	if nonInteractive || !panel_io.IsTerminal() {
		source = config.NonInteractive
	}

	cfg, err := config.Collect(rc, source, v)
	if err != nil {
		return err
	}

	if err := config.ConfirmSummary(rc, cfg, assumeYes); err != nil {
		return err
	}

	// The database client may create a root credential file; make sure it
	// is removed on every exit path, Ctrl-C included.
	db := mysql.New(cfg.DBHost, cfg.MySQLRootPassword)
	handler := panel_cli.NewSignalHandler(rc.Ctx)
	handler.RegisterCleanup(db.Cleanup)
	defer handler.Stop()
	defer func() {
		if err := db.Cleanup(); err != nil {
			logger.Warn("Credential cleanup failed", zap.Error(err))
		}
	}()
	rc.Ctx = handler.Context()

	deps := &provision.Deps{
		Packages: apt.New(),
		Firewall: ufw.New(),
		Repo:     apprepo.New(),
		Composer: composer.New(),
		PHP:      phpfpm.New(),
		Artisan:  artisan.New(),
		Env:      envfile.New(),
		DB:       db,
		Web:      nginx.New(),
		Services: systemd.New(),
		Schedule: cron.New(),
		Certs:    certbot.New(),
		Cache:    cachecheck.New(),
		Sockets:  phpfpm.New(),
	}

	steps, err := provision.Plan(cfg, deps)
	if err != nil {
		return err
	}

	executor := &provision.Executor{}
	ledger, runErr := executor.Run(rc, steps)

	printSummary(ledger)

	if runErr != nil {
		if rbErr := provision.OfferRollback(rc, ledger, steps, assumeYes); rbErr != nil {
			logger.Error("Rollback did not fully complete", zap.Error(rbErr))
			fmt.Printf("Rollback incomplete: %v\n", rbErr)
		}
		return runErr
	}

	fmt.Printf("\nInstallation complete. Panel available at %s\n", cfg.AppURL())
	if !cfg.CertificateEligible() {
		fmt.Println("HTTPS was skipped; provide --ssl-email with a public domain to enable it.")
	}
	return nil
}

func printSummary(ledger *provision.Ledger) {
	fmt.Printf("\nRun %s: %d succeeded, %d skipped, %d failed\n",
		ledger.RunID,
		ledger.Count(provision.Succeeded),
		ledger.Count(provision.Skipped),
		ledger.Count(provision.Failed))

	for _, e := range ledger.Failures() {
		fmt.Printf("  failed: %-16s %s\n", e.StepID, e.Result.Detail)
	}
}
