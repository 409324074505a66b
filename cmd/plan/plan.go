// cmd/plan/plan.go

package plan

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_cli"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/provision"
	"github.com/spf13/cobra"
)

// NewCommand builds the plan command: preview the step sequence without
// touching the host.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the provisioning steps without executing them",
		Long: `Print the ordered provisioning plan for the given configuration. Nothing
is executed; use this to see which steps are fatal, which are recoverable,
and whether the certificate step would run for your domain.`,
		RunE: panel_cli.Wrap(runPlan),
	}

	flags := cmd.Flags()
	flags.String("domain", "", "panel domain name")
	flags.String("ssl-email", "", "email for the TLS certificate")
	flags.String("db-engine", string(config.DefaultDBEngine), "database engine: mariadb or mysql")

	return cmd
}

func runPlan(rc *panel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	v := config.NewViper()
	if f := cmd.Flags().Lookup("domain"); f.Changed {
		v.Set("domain", f.Value.String())
	}
	if f := cmd.Flags().Lookup("ssl-email"); f.Changed {
		v.Set("ssl_email", f.Value.String())
	}
	if f := cmd.Flags().Lookup("db-engine"); f.Changed {
		v.Set("db_engine", f.Value.String())
	}

	cfg, err := config.Collect(rc, config.NonInteractive, v)
	if err != nil {
		return err
	}

	// Plan binds steps to collaborators but never invokes them here.
	steps, err := provision.Plan(cfg, &provision.Deps{})
	if err != nil {
		return err
	}

	fmt.Printf("Provisioning plan for %s (%s):\n\n", cfg.Domain, cfg.DBEngine)
	fmt.Print(provision.Describe(steps))

	if cfg.CertificateEligible() {
		fmt.Printf("\nCertificate will be requested for %s (%s).\n", cfg.Domain, cfg.AdminEmail)
	} else {
		fmt.Println("\nCertificate step will be skipped (local domain or no email).")
	}
	return nil
}
