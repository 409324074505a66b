// pkg/uninstall/uninstall.go
//
// Teardown of the managed footprint: the worker service, the schedule entry,
// the site definition, the certificate, the application database and user,
// and the checkout directory. Shared host packages are out of scope here,
// permanently. Teardown is best-effort: each target is attempted even when
// an earlier one fails, and the failures are reported together.

package uninstall

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/envfile"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/provision"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Deps are the collaborators teardown drives. Same contracts as
// provisioning; tests inject stubs the same way.
type Deps struct {
	Repo     provision.RepoSyncer
	DB       provision.DatabaseClient
	Web      provision.WebServer
	Services provision.ServiceManager
	Schedule provision.Scheduler
	Certs    provision.CertIssuer
}

// Target identifies the managed resources an uninstall removes. It is
// recovered from the persisted environment artifact when possible, so an
// uninstall works even when the operator no longer remembers the install
// parameters.
type Target struct {
	Domain string
	DBName string
	DBUser string
	DBHost string
}

// DiscoverTarget reads the environment artifact at envPath and falls back to
// the documented defaults for anything missing. A missing file is fine: the
// defaults describe a default install.
func DiscoverTarget(rc *panel_io.RuntimeContext, envPath string) (*Target, error) {
	values, err := envfile.Read(envPath)
	if err != nil {
		return nil, err
	}

	t := &Target{
		Domain: domainFromAppURL(values["APP_URL"]),
		DBName: values["DB_DATABASE"],
		DBUser: values["DB_USERNAME"],
		DBHost: values["DB_HOST"],
	}
	if t.DBName == "" {
		t.DBName = config.DefaultDBName
	}
	if t.DBUser == "" {
		t.DBUser = config.DefaultDBUser
	}
	if t.DBHost == "" {
		t.DBHost = config.DefaultDBHost
	}

	otelzap.Ctx(rc.Ctx).Info("Discovered uninstall target",
		zap.String("domain", t.Domain),
		zap.String("db_name", t.DBName),
		zap.String("db_user", t.DBUser))
	return t, nil
}

func domainFromAppURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	return u.Hostname()
}

// Confirm shows what will be removed and asks the operator to proceed.
// Declining returns ConfirmationDeclined so the command exits 2.
func Confirm(rc *panel_io.RuntimeContext, t *Target, assumeYes bool) error {
	if assumeYes {
		return nil
	}

	fmt.Println()
	fmt.Println("This will permanently remove:")
	fmt.Printf("  Service:     %s\n", shared.ServiceName)
	fmt.Printf("  Schedule:    %s\n", shared.ScheduleID)
	fmt.Printf("  Site:        %s\n", shared.SiteName)
	if t.Domain != "" {
		fmt.Printf("  Certificate: %s\n", t.Domain)
	}
	fmt.Printf("  Database:    %s (user %s)\n", t.DBName, t.DBUser)
	fmt.Printf("  Directory:   %s\n", shared.AppDir)
	fmt.Println()
	fmt.Println("Shared packages (nginx, php, the database server, redis) stay installed.")
	fmt.Println()

	proceed, err := panel_io.PromptYesNo(rc, "Proceed with uninstall?", false)
	if err != nil {
		return err
	}
	if !proceed {
		return panel_err.NewConfirmationDeclined("uninstall")
	}
	return nil
}

// Run tears the managed footprint down, most-dependent resources first. It
// returns an aggregate of every failed removal; a non-nil error means the
// uninstall partially completed and says exactly which targets remain.
func Run(rc *panel_io.RuntimeContext, t *Target, deps *Deps) error {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("Tearing down managed footprint")

	var result *multierror.Error
	fail := func(what string, err error) {
		logger.Error("Teardown target failed", zap.String("target", what), zap.Error(err))
		result = multierror.Append(result, &panel_err.RollbackFailure{StepID: what, Err: err})
	}

	// Worker first so nothing keeps writing to the database mid-teardown.
	if err := deps.Services.Stop(rc, shared.ServiceName); err != nil {
		logger.Warn("Stopping worker failed, continuing", zap.Error(err))
	}
	if err := deps.Services.Disable(rc, shared.ServiceName); err != nil {
		logger.Warn("Disabling worker failed, continuing", zap.Error(err))
	}
	if err := deps.Services.Remove(rc, shared.ServiceName); err != nil {
		fail("service", err)
	}

	if err := deps.Schedule.RemoveSchedule(rc, shared.ScheduleID); err != nil {
		fail("schedule", err)
	}

	if err := deps.Web.RemoveSite(rc, shared.SiteName); err != nil {
		fail("site", err)
	} else if err := deps.Web.Reload(rc); err != nil {
		fail("webserver-reload", err)
	}

	if t.Domain != "" && !config.IsLocalDomain(t.Domain) {
		if err := deps.Certs.Delete(rc, t.Domain); err != nil {
			fail("certificate", err)
		}
	}

	for _, stmt := range []string{
		fmt.Sprintf("DROP DATABASE IF EXISTS `%s`;", t.DBName),
		fmt.Sprintf("DROP USER IF EXISTS '%s'@'%s';", t.DBUser, t.DBHost),
		"FLUSH PRIVILEGES;",
	} {
		if err := deps.DB.Execute(rc, stmt); err != nil {
			fail("database", err)
			break
		}
	}

	if err := deps.Repo.Remove(rc, shared.AppDir); err != nil {
		fail("app-directory", err)
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Warn("Uninstall partially completed",
			zap.Int("failed_targets", len(result.Errors)))
		return err
	}
	logger.Info("Uninstall complete, shared packages left installed")
	return nil
}
