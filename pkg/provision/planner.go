// pkg/provision/planner.go
//
// The step planner. The sequence is fixed by real dependency order: packages
// before anything, the checkout before composer, the database before
// migrations, the web server serving the domain before certificate issuance.

package provision

import (
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
)

// Step identifiers, in plan order.
const (
	StepSystemPackages = "system-packages"
	StepFirewall       = "firewall"
	StepRepository     = "repository"
	StepPHPExtensions  = "php-extensions"
	StepDependencies   = "dependencies"
	StepEnvironment    = "environment-file"
	StepDatabase       = "database"
	StepMigrations     = "migrations"
	StepAppFinalize    = "app-finalize"
	StepWebserver      = "webserver"
	StepQueueWorker    = "queue-worker"
	StepSchedule       = "schedule"
	StepCacheCheck     = "cache-check"
	StepCertificate    = "certificate"
)

// Plan expands the fixed provisioning sequence into concrete steps bound to
// the collected configuration and the injected collaborators. The returned
// order is deterministic for any valid config.
func Plan(cfg *config.InstallConfig, deps *Deps) ([]*Step, error) {
	if cfg == nil {
		return nil, cerr.New("nil install config")
	}
	if cfg.DBPassword == "" {
		// The collector guarantees this; a blank password here means a
		// caller bypassed collection.
		return nil, cerr.New("install config has no database password")
	}

	certAttempts := deps.CertAttempts
	if certAttempts <= 0 {
		certAttempts = defaultCertAttempts
	}
	certDelay := deps.CertRetryDelay
	if certDelay <= 0 {
		certDelay = defaultCertRetryDelay
	}

	packages := append([]string{}, shared.SharedPackages...)
	packages = append(packages, shared.EnginePackages[string(cfg.DBEngine)])

	steps := []*Step{
		{
			ID:          StepSystemPackages,
			Description: "Install system packages (web server, PHP runtime, database, cache)",
			Fatal:       true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				if err := deps.Packages.Update(rc); err != nil {
					return "", err
				}
				if err := deps.Packages.Install(rc, packages); err != nil {
					return "", err
				}
				return fmt.Sprintf("%d packages present", len(packages)), nil
			},
			// Shared packages are never removed: no undo.
		},
		{
			ID:          StepFirewall,
			Description: "Allow SSH, HTTP and HTTPS through the firewall",
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				for _, rule := range []string{"OpenSSH", "http", "https"} {
					if err := deps.Firewall.Allow(rc, rule); err != nil {
						return "", err
					}
				}
				return "ssh, http, https allowed", nil
			},
		},
		{
			ID:          StepRepository,
			Description: "Clone or update the application checkout",
			Fatal:       true,
			Recoverable: true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				return deps.Repo.Ensure(rc, shared.RepoURL, shared.AppDir)
			},
			undo: func(rc *panel_io.RuntimeContext) error {
				return deps.Repo.Remove(rc, shared.AppDir)
			},
		},
		{
			ID:          StepPHPExtensions,
			Description: "Verify required PHP extensions are loaded",
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				for _, ext := range []string{"redis", "intl", "zip"} {
					ok, err := deps.PHP.HasExtension(rc, ext)
					if err != nil {
						return "", err
					}
					if !ok {
						return "", cerr.Newf("php extension %s is not loaded", ext)
					}
				}
				return "redis, intl, zip loaded", nil
			},
		},
		{
			ID:          StepDependencies,
			Description: "Install application dependencies via composer",
			Fatal:       true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				return "", deps.Composer.Install(rc, shared.AppDir)
			},
			// Vendor tree lives inside the checkout; the repository undo
			// covers it.
		},
		{
			ID:          StepEnvironment,
			Description: "Materialize the application environment file",
			Fatal:       true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				values := map[string]string{
					"APP_URL":       cfg.AppURL(),
					"DB_CONNECTION": "mysql",
					"DB_HOST":       cfg.DBHost,
					"DB_PORT":       fmt.Sprintf("%d", cfg.DBPort),
					"DB_DATABASE":   cfg.DBName,
					"DB_USERNAME":   cfg.DBUser,
					"DB_PASSWORD":   cfg.DBPassword,
				}
				if err := deps.Env.Write(rc, shared.EnvFilePath, values); err != nil {
					return "", err
				}
				return shared.EnvFilePath, nil
			},
			// Lives inside the checkout; covered by the repository undo.
		},
		{
			ID:          StepDatabase,
			Description: "Create the application database and user",
			Fatal:       true,
			Recoverable: true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				for _, stmt := range createDatabaseSQL(cfg) {
					if err := deps.DB.Execute(rc, stmt); err != nil {
						return "", err
					}
				}
				return fmt.Sprintf("database %s, user %s", cfg.DBName, cfg.DBUser), nil
			},
			undo: func(rc *panel_io.RuntimeContext) error {
				var firstErr error
				for _, stmt := range dropDatabaseSQL(cfg) {
					if err := deps.DB.Execute(rc, stmt); err != nil && firstErr == nil {
						firstErr = err
					}
				}
				return firstErr
			},
		},
		{
			ID:          StepMigrations,
			Description: "Run database migrations and seed data",
			Fatal:       true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				return "", deps.Artisan.Run(rc, shared.AppDir, "migrate", "--force", "--seed")
			},
			// Schema lives in the managed database; the database undo covers it.
		},
		{
			ID:          StepAppFinalize,
			Description: "Generate the application key and warm framework caches",
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				for _, args := range [][]string{
					{"key:generate", "--force"},
					{"storage:link"},
					{"optimize"},
				} {
					if err := deps.Artisan.Run(rc, shared.AppDir, args...); err != nil {
						return "", err
					}
				}
				return "key generated, caches warmed", nil
			},
		},
		{
			ID:          StepWebserver,
			Description: "Materialize the site definition and reload the web server",
			Fatal:       true,
			Recoverable: true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				socket, err := deps.Sockets.Discover(rc)
				if err != nil {
					return "", err
				}
				if err := deps.Web.ConfigureSite(rc, shared.SiteName, cfg.Domain, shared.AppDir, socket); err != nil {
					return "", err
				}
				if err := deps.Web.ValidateConfig(rc); err != nil {
					return "", err
				}
				if err := deps.Web.Reload(rc); err != nil {
					return "", err
				}
				return fmt.Sprintf("site %s serving %s via %s", shared.SiteName, cfg.Domain, socket), nil
			},
			undo: func(rc *panel_io.RuntimeContext) error {
				if err := deps.Web.RemoveSite(rc, shared.SiteName); err != nil {
					return err
				}
				return deps.Web.Reload(rc)
			},
		},
		{
			ID:          StepQueueWorker,
			Description: "Register and start the queue worker service",
			Fatal:       true,
			Recoverable: true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				if err := deps.Services.Register(rc, shared.ServiceName, shared.AppDir); err != nil {
					return "", err
				}
				if err := deps.Services.Enable(rc, shared.ServiceName); err != nil {
					return "", err
				}
				if err := deps.Services.Start(rc, shared.ServiceName); err != nil {
					return "", err
				}
				return shared.ServiceName + " enabled and running", nil
			},
			undo: func(rc *panel_io.RuntimeContext) error {
				// Stop/disable may fail when the service never started;
				// removal of the unit is what matters.
				_ = deps.Services.Stop(rc, shared.ServiceName)
				_ = deps.Services.Disable(rc, shared.ServiceName)
				return deps.Services.Remove(rc, shared.ServiceName)
			},
		},
		{
			ID:          StepSchedule,
			Description: "Install the recurring schedule entry",
			Recoverable: true,
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				if err := deps.Schedule.InstallSchedule(rc, shared.ScheduleID, shared.AppDir); err != nil {
					return "", err
				}
				return shared.ScheduleID, nil
			},
			undo: func(rc *panel_io.RuntimeContext) error {
				return deps.Schedule.RemoveSchedule(rc, shared.ScheduleID)
			},
		},
		{
			ID:          StepCacheCheck,
			Description: "Verify the cache server answers",
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				if err := deps.Cache.Ping(rc); err != nil {
					return "", err
				}
				return "cache reachable", nil
			},
		},
		{
			ID:          StepCertificate,
			Description: "Issue the TLS certificate",
			Recoverable: true,
			skip: func(rc *panel_io.RuntimeContext) (bool, string) {
				if config.IsLocalDomain(cfg.Domain) {
					return true, fmt.Sprintf("%s is a local domain", cfg.Domain)
				}
				if cfg.AdminEmail == "" {
					return true, "no admin email configured"
				}
				return false, ""
			},
			apply: func(rc *panel_io.RuntimeContext) (string, error) {
				attempts, err := execute.RetryFixed(rc.Ctx, certAttempts, certDelay, func() error {
					return deps.Certs.Issue(rc, cfg.Domain, cfg.AdminEmail)
				})
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("issued after %d attempt(s)", attempts), nil
			},
			undo: func(rc *panel_io.RuntimeContext) error {
				return deps.Certs.Delete(rc, cfg.Domain)
			},
		},
	}

	return steps, nil
}

func createDatabaseSQL(cfg *config.InstallConfig) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`;", cfg.DBName),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%s' IDENTIFIED BY '%s';",
			cfg.DBUser, cfg.DBHost, cfg.DBPassword),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'%s';",
			cfg.DBName, cfg.DBUser, cfg.DBHost),
		"FLUSH PRIVILEGES;",
	}
}

func dropDatabaseSQL(cfg *config.InstallConfig) []string {
	return []string{
		fmt.Sprintf("DROP DATABASE IF EXISTS `%s`;", cfg.DBName),
		fmt.Sprintf("DROP USER IF EXISTS '%s'@'%s';", cfg.DBUser, cfg.DBHost),
		"FLUSH PRIVILEGES;",
	}
}

// Describe renders the plan for operator preview.
func Describe(steps []*Step) string {
	var b strings.Builder
	for i, s := range steps {
		flags := make([]string, 0, 2)
		if s.Fatal {
			flags = append(flags, "fatal")
		}
		if s.Recoverable {
			flags = append(flags, "recoverable")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintf(&b, "%2d. %-16s %s%s\n", i+1, s.ID, s.Description, suffix)
	}
	return b.String()
}
