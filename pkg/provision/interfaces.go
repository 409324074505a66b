// pkg/provision/interfaces.go
//
// Narrow contracts for the external collaborators the orchestration drives.
// Real implementations shell out through pkg/execute; tests inject stubs.

package provision

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
)

// PackageManager installs host packages. Re-install of an already-installed
// package must be a no-op. There is deliberately no remove operation: the
// shared package set is never purged by any teardown path.
type PackageManager interface {
	Update(rc *panel_io.RuntimeContext) error
	Install(rc *panel_io.RuntimeContext, names []string) error
}

// Firewall opens service ports. Best-effort; hosts without ufw are tolerated.
type Firewall interface {
	Allow(rc *panel_io.RuntimeContext, rule string) error
}

// RepoSyncer materializes the application checkout. Ensure clones into an
// empty directory, or fetches and hard-resets an existing checkout so
// re-runs converge on the tracked state.
type RepoSyncer interface {
	Ensure(rc *panel_io.RuntimeContext, url, dir string) (string, error)
	Remove(rc *panel_io.RuntimeContext, dir string) error
}

// DependencyInstaller installs application-level dependencies.
type DependencyInstaller interface {
	Install(rc *panel_io.RuntimeContext, dir string) error
}

// RuntimeInspector checks the language runtime for required extensions.
type RuntimeInspector interface {
	HasExtension(rc *panel_io.RuntimeContext, name string) (bool, error)
}

// ArtisanRunner invokes the application's own console commands (migrations,
// key generation, caches) inside the checkout.
type ArtisanRunner interface {
	Run(rc *panel_io.RuntimeContext, dir string, args ...string) error
}

// EnvWriter materializes the persisted environment artifact. Writes
// overwrite managed keys rather than appending, so re-runs converge.
type EnvWriter interface {
	Write(rc *panel_io.RuntimeContext, path string, values map[string]string) error
}

// DatabaseClient executes SQL against the database server. The
// implementation chooses socket or password authentication from the
// configured root credentials, and keeps any credential material in a
// transient, tightly-scoped file.
type DatabaseClient interface {
	Execute(rc *panel_io.RuntimeContext, sql string) error
}

// WebServer materializes and controls the managed site definition. Only the
// named site is ever touched; the server package itself is shared host state.
type WebServer interface {
	ConfigureSite(rc *panel_io.RuntimeContext, name, domain, rootDir, fcgiSocket string) error
	ValidateConfig(rc *panel_io.RuntimeContext) error
	Reload(rc *panel_io.RuntimeContext) error
	RemoveSite(rc *panel_io.RuntimeContext, name string) error
}

// ServiceManager registers and controls the background worker service.
type ServiceManager interface {
	Register(rc *panel_io.RuntimeContext, name, appDir string) error
	Enable(rc *panel_io.RuntimeContext, name string) error
	Start(rc *panel_io.RuntimeContext, name string) error
	Stop(rc *panel_io.RuntimeContext, name string) error
	Disable(rc *panel_io.RuntimeContext, name string) error
	Remove(rc *panel_io.RuntimeContext, name string) error
}

// Scheduler registers the recurring schedule entry under a managed
// identifier so removal can target exactly what was installed.
type Scheduler interface {
	InstallSchedule(rc *panel_io.RuntimeContext, id, appDir string) error
	RemoveSchedule(rc *panel_io.RuntimeContext, id string) error
}

// CertIssuer obtains and deletes TLS certificates. Issue is a single
// attempt; the certificate step owns the bounded retry.
type CertIssuer interface {
	Issue(rc *panel_io.RuntimeContext, domain, email string) error
	Delete(rc *panel_io.RuntimeContext, domain string) error
}

// CacheChecker verifies the installed cache server answers.
type CacheChecker interface {
	Ping(rc *panel_io.RuntimeContext) error
}

// SocketDiscoverer locates the PHP-FPM socket the web server hands requests
// to. Discovery fails loudly with a typed error instead of guessing a path.
type SocketDiscoverer interface {
	Discover(rc *panel_io.RuntimeContext) (string, error)
}

// Deps bundles every collaborator the planner binds into steps.
type Deps struct {
	Packages PackageManager
	Firewall Firewall
	Repo     RepoSyncer
	Composer DependencyInstaller
	PHP      RuntimeInspector
	Artisan  ArtisanRunner
	Env      EnvWriter
	DB       DatabaseClient
	Web      WebServer
	Services ServiceManager
	Schedule Scheduler
	Certs    CertIssuer
	Cache    CacheChecker
	Sockets  SocketDiscoverer

	// Certificate issuance retry policy: fixed attempt count, fixed delay.
	CertAttempts   int
	CertRetryDelay time.Duration
}

const (
	defaultCertAttempts   = 3
	defaultCertRetryDelay = 10 * time.Second
)
