// pkg/shared/constants.go

package shared

// Version is stamped at build time via -ldflags.
var Version = "dev"

const (
	AppName = "panelctl"

	// Managed footprint. Rollback and uninstall may only ever remove
	// resources named here or derived from the InstallConfig; the shared
	// package set below is installed but never removed.
	AppDir       = "/var/www/ctrlpanel"
	SiteName     = "ctrlpanel"
	ServiceName  = "ctrlpanel-worker"
	ScheduleID   = "ctrlpanel-schedule"
	EnvFilePath  = AppDir + "/.env"
	RepoURL      = "https://github.com/Ctrlpanel/ctrlpanel.git"
	NginxSites   = "/etc/nginx/sites-available"
	NginxEnabled = "/etc/nginx/sites-enabled"
	SystemdDir   = "/etc/systemd/system"
	CronDir      = "/etc/cron.d"

	LogDir  = "/var/log/panelctl"
	LogFile = LogDir + "/panelctl.log"
)

// SharedPackages is the host package set the installer depends on. These may
// be used by unrelated applications on the same host, so no teardown path is
// allowed to purge them.
var SharedPackages = []string{
	"nginx",
	"redis-server",
	"git",
	"curl",
	"tar",
	"unzip",
	"cron",
	"certbot",
	"python3-certbot-nginx",
	"php8.3-fpm",
	"php8.3-cli",
	"php8.3-mysql",
	"php8.3-redis",
	"php8.3-mbstring",
	"php8.3-xml",
	"php8.3-curl",
	"php8.3-zip",
	"php8.3-gd",
	"php8.3-bcmath",
	"php8.3-intl",
	"composer",
}

// EnginePackages maps a database engine choice to its server package.
var EnginePackages = map[string]string{
	"mariadb": "mariadb-server",
	"mysql":   "mysql-server",
}
