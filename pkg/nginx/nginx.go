// pkg/nginx/nginx.go
//
// Managed nginx site definition. Only the named site file and its
// sites-enabled symlink are ever created or removed; nginx itself is shared
// host state and is never uninstalled.

package nginx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const siteTemplate = `server {
    listen 80;
    listen [::]:80;
    server_name %s;
    root %s/public;

    index index.php;
    charset utf-8;

    location / {
        try_files $uri $uri/ /index.php?$query_string;
    }

    location ~ \.php$ {
        include snippets/fastcgi-php.conf;
        fastcgi_pass unix:%s;
    }

    location ~ /\.(?!well-known).* {
        deny all;
    }
}
`

// Server manages the site definition and drives the nginx binary.
type Server struct {
	SitesAvailable string
	SitesEnabled   string
	Runner         execute.RunnerFunc
}

// New returns a Server bound to the standard Debian layout.
func New() *Server {
	return &Server{
		SitesAvailable: shared.NginxSites,
		SitesEnabled:   shared.NginxEnabled,
		Runner:         execute.Run,
	}
}

// ConfigureSite writes the site definition and enables it. Overwriting an
// existing definition and re-creating an existing symlink both converge.
func (s *Server) ConfigureSite(rc *panel_io.RuntimeContext, name, domain, rootDir, fcgiSocket string) error {
	logger := otelzap.Ctx(rc.Ctx)

	available := filepath.Join(s.SitesAvailable, name)
	content := fmt.Sprintf(siteTemplate, domain, rootDir, fcgiSocket)
	if err := os.WriteFile(available, []byte(content), 0o644); err != nil {
		return cerr.Wrapf(err, "write site definition %s", available)
	}

	enabled := filepath.Join(s.SitesEnabled, name)
	if _, err := os.Lstat(enabled); err == nil {
		if err := os.Remove(enabled); err != nil {
			return cerr.Wrapf(err, "replace site symlink %s", enabled)
		}
	}
	if err := os.Symlink(available, enabled); err != nil {
		return cerr.Wrapf(err, "enable site %s", name)
	}

	logger.Info("Configured site",
		zap.String("site", name),
		zap.String("domain", domain),
		zap.String("socket", fcgiSocket))
	return nil
}

// ValidateConfig runs nginx -t before any reload touches live traffic.
func (s *Server) ValidateConfig(rc *panel_io.RuntimeContext) error {
	_, err := s.Runner(rc.Ctx, execute.Options{
		Command: "nginx",
		Args:    []string{"-t"},
		Quiet:   true,
	})
	return err
}

// Reload applies the current configuration.
func (s *Server) Reload(rc *panel_io.RuntimeContext) error {
	_, err := s.Runner(rc.Ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"reload", "nginx"},
	})
	return err
}

// RemoveSite deletes the managed site definition and its symlink. Absent
// files are tolerated so teardown after a partial install still succeeds.
func (s *Server) RemoveSite(rc *panel_io.RuntimeContext, name string) error {
	otelzap.Ctx(rc.Ctx).Info("Removing site", zap.String("site", name))

	for _, path := range []string{
		filepath.Join(s.SitesEnabled, name),
		filepath.Join(s.SitesAvailable, name),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return cerr.Wrapf(err, "remove %s", path)
		}
	}
	return nil
}
