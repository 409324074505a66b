// pkg/phpfpm/phpfpm.go
//
// PHP-FPM socket discovery and runtime extension checks. The socket path
// varies with the installed PHP version, so the web server configuration
// discovers it instead of hardcoding one.

package phpfpm

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultSocketGlob matches the FPM sockets Debian-family packages create.
const DefaultSocketGlob = "/run/php/php*-fpm.sock"

// ErrSocketNotFound reports that no FPM socket exists on the host. Callers
// treat this as a configuration error, not a prompt to guess a path.
var ErrSocketNotFound = cerr.New("no php-fpm socket found")

// Inspector locates the FPM socket and checks loaded PHP extensions.
type Inspector struct {
	SocketGlob string
	Runner     execute.RunnerFunc
}

// New returns an Inspector using the standard socket location.
func New() *Inspector {
	return &Inspector{SocketGlob: DefaultSocketGlob, Runner: execute.Run}
}

// Discover returns the FPM socket path. With several PHP versions installed
// the newest socket wins, matching the version apt resolved for the CLI.
func (i *Inspector) Discover(rc *panel_io.RuntimeContext) (string, error) {
	glob := i.SocketGlob
	if glob == "" {
		glob = DefaultSocketGlob
	}

	matches, err := filepath.Glob(glob)
	if err != nil {
		return "", cerr.Wrap(err, "bad socket glob")
	}
	if len(matches) == 0 {
		return "", cerr.WithHint(ErrSocketNotFound,
			"is php-fpm installed and running?")
	}

	sort.Strings(matches)
	socket := matches[len(matches)-1]
	otelzap.Ctx(rc.Ctx).Info("Discovered php-fpm socket", zap.String("socket", socket))
	return socket, nil
}

// HasExtension reports whether the PHP CLI has the named extension loaded.
func (i *Inspector) HasExtension(rc *panel_io.RuntimeContext, name string) (bool, error) {
	out, err := i.Runner(rc.Ctx, execute.Options{
		Command: "php",
		Args:    []string{"-m"},
		Capture: true,
		Quiet:   true,
	})
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), name) {
			return true, nil
		}
	}
	return false, nil
}
