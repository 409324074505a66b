// pkg/mysql/mysql.go
//
// SQL execution against the local MariaDB/MySQL server. Two authentication
// paths: root socket auth (the Debian default, no password) or a root
// password. The password is never placed on a command line or in the
// process environment; it goes into a transient 0600 defaults file that is
// removed when the client is closed, and registered with the signal handler
// so an interrupted run cleans it up too.

package mysql

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Client executes SQL statements through the mysql command line client.
type Client struct {
	// Host is the database server to target. Loopback hosts (the default
	// install) go through the local socket or TCP default; anything else
	// is passed to the client with -h.
	Host         string
	RootPassword string
	Runner       execute.RunnerFunc

	mu           sync.Mutex
	defaultsFile string
}

// New returns a Client. An empty rootPassword selects socket authentication.
func New(host, rootPassword string) *Client {
	return &Client{Host: host, RootPassword: rootPassword, Runner: execute.Run}
}

func isLoopback(host string) bool {
	return host == "" || host == "localhost" || strings.HasPrefix(host, "127.")
}

// Execute runs one SQL statement as root.
func (c *Client) Execute(rc *panel_io.RuntimeContext, sql string) error {
	args := []string{}

	if c.RootPassword != "" {
		path, err := c.ensureDefaultsFile()
		if err != nil {
			return err
		}
		// --defaults-extra-file must be the first argument.
		args = append(args, "--defaults-extra-file="+path)
	}
	if !isLoopback(c.Host) {
		args = append(args, "-h", c.Host)
	}
	args = append(args, "-u", "root", "-e", sql)

	otelzap.Ctx(rc.Ctx).Debug("Executing SQL statement",
		zap.Bool("socket_auth", c.RootPassword == ""))
	_, err := c.Runner(rc.Ctx, execute.Options{
		Command: "mysql",
		Args:    args,
		Quiet:   true,
	})
	return err
}

// ensureDefaultsFile lazily writes the credential file, once per client.
func (c *Client) ensureDefaultsFile() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.defaultsFile != "" {
		return c.defaultsFile, nil
	}

	f, err := os.CreateTemp("", "panelctl-mysql-*.cnf")
	if err != nil {
		return "", cerr.Wrap(err, "create mysql defaults file")
	}
	defer f.Close()

	if err := f.Chmod(0o600); err != nil {
		os.Remove(f.Name())
		return "", cerr.Wrap(err, "restrict mysql defaults file")
	}

	content := fmt.Sprintf("[client]\npassword=%s\n", c.RootPassword)
	if _, err := f.WriteString(content); err != nil {
		os.Remove(f.Name())
		return "", cerr.Wrap(err, "write mysql defaults file")
	}

	c.defaultsFile = f.Name()
	return c.defaultsFile, nil
}

// Cleanup removes the credential file. Safe to call multiple times and when
// no file was ever created; commands register it with the signal handler and
// also defer it directly.
func (c *Client) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.defaultsFile == "" {
		return nil
	}
	path := c.defaultsFile
	c.defaultsFile = ""

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cerr.Wrap(err, "remove mysql defaults file")
	}
	return nil
}
