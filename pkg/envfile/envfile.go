// pkg/envfile/envfile.go
//
// The persisted environment artifact. Writes merge over whatever the
// application shipped as .env.example or a previous run left behind: managed
// keys are overwritten in place, unmanaged keys survive untouched. That is
// what makes environment-file re-runs converge instead of appending
// duplicates.

package envfile

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Writer materializes env files with deterministic key ordering.
type Writer struct{}

// New returns a Writer.
func New() *Writer {
	return &Writer{}
}

// Write merges values into the env file at path, creating it if absent. The
// file is written 0600: it carries the database password.
func (w *Writer) Write(rc *panel_io.RuntimeContext, path string, values map[string]string) error {
	logger := otelzap.Ctx(rc.Ctx)

	existing := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err = godotenv.Read(path)
		if err != nil {
			return cerr.Wrapf(err, "read existing env file %s", path)
		}
	}

	for k, v := range values {
		existing[k] = v
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerr.Wrap(err, "create env file directory")
	}

	content, err := godotenv.Marshal(existing)
	if err != nil {
		return cerr.Wrap(err, "marshal env file")
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return cerr.Wrapf(err, "write env file %s", path)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	logger.Info("Wrote environment file",
		zap.String("path", path),
		zap.Strings("managed_keys", keys))
	return nil
}

// Read loads an env file into a map. Missing files yield an empty map, not an
// error: uninstall uses this to recover settings opportunistically.
func Read(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "read env file %s", path)
	}
	return values, nil
}
