// pkg/logger/logger.go

package logger

import (
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var log *zap.Logger

// DefaultConfig returns the standard zap.Config: JSON to the log file for
// later inspection, console output for the operator.
func DefaultConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.OutputPaths = []string{"stderr", shared.LogFile}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

// EnsureLogPermissions creates the log directory and file with owner-only
// permissions. Logs carry host details, so keep them out of group/world reach.
func EnsureLogPermissions(logFilePath string) error {
	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if _, err := os.Stat(logFilePath); os.IsNotExist(err) {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}
	return os.Chmod(logFilePath, 0600)
}

// InitializeWithConfig builds the global logger, falling back to console-only
// output when the log file is not writable (e.g. running unprivileged).
func InitializeWithConfig(cfg zap.Config) {
	for _, path := range cfg.OutputPaths {
		if path == "stdout" || path == "stderr" {
			continue
		}
		if err := EnsureLogPermissions(path); err != nil {
			cfg.OutputPaths = []string{"stderr"}
			break
		}
	}

	var err error
	log, err = cfg.Build()
	if err != nil {
		cfg.OutputPaths = []string{"stderr"}
		log, err = cfg.Build()
		if err != nil {
			panic("failed to initialize logger with fallback config: " + err.Error())
		}
	}

	zap.ReplaceGlobals(log)
	otelzap.ReplaceGlobals(otelzap.New(log))
}

// InitializeWithFallback initializes the logger with the default configuration.
func InitializeWithFallback() {
	InitializeWithConfig(DefaultConfig())
}

// InitFallback ensures a usable global logger exists. Safe to call repeatedly.
func InitFallback() {
	if log == nil {
		InitializeWithFallback()
	}
}

// L returns the global logger instance.
func L() *zap.Logger {
	InitFallback()
	return log
}

// Sync flushes buffered log entries. Called before the process exits.
func Sync() error {
	if log == nil {
		return nil
	}
	return log.Sync()
}
