// pkg/execute/execute.go
//
// Command execution with structured logging. Every external collaborator
// (apt-get, mysql, nginx, systemctl, certbot, ...) is driven through Run so
// exit status is always observed and logged. Shell execution is not
// supported; arguments are passed as a vector.

package execute

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Options configures a single command invocation.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Timeout time.Duration
	Capture bool // return combined output to the caller
	Quiet   bool // do not mirror output to the terminal
	DryRun  bool
}

// DefaultTimeout bounds a single external command. Package installation can
// legitimately take minutes on a cold apt cache.
const DefaultTimeout = 15 * time.Minute

// RunnerFunc matches Run's signature so collaborators can inject a stub.
type RunnerFunc func(ctx context.Context, opts Options) (string, error)

// Run executes a command, observing its exit status.
func Run(ctx context.Context, opts Options) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := otelzap.Ctx(ctx)
	// Argument vectors can be huge (package lists); logs carry a bounded form.
	cmdStr := opts.Command + " " + telemetry.TruncateArgs(opts.Args)

	if opts.DryRun {
		logger.Info("Dry run mode - command not executed", zap.String("command", cmdStr))
		return "", nil
	}

	runCtx, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))
	defer cancel()

	logger.Debug("Starting execution", zap.String("command", cmdStr))

	cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var buf bytes.Buffer
	if opts.Quiet {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	} else {
		writer := io.MultiWriter(os.Stdout, &buf)
		cmd.Stdout = writer
		cmd.Stderr = writer
	}

	err := cmd.Run()
	output := buf.String()

	if err != nil {
		summary := ExtractSummary(output, 2)
		logger.Error("Execution failed",
			zap.String("command", cmdStr),
			zap.String("summary", summary),
			zap.Error(err))
		return output, cerr.Wrapf(err, "%s failed: %s", opts.Command, summary)
	}

	logger.Debug("Execution succeeded", zap.String("command", cmdStr))

	if opts.Capture {
		return output, nil
	}
	return "", nil
}

// RunSimple executes a command with minimal options.
func RunSimple(ctx context.Context, command string, args ...string) error {
	_, err := Run(ctx, Options{Command: command, Args: args})
	return err
}

// ExtractSummary extracts a concise error summary from full command output.
func ExtractSummary(output string, maxCandidates int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "no output"
	}

	lines := strings.Split(trimmed, "\n")
	var candidates []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "failed") ||
			strings.Contains(lower, "cannot") ||
			strings.Contains(lower, "unable") ||
			strings.Contains(lower, "fatal") ||
			strings.Contains(lower, "denied") {
			candidates = append(candidates, line)
		}
	}

	if len(candidates) > 0 {
		if len(candidates) > maxCandidates {
			candidates = candidates[:maxCandidates]
		}
		return strings.Join(candidates, " - ")
	}

	// No obvious error line; fall back to the last non-empty one.
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}

func defaultTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return DefaultTimeout
}
