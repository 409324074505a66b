// pkg/execute/retry.go

package execute

import (
	"context"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// RetryCommand retries a command a fixed number of times with a fixed delay.
// Used for external collaborators that fail transiently, such as certificate
// issuance while DNS or the freshly reloaded web server settles.
func RetryCommand(ctx context.Context, maxAttempts int, delay time.Duration, name string, args ...string) error {
	logger := otelzap.Ctx(ctx)

	var lastErr error
	for i := 1; i <= maxAttempts; i++ {
		logger.Info("Attempting command",
			zap.String("command", name),
			zap.Int("attempt", i),
			zap.Int("max_attempts", maxAttempts))

		_, err := Run(ctx, Options{Command: name, Args: args})
		if err == nil {
			return nil
		}
		lastErr = err

		if i < maxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return cerr.Wrap(ctx.Err(), "retry interrupted")
			}
		}
	}
	return cerr.Wrapf(lastErr, "all %d attempts failed", maxAttempts)
}

// RetryFixed retries fn with a fixed attempt count and delay, reporting the
// number of attempts made. The zero delay is valid and used in tests.
func RetryFixed(ctx context.Context, maxAttempts int, delay time.Duration, fn func() error) (attempts int, err error) {
	for attempts = 1; attempts <= maxAttempts; attempts++ {
		if err = fn(); err == nil {
			return attempts, nil
		}
		if attempts < maxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return attempts, cerr.Wrap(ctx.Err(), "retry interrupted")
			}
		}
	}
	return maxAttempts, cerr.Wrapf(err, "all %d attempts failed", maxAttempts)
}
