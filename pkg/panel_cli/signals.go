// pkg/panel_cli/signals.go
//
// Signal handling for provisioning runs. The credential temp file used for
// privileged database access must be removed on every exit path, including
// Ctrl-C mid-step, so cleanup functions registered here run on SIGINT and
// SIGTERM before the process exits.

package panel_cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CleanupFunc is a function that performs cleanup operations.
type CleanupFunc func() error

// SignalHandler manages graceful shutdown on signals.
type SignalHandler struct {
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.Mutex
	cleanupFuncs []CleanupFunc
	sigChan      chan os.Signal
	stopOnce     sync.Once
}

// NewSignalHandler creates a signal handler and starts listening for SIGINT
// and SIGTERM.
func NewSignalHandler(ctx context.Context) *SignalHandler {
	ctx, cancel := context.WithCancel(ctx)

	handler := &SignalHandler{
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 2),
	}

	signal.Notify(handler.sigChan, os.Interrupt, syscall.SIGTERM)
	go handler.handleSignals()

	return handler
}

// RegisterCleanup adds a cleanup function. Cleanup functions run in reverse
// registration order (LIFO).
func (h *SignalHandler) RegisterCleanup(cleanup CleanupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFuncs = append(h.cleanupFuncs, cleanup)
}

// Context returns the cancellable context. Operations should use it so a
// signal interrupts the running external command.
func (h *SignalHandler) Context() context.Context {
	return h.ctx
}

func (h *SignalHandler) handleSignals() {
	logger := otelzap.Ctx(h.ctx)

	sig, ok := <-h.sigChan
	if !ok {
		return
	}
	logger.Info("Received signal, initiating cleanup", zap.String("signal", sig.String()))
	fmt.Fprintf(os.Stderr, "\n\nReceived %v, cleaning up...\n", sig)

	h.cancel()

	if err := h.runCleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup completed with errors: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "Cleanup complete")
	os.Exit(130)
}

func (h *SignalHandler) runCleanup() error {
	logger := otelzap.Ctx(h.ctx)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		h.mu.Lock()
		funcs := make([]CleanupFunc, len(h.cleanupFuncs))
		copy(funcs, h.cleanupFuncs)
		h.mu.Unlock()

		var lastErr error
		for i := len(funcs) - 1; i >= 0; i-- {
			if err := funcs[i](); err != nil {
				logger.Warn("Cleanup function failed", zap.Int("index", i), zap.Error(err))
				lastErr = err
			}
		}
		done <- lastErr
	}()

	select {
	case err := <-done:
		return err
	case <-cleanupCtx.Done():
		logger.Error("Cleanup timed out after 5 seconds")
		return fmt.Errorf("cleanup timed out")
	}
}

// Stop detaches the handler. Call at the end of a successful operation.
func (h *SignalHandler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.sigChan)
	})
}
