// pkg/panel_io/context.go

package panel_io

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RuntimeContext carries everything one command invocation needs: a
// cancellable context, a scoped logger, the telemetry span and a run id that
// ties log lines, ledger entries and spans together.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Span       trace.Span
	RunID      string
	Command    string
	Timestamp  time.Time
	Attributes map[string]string
}

// NewContext sets up tracing and logging for one command run.
func NewContext(ctx context.Context, cmdName string) *RuntimeContext {
	ctx, span := telemetry.Start(ctx, cmdName)
	runID := uuid.New().String()

	logger := zap.L().With(
		zap.String("command", cmdName),
		zap.String("run_id", runID),
	).Named(cmdName)

	return &RuntimeContext{
		Ctx:        ctx,
		Log:        logger,
		Span:       span,
		RunID:      runID,
		Command:    cmdName,
		Timestamp:  time.Now(),
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome, records final span attributes, and closes the span.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	duration := time.Since(rc.Timestamp)
	success := (*errPtr == nil)

	if success {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(*errPtr))
	}

	rc.Span.SetAttributes(
		attribute.Bool("success", success),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("run_id", rc.RunID),
	)
	for k, v := range rc.Attributes {
		rc.Span.SetAttributes(attribute.String(k, v))
	}
}
