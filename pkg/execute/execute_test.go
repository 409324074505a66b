// pkg/execute/execute_test.go

package execute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunObservesExitStatus(t *testing.T) {
	ctx := context.Background()

	_, err := Run(ctx, Options{Command: "true", Quiet: true})
	assert.NoError(t, err)

	_, err = Run(ctx, Options{Command: "false", Quiet: true})
	assert.Error(t, err)
}

func TestRunCapturesOutput(t *testing.T) {
	out, err := Run(context.Background(), Options{
		Command: "echo",
		Args:    []string{"hello"},
		Capture: true,
		Quiet:   true,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestRunDryRun(t *testing.T) {
	out, err := Run(context.Background(), Options{Command: "false", DryRun: true})
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestExtractSummary(t *testing.T) {
	out := "Reading package lists...\nE: Unable to locate package nosuchthing\nDone"
	assert.Contains(t, ExtractSummary(out, 2), "Unable to locate")

	assert.Equal(t, "no output", ExtractSummary("   ", 2))
	assert.Equal(t, "last line", ExtractSummary("first line\nlast line", 2))
}

func TestRetryFixedCountsAttempts(t *testing.T) {
	ctx := context.Background()

	calls := 0
	attempts, err := RetryFixed(ctx, 3, 0, func() error {
		calls++
		return assert.AnError
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)

	calls = 0
	attempts, err = RetryFixed(ctx, 3, 0, func() error {
		calls++
		if calls < 3 {
			return assert.AnError
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryFixedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := RetryFixed(ctx, 3, time.Minute, func() error { return assert.AnError })
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
