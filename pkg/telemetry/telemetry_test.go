// pkg/telemetry/telemetry_test.go

package telemetry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateArgsBoundsLongVectors(t *testing.T) {
	short := TruncateArgs([]string{"install", "-y", "nginx"})
	assert.Equal(t, "install -y nginx", short)

	long := TruncateArgs([]string{strings.Repeat("x", 500)})
	assert.Len(t, long, 256+len("..."))
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestAnonTelemetryIDIsStable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	first := AnonTelemetryID()
	require.True(t, strings.HasPrefix(first, "anon-"))

	second := AnonTelemetryID()
	assert.Equal(t, first, second, "identifier persists across calls")
}
