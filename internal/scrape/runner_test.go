package scrape

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// shRunner builds a Runner that executes a shell snippet. With sh -c
// the appended handle and max-items arguments arrive as $0 and $1.
func shRunner(script string, timeout time.Duration) *Runner {
	return NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", script},
		Timeout: timeout,
	}, testLogger())
}

func TestRunner_CapturesStdout(t *testing.T) {
	runner := shRunner(`printf '[{"id":"%s","url":"u"}]' "$0"`, time.Minute)

	out, err := runner.Fetch(context.Background(), "some_handle", 5)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"some_handle","url":"u"}]`, out)
}

func TestRunner_PassesMaxItems(t *testing.T) {
	runner := shRunner(`printf '%s' "$1"`, time.Minute)

	out, err := runner.Fetch(context.Background(), "handle", 7)
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestRunner_NonZeroExit(t *testing.T) {
	runner := shRunner(`echo "rate limited" >&2; exit 3`, time.Minute)

	_, err := runner.Fetch(context.Background(), "blocked_handle", 5)
	require.Error(t, err)

	execErr, ok := err.(*ExecError)
	require.True(t, ok)
	assert.Equal(t, "blocked_handle", execErr.Handle)
	assert.Equal(t, 3, execErr.ExitCode)
	assert.Contains(t, execErr.Stderr, "rate limited")
	assert.False(t, execErr.TimedOut)
}

func TestRunner_Timeout(t *testing.T) {
	runner := shRunner(`sleep 10`, 100*time.Millisecond)

	start := time.Now()
	_, err := runner.Fetch(context.Background(), "slow_handle", 5)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	execErr, ok := err.(*ExecError)
	require.True(t, ok)
	assert.True(t, execErr.TimedOut)
}
