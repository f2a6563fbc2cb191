package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script in a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "notify.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o700)) //nolint:gosec // test script must be executable
	return p
}

func TestCustomChannel_Send(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}

	t.Run("pipes json to stdin", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.json")
		ch := newCustomChannel(writeScript(t, "cat > "+out))
		r := Result{Status: StatusFailure, RunID: "a1b2c3d4", BaseURL: "http://wp.local", Scenarios: 3, Passed: 2,
			Failed: 1, Duration: "42s", Error: "TC-1 / title: all candidates exhausted"}

		require.NoError(t, ch.send(context.Background(), r))

		data, err := os.ReadFile(out) //nolint:gosec // temp path
		require.NoError(t, err)
		var got Result
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, r, got)
	})

	t.Run("non-zero exit includes stderr", func(t *testing.T) {
		ch := newCustomChannel(writeScript(t, "echo 'bad payload' >&2\nexit 3"))
		err := ch.send(context.Background(), Result{Status: StatusSuccess})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad payload")
	})

	t.Run("context timeout kills script", func(t *testing.T) {
		ch := newCustomChannel(writeScript(t, "sleep 5"))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := ch.send(ctx, Result{Status: StatusSuccess})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("context timeout kills script children", func(t *testing.T) {
		// the background sleep inherits stderr and would hold the wait without a group kill
		ch := newCustomChannel(writeScript(t, "sleep 5 &\nsleep 5"))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		start := time.Now()
		require.Error(t, ch.send(ctx, Result{Status: StatusSuccess}))
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("missing script", func(t *testing.T) {
		err := newCustomChannel("/nonexistent/notify.sh").send(context.Background(), Result{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "script /nonexistent/notify.sh")
	})
}
