package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *testLogger) Warn(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

// collector receives batches from Run.
type collector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *collector) fn(_ context.Context, files []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, files)
}

func (c *collector) get() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.batches...)
}

func startWatcher(t *testing.T, dirs ...string) *collector {
	t.Helper()
	w, err := New(dirs, 50*time.Millisecond, &testLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c := &collector{}
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(ctx, c.fn))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func write(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestNew(t *testing.T) {
	_, err := New(nil, 0, &testLogger{})
	require.Error(t, err)

	_, err = New([]string{filepath.Join(t.TempDir(), "missing")}, 0, &testLogger{})
	require.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "campaigns"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o750))
	w, err := New([]string{dir}, 0, &testLogger{})
	require.NoError(t, err)
	defer w.fsw.Close()
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.Equal(t, []string{dir, filepath.Join(dir, "campaigns")}, w.Dirs())
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	c := startWatcher(t, dir)

	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yml")
	for i := range 5 {
		write(t, a, fmt.Sprintf("id: A%d", i))
	}
	write(t, b, "id: B")
	write(t, filepath.Join(dir, "notes.txt"), "ignored")
	write(t, filepath.Join(dir, ".hidden.yaml"), "ignored")

	require.Eventually(t, func() bool { return len(c.get()) > 0 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	batches := c.get()
	require.Len(t, batches, 1, "burst is reported once")
	assert.Equal(t, []string{a, b}, batches[0])
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	c := startWatcher(t, dir)

	sub := filepath.Join(dir, "menus")
	require.NoError(t, os.Mkdir(sub, 0o750))
	time.Sleep(100 * time.Millisecond) // let the watcher register the directory
	p := filepath.Join(sub, "menu.yaml")
	write(t, p, "id: M")

	require.Eventually(t, func() bool {
		for _, batch := range c.get() {
			for _, f := range batch {
				if f == p {
					return true
				}
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_DeletedFileNotReported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "gone.yaml")
	write(t, p, "id: G")
	c := startWatcher(t, dir)

	write(t, p, "id: G2")
	require.NoError(t, os.Remove(p))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, c.get())
}
