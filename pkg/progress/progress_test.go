package progress

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushqa/wpregress/pkg/config"
	"github.com/pushqa/wpregress/pkg/status"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	l, err := NewLogger(Config{RunID: "run1", Dir: t.TempDir(), BaseURL: "http://wp.local", Browser: "chromium", NoColor: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	var buf bytes.Buffer
	l.stdout = &buf
	return l, &buf
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	return string(data)
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	l, err := NewLogger(Config{RunID: "abc", Dir: dir, BaseURL: "http://wp.local", Browser: "firefox", NoColor: true}, nil)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, filepath.Join(dir, "progress-abc.txt"), l.Path())
	content := readLog(t, l)
	assert.Contains(t, content, "# wpregress progress log")
	assert.Contains(t, content, "Run: abc")
	assert.Contains(t, content, "Base URL: http://wp.local")
	assert.Contains(t, content, "Browser: firefox")
}

func TestLogger_PrintAndPhase(t *testing.T) {
	l, buf := newTestLogger(t)

	l.Print("launching %s", "chromium")
	l.PrintPhase(status.PhaseStep, "step %d passed", 3)

	content := readLog(t, l)
	assert.Contains(t, content, "launching chromium")
	assert.Contains(t, content, "step 3 passed")
	assert.Contains(t, buf.String(), "launching chromium")
	assert.Contains(t, buf.String(), "step 3 passed")
}

func TestLogger_PrintRaw(t *testing.T) {
	l, buf := newTestLogger(t)
	l.PrintRaw("# Summary\n")
	assert.Equal(t, "# Summary\n", buf.String())
	assert.Contains(t, readLog(t, l), "# Summary\n")
}

func TestLogger_PrintAligned(t *testing.T) {
	l, buf := newTestLogger(t)

	l.PrintAligned(status.PhaseSummary, "first\nsecond\n\nthird\n")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "["))
	assert.True(t, strings.HasSuffix(lines[0], "first"))
	assert.Equal(t, strings.Repeat(" ", 20)+"second", lines[1])
	assert.Empty(t, lines[2])
	assert.Equal(t, strings.Repeat(" ", 20)+"third", lines[3])

	buf.Reset()
	l.PrintAligned(status.PhaseSummary, "\n\n")
	assert.Empty(t, buf.String())
}

func TestLogger_WarnAndError(t *testing.T) {
	l, buf := newTestLogger(t)

	l.Warn("optional step %q missed", "send now")
	l.Error("scenario %s failed", "TC-1")

	assert.Contains(t, buf.String(), `WARN: optional step "send now" missed`)
	assert.Contains(t, buf.String(), "ERROR: scenario TC-1 failed")
	content := readLog(t, l)
	assert.Contains(t, content, "WARN: optional step")
	assert.Contains(t, content, "ERROR: scenario TC-1 failed")
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	l, buf := newTestLogger(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.PrintPhase(status.PhaseScenario, "scenario %d", i)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "\n"))
	for i := range 20 {
		assert.Contains(t, buf.String(), fmt.Sprintf("scenario %d\n", i))
	}
}

func TestLogger_Close(t *testing.T) {
	l, err := NewLogger(Config{RunID: "c", Dir: t.TempDir(), NoColor: true}, nil)
	require.NoError(t, err)
	path := l.Path()

	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")
	assert.Empty(t, l.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Completed:")
}

func TestLogger_Elapsed(t *testing.T) {
	l, _ := newTestLogger(t)
	assert.NotEmpty(t, l.Elapsed())
}

func TestNewColors(t *testing.T) {
	c := NewColors(config.ColorConfig{Step: "0,200,0", Warn: "bad", Scenario: "1,2,300"})
	assert.Equal(t, color.RGB(0, 200, 0), c.Phase(status.PhaseStep))
	assert.Equal(t, color.New(color.FgWhite), c.warn)
	assert.Equal(t, color.New(color.FgWhite), c.Phase(status.PhaseScenario))
	assert.Equal(t, c.info, c.Phase(status.Phase("unknown")))
}

func TestProgressFilename(t *testing.T) {
	assert.Equal(t, "progress.txt", progressFilename("", ""))
	assert.Equal(t, "progress-r1.txt", progressFilename("", "r1"))
	assert.Equal(t, filepath.Join("reports", "progress-r1.txt"), progressFilename("reports", "r1"))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short", wrapText("short", 10))
	assert.Equal(t, "aaa bbb\nccc", wrapText("aaa bbb ccc", 7))
	assert.Equal(t, "no width", wrapText("no width", 0))
}

func TestTerminalWidth(t *testing.T) {
	t.Setenv("COLUMNS", "120")
	assert.Equal(t, 100, terminalWidth())
	t.Setenv("COLUMNS", "30")
	assert.Equal(t, 40, terminalWidth())
}
