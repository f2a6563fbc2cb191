// Package progress provides timestamped logging to a run log file and stdout with color support.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/pushqa/wpregress/pkg/config"
	"github.com/pushqa/wpregress/pkg/status"
)

// Colors holds the resolved color set used by the logger.
type Colors struct {
	phases    map[status.Phase]*color.Color
	warn      *color.Color
	err       *color.Color
	timestamp *color.Color
	info      *color.Color
}

// NewColors builds colors from "r,g,b" config values. Unparsable values fall back to white.
func NewColors(cfg config.ColorConfig) *Colors {
	return &Colors{
		phases: map[status.Phase]*color.Color{
			status.PhaseSetup:    rgb(cfg.Setup),
			status.PhaseScenario: rgb(cfg.Scenario),
			status.PhaseStep:     rgb(cfg.Step),
			status.PhaseSummary:  rgb(cfg.Summary),
		},
		warn:      rgb(cfg.Warn),
		err:       rgb(cfg.Error),
		timestamp: rgb(cfg.Timestamp),
		info:      rgb(cfg.Info),
	}
}

// Phase returns the color for a phase, info color for unknown phases.
func (c *Colors) Phase(p status.Phase) *color.Color {
	if pc, ok := c.phases[p]; ok {
		return pc
	}
	return c.info
}

// Info returns the color for informational console output.
func (c *Colors) Info() *color.Color { return c.info }

// Error returns the color for error console output.
func (c *Colors) Error() *color.Color { return c.err }

func rgb(s string) *color.Color {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.New(color.FgWhite)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return color.New(color.FgWhite)
		}
		vals[i] = v
	}
	return color.RGB(vals[0], vals[1], vals[2])
}

// Config holds logger configuration.
type Config struct {
	RunID   string // run identifier, used in the log filename
	Dir     string // directory for the log file, current dir if empty
	BaseURL string // target site, written to the header
	Browser string // browser engine, written to the header
	NoColor bool   // disable color output (sets color.NoColor globally)
}

// Logger writes timestamped output to both a file and stdout.
// safe for concurrent use, parallel scenarios share one logger.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	stdout    io.Writer
	startTime time.Time
	colors    *Colors
}

// timestampFormat is the format for timestamps: YY-MM-DD HH:MM:SS
const timestampFormat = "06-01-02 15:04:05"

// NewLogger creates a logger writing to both a progress file and stdout.
func NewLogger(cfg Config, colors *Colors) (*Logger, error) {
	if cfg.NoColor {
		color.NoColor = true
	}
	if colors == nil {
		colors = NewColors(config.ColorConfig{})
	}

	path := progressFilename(cfg.Dir, cfg.RunID)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create progress dir: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // path derived from reports dir and run id
	if err != nil {
		return nil, fmt.Errorf("create progress file: %w", err)
	}

	l := &Logger{file: f, stdout: os.Stdout, startTime: time.Now(), colors: colors}

	l.writeFile("# wpregress progress log\n")
	l.writeFile("Run: %s\n", cfg.RunID)
	l.writeFile("Base URL: %s\n", cfg.BaseURL)
	l.writeFile("Browser: %s\n", cfg.Browser)
	l.writeFile("Started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	l.writeFile("%s\n\n", strings.Repeat("-", 60))
	return l, nil
}

// Path returns the progress file path.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Print writes a timestamped message in the setup color.
func (l *Logger) Print(format string, args ...any) {
	l.PrintPhase(status.PhaseSetup, format, args...)
}

// PrintPhase writes a timestamped message colored for the given phase.
func (l *Logger) PrintPhase(phase status.Phase, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeFile("[%s] %s\n", timestamp, msg)
	l.writeStdout("%s %s\n", l.colors.timestamp.Sprintf("[%s]", timestamp), l.colors.Phase(phase).Sprint(msg))
}

// PrintRaw writes without timestamp, used for pre-rendered blocks like the markdown summary.
func (l *Logger) PrintRaw(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeFile("%s", msg)
	l.writeStdout("%s", msg)
}

// PrintAligned writes multi-line text, timestamping the first line and indenting the rest.
// long lines are wrapped to the terminal width.
func (l *Logger) PrintAligned(phase status.Phase, text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}

	timestamp := time.Now().Format(timestampFormat)
	phaseColor := l.colors.Phase(phase)
	tsPrefix := l.colors.timestamp.Sprintf("[%s]", timestamp)
	indent := strings.Repeat(" ", 20) // aligns with "[YY-MM-DD HH:MM:SS] "

	width := terminalWidth()
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		if len(line) <= width {
			lines = append(lines, line)
			continue
		}
		for wrapped := range strings.SplitSeq(wrapText(line, width), "\n") {
			lines = append(lines, wrapped)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, line := range lines {
		switch {
		case line == "":
			l.writeFile("\n")
			l.writeStdout("\n")
		case i == 0:
			l.writeFile("[%s] %s\n", timestamp, line)
			l.writeStdout("%s %s\n", tsPrefix, phaseColor.Sprint(line))
		default:
			l.writeFile("%s%s\n", indent, line)
			l.writeStdout("%s%s\n", indent, phaseColor.Sprint(line))
		}
	}
}

// Error writes an error message in the error color.
func (l *Logger) Error(format string, args ...any) {
	l.labeled("ERROR", l.colors.err, format, args...)
}

// Warn writes a warning message in the warn color.
func (l *Logger) Warn(format string, args ...any) {
	l.labeled("WARN", l.colors.warn, format, args...)
}

func (l *Logger) labeled(label string, c *color.Color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeFile("[%s] %s: %s\n", timestamp, label, msg)
	l.writeStdout("%s %s\n", l.colors.timestamp.Sprintf("[%s]", timestamp), c.Sprintf("%s: %s", label, msg))
}

// Elapsed returns formatted elapsed time since start.
func (l *Logger) Elapsed() string {
	return humanize.RelTime(l.startTime, time.Now(), "", "")
}

// Close writes footer and closes the progress file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}

	l.writeFile("\n%s\n", strings.Repeat("-", 60))
	l.writeFile("Completed: %s (%s)\n", time.Now().Format("2006-01-02 15:04:05"), l.Elapsed())

	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close progress file: %w", err)
	}
	return nil
}

func (l *Logger) writeFile(format string, args ...any) {
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

func (l *Logger) writeStdout(format string, args ...any) {
	fmt.Fprintf(l.stdout, format, args...)
}

// progressFilename returns the run log path inside dir.
func progressFilename(dir, runID string) string {
	name := "progress.txt"
	if runID != "" {
		name = fmt.Sprintf("progress-%s.txt", runID)
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// terminalWidth returns content width (terminal columns minus the timestamp prefix).
// uses COLUMNS, then the terminal size, then 80 columns.
func terminalWidth() int {
	const minWidth = 40
	clamp := func(w int) int { return max(w-20, minWidth) }

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return clamp(w)
		}
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return clamp(w)
	}
	return 80 - 20
}

// wrapText wraps text to the given width on word boundaries.
func wrapText(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			lineLen = len(word)
		case lineLen+1+len(word) <= width:
			result.WriteString(" ")
			lineLen += 1 + len(word)
		default:
			result.WriteString("\n")
			lineLen = len(word)
		}
		result.WriteString(word)
	}
	return result.String()
}
