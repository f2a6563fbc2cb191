// Package render turns run reports into terminal output.
package render

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// DefaultWidth caps the word wrap width; it is also used when stdout is not a terminal.
const DefaultWidth = 100

// Options controls markdown rendering.
type Options struct {
	NoColor bool // return content unchanged
	Width   int  // word wrap width, terminal width up to DefaultWidth if zero
}

// Markdown renders markdown for the terminal with glamour's auto-detected style.
// with NoColor the content is returned as is, so plain logs and pipes stay readable.
func Markdown(content string, opts Options) (string, error) {
	if opts.NoColor {
		return content, nil
	}

	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	result, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return result, nil
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return min(w, DefaultWidth)
}
