// Package ui prints operator-facing output: styled status lines, the per-slide
// narration of a capture run and desktop notifications.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Logo is printed at the start of interactive commands
const Logo = `
  ┌─┐┌┬┐┌─┐┬─┐┬ ┬┌─┐┌┐┌┌─┐┌─┐
  └─┐ │ │ │├┬┘└┬┘└─┐│││├─┤├─┘
  └─┘ ┴ └─┘┴└─ ┴ └─┘┘└┘┴ ┴┴    story capture
`

// Console writes styled lines to w. Styling is dropped when w is not a terminal.
type Console struct {
	w     io.Writer
	color bool
}

// NewConsole creates a console for w, styled only when w is a terminal
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, color: IsTerminal(w)}
}

// NewPlainConsole creates a console that never styles its output
func NewPlainConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *Console) render(style lipgloss.Style, s string) string {
	if !c.color {
		return s
	}
	return style.Render(s)
}

// Writer returns the underlying writer
func (c *Console) Writer() io.Writer { return c.w }

// Logo prints the logo
func (c *Console) Logo() {
	fmt.Fprintln(c.w, c.render(logoStyle, Logo))
}

// Error prints an error line, appending err when given
func (c *Console) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(c.w, c.render(errorStyle, "✗ "+msg))
}

// Success prints a success line
func (c *Console) Success(msg string) {
	fmt.Fprintln(c.w, c.render(successStyle, "✓ "+msg))
}

// Warning prints a warning line
func (c *Console) Warning(msg string) {
	fmt.Fprintln(c.w, c.render(warningStyle, "! "+msg))
}

// Info prints a label: value pair
func (c *Console) Info(label, value string) {
	fmt.Fprintf(c.w, "%s: %s\n", c.render(labelStyle, label), c.render(valueStyle, value))
}

// Highlight prints an emphasised line
func (c *Console) Highlight(msg string) {
	fmt.Fprintln(c.w, c.render(highlightStyle, msg))
}

// Dim prints a de-emphasised line
func (c *Console) Dim(msg string) {
	fmt.Fprintln(c.w, c.render(dimStyle, msg))
}

// Box prints lines inside a rounded border
func (c *Console) Box(lines ...string) {
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	if !c.color {
		fmt.Fprintln(c.w, body)
		return
	}
	fmt.Fprintln(c.w, summaryStyle.Render(body))
}

var stdout = NewConsole(os.Stdout)

// Stdout returns the console bound to standard output
func Stdout() *Console { return stdout }

// PrintError prints an error message on stdout
func PrintError(msg string, err error) { stdout.Error(msg, err) }

// PrintSuccess prints a success message on stdout
func PrintSuccess(msg string) { stdout.Success(msg) }

// PrintWarning prints a warning on stdout
func PrintWarning(msg string) { stdout.Warning(msg) }

// PrintInfo prints a label: value pair on stdout
func PrintInfo(label, value string) { stdout.Info(label, value) }
