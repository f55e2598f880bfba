// Package render draws the live task region of the terminal.
//
// Every cycle rewinds the cursor over the lines drawn by the previous cycle
// and redraws them, so running tasks update in place while finished tasks
// scroll into permanent history above the live region.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"

	"github.com/ShayCichocki/dbtmon/internal/registry"
	"github.com/ShayCichocki/dbtmon/pkg/models"
)

// ErrNoTerminal is returned when the terminal width is needed but the output
// is not attached to a terminal.
var ErrNoTerminal = errors.New("output is not a terminal; set a fixed width with --width")

// WidthFunc reports the current terminal width in columns.
type WidthFunc func() (int, error)

// FixedWidth returns a WidthFunc that always reports n columns.
func FixedWidth(n int) WidthFunc {
	return func() (int, error) {
		return n, nil
	}
}

// TerminalWidth returns a WidthFunc that queries the terminal behind fd on
// every call, so resizes are picked up by the next cycle.
func TerminalWidth(fd uintptr) WidthFunc {
	return func() (int, error) {
		if !term.IsTerminal(fd) {
			return 0, ErrNoTerminal
		}
		width, _, err := term.GetSize(fd)
		if err != nil {
			return 0, fmt.Errorf("get terminal size: %w", err)
		}
		return width, nil
	}
}

// Renderer redraws the running tasks held by a registry.
// It is not safe for concurrent use; the monitor loop owns it.
type Renderer struct {
	out      io.Writer
	registry *registry.Registry
	width    WidthFunc

	// rewind is the number of lines the next cycle moves back over.
	rewind int
}

// New creates a Renderer writing to out.
func New(out io.Writer, reg *registry.Registry, width WidthFunc) *Renderer {
	return &Renderer{
		out:      out,
		registry: reg,
		width:    width,
	}
}

// Rewind returns the number of lines the next cycle will erase.
func (r *Renderer) Rewind() int {
	return r.rewind
}

// Cycle erases the previous live region, prints the tasks that finished
// since the last cycle, prints every running task and records the running
// count on each of them.
func (r *Renderer) Cycle(now time.Time) error {
	width, err := r.width()
	if err != nil {
		return fmt.Errorf("query terminal width: %w", err)
	}

	var b strings.Builder
	r.erase(&b, width)

	for _, task := range r.registry.TakeFinished() {
		b.WriteString(pad(FormatTask(task, now), width))
		b.WriteByte('\n')
	}

	for _, task := range r.registry.Active() {
		line := FormatTask(task, now)
		// A running line must occupy exactly one row or the rewind drifts.
		if width > 0 && lipgloss.Width(line) > width {
			line = ansi.Truncate(line, width, "")
		}
		b.WriteString(pad(line, width))
		b.WriteByte('\n')
	}

	n := r.registry.ObserveConcurrency(now)
	r.rewind = n + 1

	_, err = io.WriteString(r.out, b.String())
	return err
}

// Passthrough writes text verbatim as permanent output. The live region is
// cleared first and redrawn below the text by the next cycle.
func (r *Renderer) Passthrough(text string) error {
	width, err := r.width()
	if err != nil {
		return fmt.Errorf("query terminal width: %w", err)
	}

	var b strings.Builder
	r.erase(&b, width)
	b.WriteString(text)
	b.WriteByte('\n')
	r.rewind = 0

	_, err = io.WriteString(r.out, b.String())
	return err
}

// erase moves the cursor to the first row of the live region and blanks it.
// The newline after each cursor move is the reserved spacing row.
func (r *Renderer) erase(b *strings.Builder, width int) {
	if r.rewind <= 0 {
		return
	}
	up := CursorUp(r.rewind)
	b.WriteString(up)
	b.WriteByte('\n')
	blank := strings.Repeat(" ", max(width, 0))
	for i := 0; i < r.rewind-1; i++ {
		b.WriteString(blank)
		b.WriteByte('\n')
	}
	b.WriteString(up)
	b.WriteByte('\n')
}

// CursorUp returns the escape that moves the cursor to the start of the line
// n rows up.
func CursorUp(n int) string {
	return fmt.Sprintf("\033[%dF", n)
}

// FormatTask renders one task line.
func FormatTask(task *models.Task, now time.Time) string {
	stem := fmt.Sprintf("%s %d of %d %s", task.Timestamp, task.ID, task.Total, task.Description)
	switch task.Status {
	case models.TaskStatusRunning:
		return fmt.Sprintf("%s [ELAPSED: %s]", stem, models.FormatClock(task.Elapsed(now)))
	case models.TaskStatusSkipped:
		return fmt.Sprintf("%s [%s]", stem, StatusLabel(task.Status))
	default:
		return fmt.Sprintf("%s [%s %d] in %s", stem, StatusLabel(task.Status), task.ExitCode,
			models.FormatClock(task.Elapsed(now)))
	}
}

// pad fills line with spaces up to width display columns.
func pad(line string, width int) string {
	if gap := width - lipgloss.Width(line); gap > 0 {
		return line + strings.Repeat(" ", gap)
	}
	return line
}
