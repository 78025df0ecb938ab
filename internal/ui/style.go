package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// Disable turns off colored output globally (e.g. for --no-color or pipes).
func Disable() {
	color.NoColor = true
}

// PrintLogo renders the colored todograph banner to w.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	nodes := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +--------------------------------+")
	nodes.Fprintln(w, "   |  o--o--o      o--o             |")
	nodes.Fprintln(w, "   |      \\--o--o--/   \\--o        |")
	brand.Fprintln(w, "   |  T  O  D  O  G  R  A  P  H     |")
	frame.Fprintln(w, "   +--------------------------------+")
	tag.Fprintln(w, "   Dependency-aware todo planning")
	fmt.Fprintln(w)
}

// TodoID returns a styled #id label.
func TodoID(id int) string {
	return BoldMagenta(fmt.Sprintf("#%d", id))
}

// StatusIcon returns a colored status icon for compact table display.
func StatusIcon(status string) string {
	switch status {
	case "completed":
		return Green("✓")
	case "inProgress":
		return Cyan("●")
	default:
		return Dim("◌")
	}
}

// CriticalMark returns the marker shown next to critical todos.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// DueLabel colors a due date red when overdue.
func DueLabel(date string, overdue bool) string {
	if overdue {
		return BoldRed(date + " overdue")
	}
	return Dim(date)
}

// WaveStatus returns a colored wave status string.
func WaveStatus(status string) string {
	switch status {
	case "done":
		return Green("done")
	case "running":
		return BoldCyan("running")
	default:
		return Dim("blocked")
	}
}
