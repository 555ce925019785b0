package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 3)
	successStyle = boxStyle.BorderForeground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Box writes message inside a double frame.
func Box(w io.Writer, message string) {
	_, _ = fmt.Fprintln(w, boxStyle.Render(message))
}

// Banner writes a completion banner, e.g. "Setup Completed".
func Banner(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, successStyle.Render(title))
}

func Warn(w io.Writer, message string) {
	_, _ = fmt.Fprintln(w, warnStyle.Render(message))
}
