// Package cli holds the output helpers of the dirbuf command line.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dirStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
)

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successStyle.Render("✓ "+message))
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintln(w, errorStyle.Render("✗ "+message))
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoStyle.Render("ℹ "+message))
}

// PrintHeader prints a section header
func PrintHeader(w io.Writer, message string) {
	fmt.Fprintln(w, headerStyle.Render(message))
}

// Dir renders a directory name.
func Dir(name string) string {
	return dirStyle.Render(name)
}
