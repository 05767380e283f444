package components

import (
	"os"
	"strings"

	"dirbuf/internal/tui/styles"
	"dirbuf/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// StatusBar is the line below the rows: mode, entry details and the last
// message.
type StatusBar struct {
	theme   styles.Theme
	mode    types.Mode
	info    string
	text    string
	isError bool
	width   int
}

func NewStatusBar(theme styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

func (s *StatusBar) SetMode(mode types.Mode) { s.mode = mode }
func (s *StatusBar) SetWidth(width int)      { s.width = width }

// SetText shows an informational message.
func (s *StatusBar) SetText(text string) {
	s.text = text
	s.isError = false
}

// SetError shows a failure until the next message.
func (s *StatusBar) SetError(err error) {
	s.text = err.Error()
	s.isError = true
}

func (s *StatusBar) Clear() {
	s.text = ""
	s.isError = false
}

func (s *StatusBar) Text() string { return s.text }

// SetEntry describes path: its size and age, or nothing for directories
// and entries that can not be read.
func (s *StatusBar) SetEntry(path string) {
	s.info = ""
	if path == "" {
		return
	}
	info, err := os.Lstat(path)
	if err != nil || info.IsDir() {
		return
	}
	s.info = humanize.Bytes(uint64(info.Size())) + "  " + humanize.Time(info.ModTime())
}

func (s *StatusBar) View() string {
	parts := []string{s.theme.Prompt.Render(s.mode.String())}
	if s.info != "" {
		parts = append(parts, s.theme.Status.Render(s.info))
	}
	if s.text != "" {
		style := s.theme.Status
		if s.isError {
			style = s.theme.Error
		}
		parts = append(parts, style.Render(s.text))
	}

	line := strings.Join(parts, "  ")
	if s.width > 0 {
		return lipgloss.NewStyle().MaxWidth(s.width).Render(line)
	}
	return line
}
