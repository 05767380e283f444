package styles

import (
	"dirbuf/internal/config"
	"dirbuf/internal/page"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the core UI styles
type Theme struct {
	App    lipgloss.Style
	Title  lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	Help   lipgloss.Style
	Prompt lipgloss.Style
	Cursor lipgloss.Style

	rows map[page.Highlight]lipgloss.Style
}

// New builds the styles for the row colours of theme.
func New(theme config.Theme) Theme {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}

	return Theme{
		App: lipgloss.NewStyle().
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F4FB7")).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#959595")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A9")),
		Prompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7B61FF")).
			Bold(true),
		Cursor: lipgloss.NewStyle().
			Reverse(true),

		rows: map[page.Highlight]lipgloss.Style{
			page.HiHeader:     fg(theme.Header).Bold(true).Underline(true),
			page.HiFile:       fg(theme.File),
			page.HiExecutable: fg(theme.Executable).Bold(true),
			page.HiSymlink:    fg(theme.Symlink).Italic(true),
			page.HiDirectory:  fg(theme.Directory).Bold(true),
			page.HiPicked:     fg(theme.Pick).Bold(true),
			page.HiCut:        fg(theme.Cut).Strikethrough(true),
			page.HiCopy:       fg(theme.Copy).Bold(true),
		},
	}
}

// Row renders one page row: indentation, a directory marker and the name
// in the colour of its highlight token.
func (t Theme) Row(line page.Line) string {
	name := line.Name
	if line.Category == page.Directory {
		if line.Expanded {
			name += "/ ▾"
		} else {
			name += "/"
		}
	}

	style, ok := t.rows[line.Highlight]
	if !ok {
		style = lipgloss.NewStyle()
	}
	if line.Cursor {
		style = style.Reverse(true)
	}
	return lipgloss.NewStyle().PaddingLeft(2 * line.Level).Render(style.Render(name))
}
