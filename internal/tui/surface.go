package tui

import (
	"os"
	"os/exec"
	"strings"

	"dirbuf/internal/errors"
	"dirbuf/internal/page"
	"dirbuf/internal/rifle"
	"dirbuf/internal/tui/messages"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// Surface is the row buffer a controller renders into. Rows are kept as
// page lines; edit mode hands the plain text to a textarea. Processes the
// controller asks for are queued as commands for the update loop.
type Surface struct {
	lines      []page.Line
	cursor     int
	label      string
	modifiable bool
	editor     textarea.Model
	fallback   string

	cmds   []tea.Cmd
	notice string
	err    error
}

func newSurface(fallbackEditor string) *Surface {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Prompt = ""

	return &Surface{editor: ta, fallback: fallbackEditor}
}

func (s *Surface) SetLines(lines []page.Line) {
	s.lines = lines
	if s.cursor >= len(lines) {
		s.cursor = len(lines) - 1
	}
}

func (s *Surface) SetLine(row int, line page.Line) {
	if row >= 0 && row < len(s.lines) {
		s.lines[row] = line
	}
}

// SetPlain loads lines into the editor, keeping the cursor row.
func (s *Surface) SetPlain(lines []string) {
	s.editor.SetValue(strings.Join(lines, "\n"))
	for i := s.editor.LineCount(); i > 0; i-- {
		s.editor.CursorUp()
	}
	for i := 0; i < s.cursor; i++ {
		s.editor.CursorDown()
	}
	s.editor.CursorEnd()
}

// Lines returns the editor text while modifiable, the row names otherwise.
func (s *Surface) Lines() []string {
	if s.modifiable {
		return strings.Split(s.editor.Value(), "\n")
	}
	out := make([]string, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.String()
	}
	return out
}

func (s *Surface) SetModifiable(on bool) {
	s.modifiable = on
	if on {
		s.editor.Focus()
	} else {
		s.editor.Blur()
	}
}

func (s *Surface) SetCursor(row int)   { s.cursor = row }
func (s *Surface) Rename(label string) { s.label = label }
func (s *Surface) Notify(msg string)   { s.notice = msg }
func (s *Surface) Error(err error)     { s.err = err }

// Open edits path in $VISUAL, $EDITOR or the configured editor.
func (s *Surface) Open(path string) {
	editor := editorName(s.fallback)
	args, err := rifle.Split(editor)
	if err != nil {
		s.err = errors.Wrapf(err, "invalid editor %q", editor)
		return
	}
	if len(args) == 0 {
		s.err = errors.Newf("invalid editor %q", editor)
		return
	}
	s.exec(exec.Command(args[0], append(args[1:], path)...), path)
}

// Spawn runs an opener command on path.
func (s *Surface) Spawn(command, path string) {
	cmd, err := rifle.Command(command, path)
	if err != nil {
		s.err = err
		return
	}
	s.exec(cmd, path)
}

func (s *Surface) exec(cmd *exec.Cmd, path string) {
	s.cmds = append(s.cmds, tea.ExecProcess(cmd, func(err error) tea.Msg {
		return messages.ExecFinishedMsg{Path: path, Err: err}
	}))
}

// drain returns the queued commands and messages and clears them.
func (s *Surface) drain() (cmds []tea.Cmd, notice string, err error) {
	cmds, notice, err = s.cmds, s.notice, s.err
	s.cmds, s.notice, s.err = nil, "", nil
	return cmds, notice, err
}

func editorName(fallback string) string {
	if v := strings.TrimSpace(os.Getenv("VISUAL")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("EDITOR")); v != "" {
		return v
	}
	if v := strings.TrimSpace(fallback); v != "" {
		return v
	}
	return "vi"
}
