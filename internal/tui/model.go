// Package tui is the terminal front end: a bubbletea program that shows the
// rows of a buffer controller and maps keys onto its commands.
package tui

import (
	"strings"

	"dirbuf/internal/buffer"
	"dirbuf/internal/config"
	"dirbuf/internal/errors"
	"dirbuf/internal/log"
	"dirbuf/internal/page"
	"dirbuf/internal/rifle"
	"dirbuf/internal/storage"
	"dirbuf/internal/tui/components"
	"dirbuf/internal/tui/messages"
	"dirbuf/internal/tui/styles"
	"dirbuf/internal/watch"
	"dirbuf/pkg/types"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Options wire a Model to its collaborators.
type Options struct {
	Config  *config.Config
	Backend storage.Backend
	// Watcher, when set, refreshes pages whose directories change.
	Watcher *watch.Watcher
	Labels  *buffer.Labels
	// Clipboard overrides the system clipboard.
	Clipboard func(string) error
}

type Model struct {
	ctrl    *buffer.Controller
	surface *Surface
	watcher *watch.Watcher

	keys   types.KeyMap
	help   help.Model
	prompt textinput.Model
	status *components.StatusBar
	theme  styles.Theme

	mode     types.Mode
	showHelp bool
	width    int
	height   int
	offset   int
}

// New opens dir in a new session.
func New(dir string, opts Options) (*Model, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}

	keys := types.DefaultKeyMap()
	if err := keys.Apply(cfg.Keys); err != nil {
		return nil, errors.NewConfigError("invalid key override", "keys", errors.InvalidConfig, err)
	}
	ignore, err := page.NewMatcher(cfg.Ignore)
	if err != nil {
		return nil, err
	}
	opener, err := rifle.New(cfg.Rifle)
	if err != nil {
		return nil, err
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.WriteAll
	}

	theme := styles.New(cfg.Theme)
	surface := newSurface(cfg.Editor)
	ctrl, err := buffer.New(dir, opts.Backend, surface, buffer.Options{
		Ignore:    ignore,
		Opener:    opener,
		Labels:    opts.Labels,
		Clipboard: clip,
	})
	if err != nil {
		return nil, err
	}

	prompt := textinput.New()
	prompt.Prompt = ":cd "
	prompt.Placeholder = "path"

	m := &Model{
		ctrl:    ctrl,
		surface: surface,
		watcher: opts.Watcher,
		keys:    keys,
		help:    help.New(),
		prompt:  prompt,
		status:  components.NewStatusBar(theme),
		theme:   theme,
		mode:    types.Normal,
	}
	m.after()
	return m, nil
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return waitDirty(m.watcher)
}

func waitDirty(w *watch.Watcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.DirtyChannel()
		if !ok {
			return messages.WatcherClosedMsg{}
		}
		return messages.DirtyMsg{Event: ev}
	}
}

// Cwd returns the directory shown last.
func (m *Model) Cwd() string { return m.ctrl.Cwd() }

func (m *Model) Mode() types.Mode { return m.mode }

// Close ends the session.
func (m *Model) Close() { m.ctrl.Close() }

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.status.SetWidth(msg.Width)
		m.surface.editor.SetWidth(msg.Width - 2)
		m.surface.editor.SetHeight(m.visibleRows())
		m.prompt.Width = msg.Width - len(m.prompt.Prompt) - 1

	case tea.FocusMsg:
		m.ctrl.RefreshDirty()

	case messages.DirtyMsg:
		log.Debugf("Directory changed: %s", msg.Event.Dir)
		m.ctrl.RefreshDirty()
		cmds = append(cmds, waitDirty(m.watcher))

	case messages.ExecFinishedMsg:
		if msg.Err != nil {
			m.status.SetError(errors.Wrapf(msg.Err, "opening %s", msg.Path))
		}
		m.ctrl.RefreshDirty()

	case messages.ErrorMsg:
		m.status.SetError(msg.Err)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	}

	cmds = append(cmds, m.after()...)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case types.Edit:
		return m.handleEditKeys(msg)
	case types.Command:
		return m.handleCommandKeys(msg)
	default:
		return m.handleNormalKeys(msg)
	}
}

func (m *Model) move(row int) {
	p := m.ctrl.Page()
	if row < 0 {
		row = 0
	}
	if row >= p.Len() {
		row = p.Len() - 1
	}
	m.ctrl.OnCursorMoved(row)
}

func (m *Model) handleNormalKeys(msg tea.KeyMsg) tea.Cmd {
	m.status.Clear()
	cursor := m.ctrl.Page().Cursor()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.Up):
		m.move(cursor - 1)
	case key.Matches(msg, m.keys.Down):
		m.move(cursor + 1)
	case key.Matches(msg, m.keys.GotoTop):
		m.move(0)
	case key.Matches(msg, m.keys.GotoBottom):
		m.move(m.ctrl.Page().Len() - 1)
	case key.Matches(msg, m.keys.Open):
		_ = m.ctrl.Open()
	case key.Matches(msg, m.keys.Parent):
		_ = m.ctrl.Parent()
	case key.Matches(msg, m.keys.ToggleExpand):
		_ = m.ctrl.ToggleExpand()
	case key.Matches(msg, m.keys.Refresh):
		m.ctrl.Refresh()
	case key.Matches(msg, m.keys.Pick):
		m.ctrl.TogglePick()
	case key.Matches(msg, m.keys.Cut):
		_ = m.ctrl.Cut()
	case key.Matches(msg, m.keys.CutSingle):
		_ = m.ctrl.CutSingle()
	case key.Matches(msg, m.keys.Copy):
		_ = m.ctrl.Copy()
	case key.Matches(msg, m.keys.CopySingle):
		_ = m.ctrl.CopySingle()
	case key.Matches(msg, m.keys.Paste):
		_ = m.ctrl.Paste()
	case key.Matches(msg, m.keys.Delete):
		_ = m.ctrl.Delete()
	case key.Matches(msg, m.keys.DeleteSingle):
		_ = m.ctrl.DeleteSingle()
	case key.Matches(msg, m.keys.ForceDelete):
		_ = m.ctrl.ForceDelete()
	case key.Matches(msg, m.keys.ForceDeleteSingle):
		_ = m.ctrl.ForceDeleteSingle()
	case key.Matches(msg, m.keys.ToggleHidden):
		m.ctrl.ToggleShowHidden()
	case key.Matches(msg, m.keys.TogglePinRoot):
		m.ctrl.TogglePinRoot()
	case key.Matches(msg, m.keys.YankPath):
		_ = m.ctrl.YankPath()
	case key.Matches(msg, m.keys.Edit):
		m.surface.SetCursor(cursor)
		m.ctrl.EnterEdit()
		m.mode = types.Edit
	case key.Matches(msg, m.keys.ChangeDir):
		m.mode = types.Command
		m.prompt.SetValue("")
		return m.prompt.Focus()
	}
	return nil
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return tea.Quit
	case key.Matches(msg, m.keys.Save):
		m.status.Clear()
		_ = m.ctrl.SaveEdit()
		return nil
	case key.Matches(msg, m.keys.CancelEdit):
		m.status.Clear()
		m.ctrl.CancelEdit()
		return nil
	}

	var cmd tea.Cmd
	m.surface.editor, cmd = m.surface.editor.Update(msg)
	return cmd
}

func (m *Model) handleCommandKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = types.Normal
		m.prompt.Blur()
		return nil
	case tea.KeyEnter:
		m.mode = types.Normal
		m.prompt.Blur()
		m.status.Clear()
		_ = m.ctrl.ChangeDirectory(m.prompt.Value())
		return nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return cmd
}

// after collects what the controller drew and asked for during an update.
func (m *Model) after() []tea.Cmd {
	cmds, notice, err := m.surface.drain()
	if err != nil {
		m.status.SetError(err)
	} else if notice != "" {
		m.status.SetText(notice)
	}

	if m.mode == types.Edit && !m.ctrl.Editing() {
		m.mode = types.Normal
	}
	m.status.SetMode(m.mode)

	if p := m.ctrl.Page(); p != nil {
		if cur := p.Current(); cur.IsHeader() {
			m.status.SetEntry("")
		} else {
			m.status.SetEntry(cur.Path)
		}
		m.scroll(p.Cursor())
	}
	if m.watcher != nil {
		m.watcher.Sync(m.ctrl.Dirs())
	}
	return cmds
}

// visibleRows is the number of rows left after the title, status and help.
func (m *Model) visibleRows() int {
	reserved := 3
	if m.showHelp {
		reserved += len(m.keys.FullHelp()[0])
	}
	if m.height-reserved < 1 {
		return 1
	}
	return m.height - reserved
}

func (m *Model) scroll(cursor int) {
	if m.height == 0 {
		return
	}
	visible := m.visibleRows()
	if cursor < m.offset {
		m.offset = cursor
	}
	if cursor >= m.offset+visible {
		m.offset = cursor - visible + 1
	}
}

// View implements tea.Model
func (m *Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.theme.Title.Render(m.surface.label))
	sb.WriteString("\n")

	if m.mode == types.Edit {
		sb.WriteString(m.surface.editor.View())
	} else {
		sb.WriteString(m.renderRows())
	}
	sb.WriteString("\n")

	if m.mode == types.Command {
		sb.WriteString(m.prompt.View())
	} else {
		sb.WriteString(m.status.View())
	}

	sb.WriteString("\n" + m.help.View(m.keys))
	return m.theme.App.Render(sb.String())
}

func (m *Model) renderRows() string {
	lines := m.surface.lines
	start, end := 0, len(lines)
	if m.height > 0 {
		start = m.offset
		if start > len(lines) {
			start = len(lines)
		}
		if start+m.visibleRows() < end {
			end = start + m.visibleRows()
		}
	}

	rows := make([]string, 0, end-start)
	for _, line := range lines[start:end] {
		rows = append(rows, m.theme.Row(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Run starts the program in the alternate screen and returns the last
// directory shown.
func Run(dir string, opts Options) (string, error) {
	m, err := New(dir, opts)
	if err != nil {
		return "", err
	}
	defer m.Close()

	if opts.Watcher != nil {
		if err := opts.Watcher.Start(); err != nil {
			return "", err
		}
		defer opts.Watcher.Stop()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := p.Run(); err != nil {
		return "", errors.Wrap(err, "terminal program failed")
	}
	return m.Cwd(), nil
}
