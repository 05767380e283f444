package tui

import (
	"fmt"
	"strings"
	"testing"

	"dirbuf/internal/config"
	"dirbuf/internal/errors"
	"dirbuf/internal/page"
	"dirbuf/internal/tui/messages"
	"dirbuf/internal/watch"
	"dirbuf/pkg/testutils"
	"dirbuf/pkg/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(t *testing.T, backend *testutils.MemBackend, dir string) *Model {
	t.Helper()
	m, err := New(dir, Options{Backend: backend, Clipboard: func(string) error { return nil }})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func press(m *Model, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(k)
	}
	return cmd
}

func TestModelInitialization(t *testing.T) {
	m := newModel(t, testutils.NewMemBackend("/d/a", "/d/b/"), "/d")
	assert.Equal(t, types.Normal, m.Mode())
	assert.Equal(t, "/d", m.Cwd())
	assert.Nil(t, m.Init(), "no watcher, no startup command")

	view := testutils.StripANSI(m.View())
	assert.Contains(t, view, "a")
	assert.Contains(t, view, "b/")
	assert.Contains(t, view, "NORMAL")
}

func TestModelInvalidKeyOverride(t *testing.T) {
	cfg := config.New()
	cfg.Keys = map[string][]string{"fly": {"f"}}
	_, err := New("/d", Options{Config: cfg, Backend: testutils.NewMemBackend("/d/a")})
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestModelNavigation(t *testing.T) {
	backend := testutils.NewMemBackend("/d/a", "/d/b/x", "/d/c")
	m := newModel(t, backend, "/d")

	press(m, runes("j"))
	assert.Equal(t, 2, m.ctrl.Page().Cursor())
	press(m, runes("j"), runes("j"), runes("j"))
	assert.Equal(t, 3, m.ctrl.Page().Cursor(), "cursor stops at the last row")
	press(m, runes("g"))
	assert.Equal(t, 0, m.ctrl.Page().Cursor())
	press(m, runes("G"), runes("k"))

	press(m, runes("l"))
	assert.Equal(t, "/d/b", m.Cwd())
	press(m, runes("h"))
	assert.Equal(t, "/d", m.Cwd())
	assert.Equal(t, 2, m.ctrl.Page().Cursor(), "parent focuses the directory left")

	press(m, runes("z"))
	assert.Equal(t, 5, m.ctrl.Page().Len())
}

func TestModelCutPaste(t *testing.T) {
	backend := testutils.NewMemBackend("/d/a", "/d/b", "/e/")
	m := newModel(t, backend, "/d")

	press(m, runes(" "), runes("j"), runes(" "), runes("x"))
	assert.Equal(t, []int{1, 2}, m.ctrl.StagedRows(page.OpCut))

	press(m, runes(":"))
	assert.Equal(t, types.Command, m.Mode())
	press(m, runes("/"), runes("e"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, types.Normal, m.Mode())
	assert.Equal(t, "/e", m.Cwd())

	press(m, runes("p"))
	assert.Equal(t, []string{"move /d/a /e/a", "move /d/b /e/b"}, backend.Calls)
}

func TestModelStagingConflictShowsError(t *testing.T) {
	backend := testutils.NewMemBackend("/d/a", "/e/x")
	m := newModel(t, backend, "/d")

	press(m, runes("X"))
	require.NoError(t, m.ctrl.Navigate("/e"))
	press(m, runes("Y"))
	assert.Contains(t, m.status.Text(), "paste the entries staged in /d")
	assert.Contains(t, testutils.StripANSI(m.View()), "paste the entries staged in /d")
}

func TestModelEditMode(t *testing.T) {
	backend := testutils.NewMemBackend("/d/a", "/d/b")
	m := newModel(t, backend, "/d")

	press(m, runes("i"))
	assert.Equal(t, types.Edit, m.Mode())
	assert.Equal(t, []string{"/d", "a", "b"}, m.surface.Lines())

	press(m, runes("q"))
	assert.Equal(t, types.Edit, m.Mode(), "keys are text while editing")

	m.surface.editor.SetValue("/d\nz\nb")
	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, types.Normal, m.Mode())
	assert.Equal(t, []string{"move /d/a /d/z"}, backend.Calls)
	assert.Contains(t, m.status.Text(), "Renamed 1 entry")
}

func TestModelEditMismatchStaysInEdit(t *testing.T) {
	backend := testutils.NewMemBackend("/d/a", "/d/b")
	m := newModel(t, backend, "/d")

	press(m, runes("i"))
	m.surface.editor.SetValue("/d\na")
	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, types.Edit, m.Mode())
	assert.Contains(t, m.status.Text(), "can not add or delete")

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, types.Normal, m.Mode())
	assert.Empty(t, backend.Calls)
}

func TestModelOpenQueuesProcess(t *testing.T) {
	t.Setenv("VISUAL", "true")
	backend := testutils.NewMemBackend("/d/a.txt")
	m := newModel(t, backend, "/d")

	cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"materialize /d/a.txt"}, backend.Calls)

	m.Update(messages.ExecFinishedMsg{Path: "/d/a.txt", Err: fmt.Errorf("exit status 1")})
	assert.Contains(t, m.status.Text(), "opening /d/a.txt")
}

func TestModelDirtyRefresh(t *testing.T) {
	backend := testutils.NewMemBackend("/d/a")
	m := newModel(t, backend, "/d")

	backend.Add("/d/new")
	m.Update(tea.FocusMsg{})
	assert.Equal(t, 3, m.ctrl.Page().Len())

	w, err := watch.New()
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	m.watcher = w
	backend.Add("/d/newer")
	_, cmd := m.Update(messages.DirtyMsg{Event: watch.DirtyEvent{Dir: "/d"}})
	assert.NotNil(t, cmd, "the model keeps listening")
	assert.Equal(t, 4, m.ctrl.Page().Len())
}

func TestModelHelpToggle(t *testing.T) {
	m := newModel(t, testutils.NewMemBackend("/d/a"), "/d")
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	short := testutils.StripANSI(m.View())

	press(m, runes("?"))
	full := testutils.StripANSI(m.View())
	assert.Greater(t, strings.Count(full, "\n"), strings.Count(short, "\n"))
	assert.Contains(t, full, "force delete")
}

func TestModelQuit(t *testing.T) {
	m := newModel(t, testutils.NewMemBackend("/d/a"), "/d")
	cmd := press(m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
