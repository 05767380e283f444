package types

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings for the application modes.
// It lives in pkg/types so the model and the help view share it.
type KeyMap struct {
	// General
	Help key.Binding
	Quit key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	GotoTop      key.Binding
	GotoBottom   key.Binding
	Open         key.Binding // Enter a directory or open a file
	Parent       key.Binding
	ToggleExpand key.Binding
	ChangeDir    key.Binding // Prompt for a path (:)
	Refresh      key.Binding

	// Picking & staging
	Pick              key.Binding
	Cut               key.Binding
	CutSingle         key.Binding
	Copy              key.Binding
	CopySingle        key.Binding
	Paste             key.Binding
	Delete            key.Binding
	DeleteSingle      key.Binding
	ForceDelete       key.Binding
	ForceDeleteSingle key.Binding

	// Toggles
	ToggleHidden  key.Binding
	TogglePinRoot key.Binding
	YankPath      key.Binding

	// Edit mode
	Edit       key.Binding
	Save       key.Binding
	CancelEdit key.Binding
}

// DefaultKeyMap returns the built-in bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		GotoTop:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		GotoBottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Open:         key.NewBinding(key.WithKeys("l", "right", "enter"), key.WithHelp("l/enter", "open")),
		Parent:       key.NewBinding(key.WithKeys("h", "left", "backspace"), key.WithHelp("h", "parent")),
		ToggleExpand: key.NewBinding(key.WithKeys("z", "tab"), key.WithHelp("z", "expand")),
		ChangeDir:    key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "cd")),
		Refresh:      key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),

		Pick:              key.NewBinding(key.WithKeys(" ", "v"), key.WithHelp("space", "pick")),
		Cut:               key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cut picks")),
		CutSingle:         key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "cut")),
		Copy:              key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy picks")),
		CopySingle:        key.NewBinding(key.WithKeys("Y"), key.WithHelp("Y", "copy")),
		Paste:             key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paste")),
		Delete:            key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete picks")),
		DeleteSingle:      key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),
		ForceDelete:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "force delete picks")),
		ForceDeleteSingle: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "force delete")),

		ToggleHidden:  key.NewBinding(key.WithKeys("."), key.WithHelp(".", "hidden")),
		TogglePinRoot: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pin root")),
		YankPath:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "yank path")),

		Edit:       key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "edit names")),
		Save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		CancelEdit: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// bindings maps command names, as used in the config file, to bindings.
func (k *KeyMap) bindings() map[string]*key.Binding {
	return map[string]*key.Binding{
		"help":                &k.Help,
		"quit":                &k.Quit,
		"up":                  &k.Up,
		"down":                &k.Down,
		"top":                 &k.GotoTop,
		"bottom":              &k.GotoBottom,
		"open":                &k.Open,
		"parent":              &k.Parent,
		"toggle-expand":       &k.ToggleExpand,
		"cd":                  &k.ChangeDir,
		"refresh":             &k.Refresh,
		"pick":                &k.Pick,
		"cut":                 &k.Cut,
		"cut-single":          &k.CutSingle,
		"copy":                &k.Copy,
		"copy-single":         &k.CopySingle,
		"paste":               &k.Paste,
		"delete":              &k.Delete,
		"delete-single":       &k.DeleteSingle,
		"force-delete":        &k.ForceDelete,
		"force-delete-single": &k.ForceDeleteSingle,
		"toggle-hidden":       &k.ToggleHidden,
		"toggle-pin-root":     &k.TogglePinRoot,
		"yank-path":           &k.YankPath,
		"edit":                &k.Edit,
		"save":                &k.Save,
		"cancel-edit":         &k.CancelEdit,
	}
}

// Commands returns the names accepted by Apply, sorted.
func (k *KeyMap) Commands() []string {
	var names []string
	for name := range k.bindings() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply replaces the keys of the named commands. The help text keeps its
// description and shows the first new key.
func (k *KeyMap) Apply(overrides map[string][]string) error {
	bindings := k.bindings()
	for name, keys := range overrides {
		b, ok := bindings[name]
		if !ok {
			return fmt.Errorf("unknown command %q in key overrides", name)
		}
		if len(keys) == 0 {
			continue
		}
		b.SetKeys(keys...)
		b.SetHelp(keys[0], b.Help().Desc)
	}
	return nil
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Parent, k.Pick, k.Paste, k.Edit, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.GotoTop, k.GotoBottom, k.Open, k.Parent, k.ToggleExpand, k.ChangeDir, k.Refresh},
		{k.Pick, k.Cut, k.CutSingle, k.Copy, k.CopySingle, k.Paste, k.YankPath},
		{k.Delete, k.DeleteSingle, k.ForceDelete, k.ForceDeleteSingle},
		{k.Edit, k.Save, k.CancelEdit, k.ToggleHidden, k.TogglePinRoot, k.Help, k.Quit},
	}
}
