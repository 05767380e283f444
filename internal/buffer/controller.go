// Package buffer drives one directory browsing session: it caches a page
// per visited directory, tracks picked and staged rows, and applies cut,
// copy, paste, delete and rename through a storage backend.
package buffer

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dirbuf/internal/errors"
	"dirbuf/internal/log"
	"dirbuf/internal/page"
	"dirbuf/internal/storage"

	"github.com/google/uuid"
)

// Options configure a Controller.
type Options struct {
	Ignore *page.Matcher
	Opener Opener
	// Labels shares view titles between controllers; nil uses a private
	// registry.
	Labels *Labels
	// Clipboard receives yanked paths.
	Clipboard func(text string) error
}

// Controller owns the pages and staging state of one session. Its methods
// are not safe for concurrent use; the display calls them from one loop.
type Controller struct {
	id      string
	backend storage.Backend
	surface Surface
	opener  Opener
	ignore  *page.Matcher
	labels  *Labels
	clip    func(string) error
	logger  *log.Logger

	pages      map[string]*page.Page
	cwd        string
	pinnedRoot string

	picked      []*page.Node
	pendingCut  []*page.Node
	pendingCopy []*page.Node
	cutPaths    []string
	copyPaths   []string
	source      string

	editing   bool
	rendering bool
}

// New opens dir in a new session.
func New(dir string, backend storage.Backend, surface Surface, opts Options) (*Controller, error) {
	id := uuid.NewString()
	c := &Controller{
		id:      id,
		backend: backend,
		surface: surface,
		opener:  opts.Opener,
		ignore:  opts.Ignore,
		labels:  opts.Labels,
		clip:    opts.Clipboard,
		logger:  log.LogWithFields(log.F("session", id)),
		pages:   make(map[string]*page.Page),
	}
	if c.labels == nil {
		c.labels = NewLabels()
	}

	if err := c.navigate(filepath.Clean(dir), false); err != nil {
		return nil, err
	}
	c.logger.Infof("Session opened in %s", c.cwd)
	return c, nil
}

// Close releases the view title.
func (c *Controller) Close() {
	c.labels.Release(c.id)
}

func (c *Controller) ID() string          { return c.id }
func (c *Controller) Cwd() string         { return c.cwd }
func (c *Controller) PinnedRoot() string  { return c.pinnedRoot }
func (c *Controller) Editing() bool       { return c.editing }
func (c *Controller) Source() string      { return c.source }
func (c *Controller) CutPaths() []string  { return c.cutPaths }
func (c *Controller) CopyPaths() []string { return c.copyPaths }

// Page returns the current page.
func (c *Controller) Page() *page.Page { return c.pages[c.cwd] }

// Dirs returns the directories with a cached page.
func (c *Controller) Dirs() []string {
	dirs := make([]string, 0, len(c.pages))
	for dir := range c.pages {
		dirs = append(dirs, dir)
	}
	return dirs
}

func (c *Controller) rows(nodes []*page.Node) []int {
	p := c.Page()
	var rows []int
	for _, n := range nodes {
		if row := p.Row(n); row >= 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// PickedRows returns the current rows of the picked entries.
func (c *Controller) PickedRows() []int { return c.rows(c.picked) }

// StagedRows returns the current rows staged for op and not yet resolved.
func (c *Controller) StagedRows(op page.Op) []int {
	if op == page.OpCut {
		return c.rows(c.pendingCut)
	}
	return c.rows(c.pendingCopy)
}

// fail reports err to the user and the log.
func (c *Controller) fail(err error, msg string) error {
	c.logger.WithError(err).Warn(msg)
	c.surface.Error(err)
	return err
}

func (c *Controller) render() {
	p := c.Page()
	if p == nil {
		return
	}
	c.rendering = true
	defer func() { c.rendering = false }()

	c.surface.SetLines(p.Lines())
	c.surface.SetCursor(p.Cursor())
	c.surface.SetModifiable(false)
}

func (c *Controller) renderRows(rows ...int) {
	p := c.Page()
	for _, row := range rows {
		if row >= 0 && row < p.Len() {
			c.surface.SetLine(row, p.Line(row))
		}
	}
}

func (c *Controller) rename() {
	c.surface.Rename(c.labels.Claim(c.id, c.backend.Label(c.cwd)))
}

// Navigate shows dir. Targets that are not directories are refused
// without a message.
func (c *Controller) Navigate(dir string) error {
	return c.navigate(filepath.Clean(dir), false)
}

func (c *Controller) navigate(dir string, fromChild bool) error {
	if c.backend.Classify(dir) != storage.KindDirectory {
		return errors.NewNotADirectory(dir)
	}
	c.Finalize()

	if p, ok := c.pages[dir]; ok && p.Stale() {
		delete(c.pages, dir)
	}
	if _, ok := c.pages[dir]; !ok {
		opts := page.Options{Ignore: c.ignore}
		if fromChild && c.cwd != "" {
			opts.Focus = filepath.Base(c.cwd)
		}
		p, err := page.List(dir, c.backend, opts)
		if err != nil {
			return c.fail(err, "listing failed")
		}
		c.pages[dir] = p
	} else if fromChild && c.cwd != "" {
		p := c.pages[dir]
		child := filepath.Base(c.cwd)
		for i, n := range p.Nodes() {
			if i > 0 && n.Level == 0 && n.Name == child {
				p.SetCursor(i)
				break
			}
		}
	}

	c.cwd = dir
	c.render()
	c.rename()
	c.logger.Debugf("Showing %s", dir)
	return nil
}

// OnCursorMoved follows the display's cursor.
func (c *Controller) OnCursorMoved(row int) {
	if c.editing || c.rendering {
		return
	}
	if p := c.Page(); p != nil {
		c.renderRows(p.SetCursor(row)...)
	}
}

// Open enters a directory row or opens a file row.
func (c *Controller) Open() error {
	n := c.Page().Current()
	if n.IsHeader() {
		return nil
	}
	if n.IsDir() {
		return c.Navigate(n.Path)
	}

	if err := c.backend.Materialize(n.Path); err != nil {
		if errors.IsFileNotFound(err) {
			c.relistCurrent()
			c.render()
		}
		return c.fail(err, "download failed")
	}
	if c.opener != nil {
		if command, ok := c.opener.Resolve(n.Path); ok {
			c.logger.Debugf("Opening %s with %s", n.Path, command)
			c.surface.Spawn(command, n.Path)
			return nil
		}
	}
	c.surface.Open(n.Path)
	return nil
}

// ToggleExpand expands or collapses the directory under the cursor.
func (c *Controller) ToggleExpand() error {
	p := c.Page()
	changed, err := p.ToggleExpand(p.Cursor())
	if err != nil {
		return c.fail(err, "expand failed")
	}
	if changed {
		c.dropHidden()
		c.render()
	}
	return nil
}

// dropHidden unpicks entries a collapse removed from the page. Staged
// entries stay staged; Finalize resolves each path once.
func (c *Controller) dropHidden() {
	p := c.Page()
	kept := c.picked[:0]
	for _, n := range c.picked {
		if p.Row(n) >= 0 {
			kept = append(kept, n)
			continue
		}
		n.Reset()
	}
	c.picked = kept
}

// Parent shows the parent directory with the cursor on the directory just
// left. It does nothing at the pinned root or the backend's top.
func (c *Controller) Parent() error {
	if c.pinnedRoot != "" && c.cwd == c.pinnedRoot {
		return nil
	}
	parent := c.backend.ParentOf(c.cwd)
	if parent == c.cwd {
		return nil
	}
	return c.navigate(parent, true)
}

// TogglePick toggles the row under the cursor.
func (c *Controller) TogglePick() {
	c.PickRow(c.Page().Cursor())
}

// PickRow toggles row.
func (c *Controller) PickRow(row int) {
	n := c.Page().Node(row)
	if n == nil {
		return
	}
	switch n.TogglePick() {
	case page.ToggleOn:
		c.picked = append(c.picked, n)
	case page.ToggleOff:
		c.picked = removeNode(c.picked, n)
	default:
		return
	}
	c.renderRows(row)
}

func removeNode(nodes []*page.Node, n *page.Node) []*page.Node {
	for i, node := range nodes {
		if node == n {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}

// checkStaging rejects staging while another directory's set is waiting.
func (c *Controller) checkStaging() error {
	if c.source != "" && c.source != c.cwd {
		return c.fail(errors.NewStagingConflict(c.source), "staging refused")
	}
	return nil
}

func (c *Controller) stage(op page.Op) error {
	if err := c.checkStaging(); err != nil {
		return err
	}

	var staged []*page.Node
	for _, n := range c.picked {
		if n.Stage(op) {
			staged = append(staged, n)
		}
	}
	if op == page.OpCut {
		c.pendingCut = append(c.pendingCut, staged...)
	} else {
		c.pendingCopy = append(c.pendingCopy, staged...)
	}
	c.picked = nil
	c.renderRows(c.rows(staged)...)
	return nil
}

// pickCurrent picks the cursor row unless it is the header or already
// picked. It reports false for the header.
func (c *Controller) pickCurrent() bool {
	n := c.Page().Current()
	if n.IsHeader() {
		return false
	}
	if n.State() == page.Normal {
		c.TogglePick()
	}
	return true
}

func (c *Controller) stageSingle(op page.Op) error {
	if err := c.checkStaging(); err != nil {
		return err
	}
	if !c.pickCurrent() {
		return nil
	}
	return c.stage(op)
}

// Cut stages the picked rows for moving.
func (c *Controller) Cut() error { return c.stage(page.OpCut) }

// Copy stages the picked rows for copying.
func (c *Controller) Copy() error { return c.stage(page.OpCopy) }

// CutSingle picks the cursor row and stages the picks for moving.
func (c *Controller) CutSingle() error { return c.stageSingle(page.OpCut) }

// CopySingle picks the cursor row and stages the picks for copying.
func (c *Controller) CopySingle() error { return c.stageSingle(page.OpCopy) }

// Finalize clears picks and resolves staged rows to paths. Staged rows keep
// their highlight; the paths are what paste acts on.
func (c *Controller) Finalize() {
	p := c.Page()
	if p == nil {
		return
	}

	picked := c.rows(c.picked)
	for _, n := range c.picked {
		n.Reset()
	}
	c.picked = nil

	resolved := len(c.pendingCut) + len(c.pendingCopy)
	c.cutPaths = appendPaths(c.cutPaths, c.pendingCut)
	c.copyPaths = appendPaths(c.copyPaths, c.pendingCopy)
	c.pendingCut, c.pendingCopy = nil, nil
	if resolved > 0 {
		c.source = c.cwd
	}
	c.renderRows(picked...)
}

// appendPaths adds the paths of nodes not already in paths. A collapsed and
// re-expanded directory yields new nodes for the same entries.
func appendPaths(paths []string, nodes []*page.Node) []string {
	for _, n := range nodes {
		if !slices.Contains(paths, n.Path) {
			paths = append(paths, n.Path)
		}
	}
	return paths
}

// Paste moves the cut paths and copies the copy paths into the current
// directory. Every entry is attempted; failures are reported together.
func (c *Controller) Paste() error {
	if len(c.pendingCut) > 0 || len(c.pendingCopy) > 0 {
		c.Finalize()
	}

	var errs []error
	for _, src := range c.cutPaths {
		if err := c.backend.Move(src, filepath.Join(c.cwd, filepath.Base(src))); err != nil {
			errs = append(errs, err)
		}
	}
	for _, src := range c.copyPaths {
		if err := c.backend.Copy(src, filepath.Join(c.cwd, filepath.Base(src))); err != nil {
			errs = append(errs, err)
		}
	}
	moved, copied := len(c.cutPaths), len(c.copyPaths)

	source := c.source
	c.cutPaths, c.copyPaths, c.source = nil, nil, ""
	if source != "" && source != c.cwd {
		c.relist(source)
	}
	c.relistCurrent()
	c.render()

	if err := errors.Join(errs...); err != nil {
		return c.fail(err, "paste failed")
	}
	if moved+copied > 0 {
		c.logger.Infof("Pasted %d moved and %d copied entries into %s", moved, copied, c.cwd)
	}
	return nil
}

// relist rebuilds the cached page of dir and drops it when dir is gone.
func (c *Controller) relist(dir string) {
	if _, ok := c.pages[dir]; !ok {
		return
	}
	p, err := page.List(dir, c.backend, page.Options{Ignore: c.ignore})
	if err != nil {
		delete(c.pages, dir)
		c.logger.WithError(err).Debug("dropped page")
		return
	}
	c.pages[dir] = p
}

// relistCurrent rebuilds the current page keeping the cursor on the same
// name. Picks are cleared; staged rows are resolved to paths first.
func (c *Controller) relistCurrent() {
	old := c.Page()
	if old == nil {
		return
	}
	if len(c.pendingCut) > 0 || len(c.pendingCopy) > 0 {
		c.Finalize()
	}
	c.picked = nil

	opts := page.Options{Ignore: c.ignore}
	if cur := old.Current(); !cur.IsHeader() && cur.Level == 0 {
		opts.Focus = cur.Name
	}
	p, err := page.List(c.cwd, c.backend, opts)
	if err != nil {
		c.logger.WithError(err).Warn("relisting failed")
		return
	}
	c.pages[c.cwd] = p
}

func (c *Controller) remove(force bool) error {
	var errs []error
	for _, n := range c.picked {
		var err error
		if force {
			err = c.backend.RemoveForced(n.Path)
		} else {
			err = c.backend.Remove(n.Path)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	c.picked = nil
	c.relistCurrent()
	c.render()

	if err := errors.Join(errs...); err != nil {
		return c.fail(err, "delete failed")
	}
	return nil
}

// Delete removes the picked entries; directories must be empty.
func (c *Controller) Delete() error { return c.remove(false) }

// ForceDelete removes the picked entries recursively.
func (c *Controller) ForceDelete() error { return c.remove(true) }

// DeleteSingle picks the cursor row and deletes the picks.
func (c *Controller) DeleteSingle() error {
	if !c.pickCurrent() {
		return nil
	}
	return c.remove(false)
}

// ForceDeleteSingle picks the cursor row and force deletes the picks.
func (c *Controller) ForceDeleteSingle() error {
	if !c.pickCurrent() {
		return nil
	}
	return c.remove(true)
}

// EnterEdit shows plain names so rows can be renamed by editing them.
func (c *Controller) EnterEdit() {
	if c.editing {
		return
	}
	c.editing = true
	c.surface.SetPlain(c.Page().PlainLines())
	c.surface.SetModifiable(true)
	c.surface.Notify("Editing: rename entries, then save")
}

// SaveEdit renames every edited row. When rows were added or removed the
// text stays as typed and edit mode continues.
func (c *Controller) SaveEdit() error {
	if !c.editing {
		return nil
	}
	renamed, err := c.Page().Reconcile(c.surface.Lines())
	if errors.IsRowCountMismatch(err) {
		return c.fail(err, "edit rejected")
	}

	c.editing = false
	c.render()
	if err != nil {
		return c.fail(err, "rename failed")
	}
	if renamed > 0 {
		c.surface.Notify(fmt.Sprintf("Renamed %d %s", renamed, plural(renamed, "entry", "entries")))
	}
	return nil
}

// CancelEdit leaves edit mode without renaming.
func (c *Controller) CancelEdit() {
	if !c.editing {
		return
	}
	c.editing = false
	c.render()
}

// RefreshDirty relists every cached page whose directory changed. The page
// being edited is left alone.
func (c *Controller) RefreshDirty() {
	current := false
	for dir, p := range c.pages {
		if !p.Stale() {
			continue
		}
		if dir == c.cwd {
			if !c.editing {
				current = true
			}
			continue
		}
		c.relist(dir)
	}
	if current {
		c.relistCurrent()
		c.render()
	}
}

// Refresh relists the current page.
func (c *Controller) Refresh() {
	if c.editing {
		return
	}
	c.relistCurrent()
	c.render()
}

// TogglePinRoot pins the current directory as the top for parent
// navigation, or unpins it.
func (c *Controller) TogglePinRoot() {
	if c.pinnedRoot != "" {
		c.pinnedRoot = ""
		c.surface.Notify("Root unpinned")
		return
	}
	c.pinnedRoot = c.cwd
	c.surface.Notify("Pinned root: " + c.cwd)
}

// ToggleShowHidden flips the hidden entry filter and relists.
func (c *Controller) ToggleShowHidden() {
	c.Finalize()
	c.backend.ToggleShowHidden()
	current := c.Page()
	c.pages = map[string]*page.Page{c.cwd: current}
	c.relistCurrent()
	c.render()
}

// ChangeDirectory navigates to path, which may be relative to the current
// directory or start with ~.
func (c *Controller) ChangeDirectory(path string) error {
	path = strings.TrimSpace(path)
	if path == "" || path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.cwd, path)
	}
	if err := c.Navigate(path); err != nil {
		if errors.IsNotADirectory(err) {
			return c.fail(err, "cd refused")
		}
		return err
	}
	return nil
}

// YankPath copies the path under the cursor to the clipboard.
func (c *Controller) YankPath() error {
	path := c.Page().Current().Path
	if c.clip == nil {
		return nil
	}
	if err := c.clip(path); err != nil {
		return c.fail(errors.Wrap(err, "clipboard"), "yank failed")
	}
	c.surface.Notify("Yanked " + path)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
