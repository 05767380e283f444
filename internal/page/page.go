package page

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dirbuf/internal/errors"
	"dirbuf/internal/log"
	"dirbuf/internal/storage"

	"github.com/gobwas/glob"
)

// Matcher hides entries whose name matches any of its globs.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.NewConfigError("invalid ignore pattern", p, errors.InvalidConfig, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether name is ignored. A nil Matcher ignores nothing.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Options tune how a page is listed.
type Options struct {
	Ignore *Matcher
	// Focus names the row the cursor starts on, if present.
	Focus string
}

// Line is a row as handed to the display.
type Line struct {
	Name      string
	Path      string
	Level     int
	Category  Category
	Expanded  bool
	Highlight Highlight
	Cursor    bool
}

// String renders the row as indented plain text.
func (l Line) String() string {
	return strings.Repeat("  ", l.Level) + l.Name
}

// Page holds the rows of one directory.
type Page struct {
	Dir string

	backend storage.Backend
	ignore  *Matcher
	nodes   []*Node
	cursor  int
	mtime   time.Time
}

// List reads dir through backend and builds its page.
func List(dir string, backend storage.Backend, opts Options) (*Page, error) {
	p := &Page{Dir: dir, backend: backend, ignore: opts.Ignore}

	children, err := p.listChildren(dir, 0)
	if err != nil {
		return nil, err
	}
	p.nodes = append([]*Node{newHeader(dir)}, children...)

	if mt, err := backend.ModTime(dir); err == nil {
		p.mtime = mt
	}

	p.cursor = p.initialCursor(opts.Focus)
	p.nodes[p.cursor].cursor = true
	return p, nil
}

func (p *Page) listChildren(dir string, level int) ([]*Node, error) {
	names, err := p.backend.List(dir)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(names))
	for _, name := range names {
		if p.ignore.Match(name) {
			continue
		}
		path := filepath.Join(dir, name)
		nodes = append(nodes, newNode(name, path, level, categoryOf(p.backend.Classify(path))))
	}
	return nodes, nil
}

func (p *Page) initialCursor(focus string) int {
	if focus != "" {
		for i, n := range p.nodes {
			if i > 0 && n.Level == 0 && n.Name == focus {
				return i
			}
		}
	}
	if len(p.nodes) > 1 {
		return 1
	}
	return 0
}

// Len returns the number of rows, header included.
func (p *Page) Len() int { return len(p.nodes) }

// Node returns the node at row, or nil when out of range.
func (p *Page) Node(row int) *Node {
	if row < 0 || row >= len(p.nodes) {
		return nil
	}
	return p.nodes[row]
}

// Nodes returns the rows. The slice must not be modified.
func (p *Page) Nodes() []*Node { return p.nodes }

// Row returns the row index of n, or -1 when n is not on this page.
func (p *Page) Row(n *Node) int {
	for i, node := range p.nodes {
		if node == n {
			return i
		}
	}
	return -1
}

func (p *Page) Cursor() int { return p.cursor }

// Current returns the node under the cursor.
func (p *Page) Current() *Node { return p.nodes[p.cursor] }

func (p *Page) ModTime() time.Time { return p.mtime }

// SetCursor moves the cursor to row and returns the rows whose rendering
// changed: none, or the old and the new row.
func (p *Page) SetCursor(row int) []int {
	if row == p.cursor || row < 0 || row >= len(p.nodes) {
		return nil
	}
	old := p.cursor
	p.nodes[old].cursor = false
	p.nodes[row].cursor = true
	p.cursor = row
	return []int{old, row}
}

// blockEnd returns the index after the rows nested below row.
func (p *Page) blockEnd(row int) int {
	level := p.nodes[row].Level
	end := row + 1
	for end < len(p.nodes) && p.nodes[end].Level > level {
		end++
	}
	return end
}

// ToggleExpand expands or collapses the directory at row. It reports
// whether the rows changed.
func (p *Page) ToggleExpand(row int) (bool, error) {
	n := p.Node(row)
	if n == nil || !n.IsDir() {
		return false, nil
	}

	if n.Expanded {
		end := p.blockEnd(row)
		removed := end - row - 1
		p.nodes = append(p.nodes[:row+1], p.nodes[end:]...)
		n.Expanded = false
		switch {
		case p.cursor >= end:
			p.cursor -= removed
		case p.cursor > row:
			p.cursor = row
			n.cursor = true
		}
		return removed > 0, nil
	}

	children, err := p.listChildren(n.Path, n.Level+1)
	if err != nil {
		return false, err
	}
	if len(children) == 0 {
		return false, nil
	}

	nodes := make([]*Node, 0, len(p.nodes)+len(children))
	nodes = append(nodes, p.nodes[:row+1]...)
	nodes = append(nodes, children...)
	nodes = append(nodes, p.nodes[row+1:]...)
	p.nodes = nodes
	n.Expanded = true
	if p.cursor > row {
		p.cursor += len(children)
	}
	return true, nil
}

// Reconcile renames every row whose edited text differs from its name.
// lines holds one entry per row, header included. It returns how many rows
// were renamed.
func (p *Page) Reconcile(lines []string) (int, error) {
	if len(lines) != len(p.nodes) {
		return 0, errors.NewRowCountMismatch(len(p.nodes), len(lines))
	}

	var errs []error
	renamed := 0
	for i := 1; i < len(p.nodes); i++ {
		n := p.nodes[i]
		name := strings.TrimSpace(lines[i])
		if name == n.Name {
			continue
		}
		if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
			errs = append(errs, errors.NewBackendError("rename", n.Path, fmt.Errorf("invalid name %q", name)))
			continue
		}

		oldName := n.Name
		oldPath := n.Rename(name)
		if err := p.backend.Move(oldPath, n.Path); err != nil {
			n.Rename(oldName)
			errs = append(errs, err)
			continue
		}
		log.Debugf("Renamed %s -> %s", oldPath, n.Path)
		renamed++

		if n.Expanded {
			p.rebase(i, oldPath, n.Path)
		}
	}
	return renamed, errors.Join(errs...)
}

// rebase rewrites the paths nested below row after its directory moved.
func (p *Page) rebase(row int, oldPath, newPath string) {
	end := p.blockEnd(row)
	for _, child := range p.nodes[row+1 : end] {
		rel, err := filepath.Rel(oldPath, child.Path)
		if err == nil {
			child.Path = filepath.Join(newPath, rel)
		}
	}
}

// Stale reports whether the directory changed since it was listed. A
// directory that can no longer be read counts as changed.
func (p *Page) Stale() bool {
	mt, err := p.backend.ModTime(p.Dir)
	if err != nil {
		return true
	}
	return mt.After(p.mtime)
}

// Line returns the render row at row.
func (p *Page) Line(row int) Line {
	n := p.nodes[row]
	return Line{
		Name:      n.Name,
		Path:      n.Path,
		Level:     n.Level,
		Category:  n.Category,
		Expanded:  n.Expanded,
		Highlight: n.Highlight(),
		Cursor:    n.cursor,
	}
}

// Lines returns every render row.
func (p *Page) Lines() []Line {
	lines := make([]Line, len(p.nodes))
	for i := range p.nodes {
		lines[i] = p.Line(i)
	}
	return lines
}

// PlainLines returns the indented names shown while editing, one per row.
func (p *Page) PlainLines() []string {
	lines := make([]string, len(p.nodes))
	for i := range p.nodes {
		lines[i] = p.Line(i).String()
	}
	return lines
}
