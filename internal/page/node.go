// Package page models a directory rendered as rows: the synthetic header
// followed by the directory's entries, with expanded subdirectories spliced
// in below their rows.
package page

import (
	"path/filepath"
	"sync/atomic"

	"dirbuf/internal/storage"
)

// Category tags what a row stands for.
type Category int

const (
	Header Category = iota
	File
	Executable
	Symlink
	Directory
)

func categoryOf(kind storage.Kind) Category {
	switch kind {
	case storage.KindDirectory:
		return Directory
	case storage.KindSymlink:
		return Symlink
	case storage.KindExecutable:
		return Executable
	default:
		return File
	}
}

// State is the selection state of a row.
type State int

const (
	Normal State = iota
	Picked
	UnderOp
)

// Op is the pending operation of a row in the UnderOp state.
type Op int

const (
	OpNone Op = iota
	OpCut
	OpCopy
)

// ToggleResult reports which transition TogglePick made.
type ToggleResult int

const (
	ToggleInvalid ToggleResult = iota
	ToggleOn
	ToggleOff
)

// Highlight is the render token of a row.
type Highlight int

const (
	HiHeader Highlight = iota
	HiFile
	HiExecutable
	HiSymlink
	HiDirectory
	HiPicked
	HiCut
	HiCopy
)

var nextID atomic.Uint64

// Node is one row.
type Node struct {
	ID       uint64
	Name     string
	Path     string
	Level    int
	Category Category
	Expanded bool

	state  State
	op     Op
	cursor bool
}

func newNode(name, path string, level int, category Category) *Node {
	return &Node{
		ID:       nextID.Add(1),
		Name:     name,
		Path:     path,
		Level:    level,
		Category: category,
	}
}

func newHeader(dir string) *Node {
	return newNode(dir, dir, 0, Header)
}

func (n *Node) IsHeader() bool { return n.Category == Header }
func (n *Node) IsDir() bool    { return n.Category == Directory }
func (n *Node) State() State   { return n.state }
func (n *Node) Op() Op         { return n.op }
func (n *Node) Cursor() bool   { return n.cursor }

// Highlight derives the token from the state first, then the category.
func (n *Node) Highlight() Highlight {
	switch {
	case n.state == Picked:
		return HiPicked
	case n.state == UnderOp && n.op == OpCut:
		return HiCut
	case n.state == UnderOp && n.op == OpCopy:
		return HiCopy
	}
	switch n.Category {
	case Header:
		return HiHeader
	case Directory:
		return HiDirectory
	case Symlink:
		return HiSymlink
	case Executable:
		return HiExecutable
	default:
		return HiFile
	}
}

// TogglePick flips Normal and Picked. Headers and rows under an operation
// do not change.
func (n *Node) TogglePick() ToggleResult {
	switch {
	case n.IsHeader() || n.state == UnderOp:
		return ToggleInvalid
	case n.state == Picked:
		n.state = Normal
		return ToggleOff
	default:
		n.state = Picked
		return ToggleOn
	}
}

// Stage moves a picked row under op.
func (n *Node) Stage(op Op) bool {
	if n.state != Picked || op == OpNone {
		return false
	}
	n.state = UnderOp
	n.op = op
	return true
}

// Reset returns the row to Normal.
func (n *Node) Reset() {
	n.state = Normal
	n.op = OpNone
}

// Rename sets a new name in the same parent directory and returns the
// previous path.
func (n *Node) Rename(name string) string {
	old := n.Path
	n.Name = name
	n.Path = filepath.Join(filepath.Dir(old), name)
	return old
}
