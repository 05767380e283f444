// Package storage provides the filesystems a directory buffer can browse:
// the local filesystem and remote storage mirrored under a cache directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dirbuf/internal/errors"
)

// Kind classifies a directory entry.
type Kind int

const (
	KindFile Kind = iota
	KindExecutable
	KindSymlink
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindExecutable:
		return "executable"
	case KindSymlink:
		return "symlink"
	case KindDirectory:
		return "directory"
	default:
		return "file"
	}
}

// Backend is the storage capability consumed by pages and the buffer
// controller. Paths are absolute local paths; a cached remote maps them onto
// its mirror directory.
type Backend interface {
	// List returns the entry names of dir in display order.
	List(dir string) ([]string, error)
	Classify(path string) Kind
	Move(src, dst string) error
	Copy(src, dst string) error
	// Remove deletes files, links and empty directories.
	Remove(path string) error
	RemoveForced(path string) error
	ParentOf(path string) string
	ModTime(path string) (time.Time, error)
	// Materialize makes sure path has local content before it is opened.
	Materialize(path string) error
	// Label names dir for display in the view title.
	Label(dir string) string
	ToggleShowHidden()
}

// classify follows symlinks for directories, so a link to a directory can be
// entered like one.
func classify(path string) Kind {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return KindDirectory
	}
	info, err := os.Lstat(path)
	if err != nil {
		return KindFile
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return KindSymlink
	}
	if info.Mode().Perm()&0111 != 0 {
		return KindExecutable
	}
	return KindFile
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func filterHidden(names []string, showHidden bool) []string {
	if showHidden {
		return names
	}
	visible := names[:0]
	for _, name := range names {
		if !strings.HasPrefix(name, ".") {
			visible = append(visible, name)
		}
	}
	return visible
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Router picks the cached remote backend for paths inside its mirror and the
// local backend for everything else, so one buffer can move between both.
type Router struct {
	Local  *Local
	Remote *Cached
}

// NewRouter returns a router; remote may be nil.
func NewRouter(local *Local, remote *Cached) *Router {
	return &Router{Local: local, Remote: remote}
}

// For returns the backend that owns path.
func (r *Router) For(path string) Backend {
	if r.Remote != nil && r.Remote.Contains(path) {
		return r.Remote
	}
	return r.Local
}

func (r *Router) List(dir string) ([]string, error) { return r.For(dir).List(dir) }
func (r *Router) Classify(path string) Kind         { return r.For(path).Classify(path) }
func (r *Router) Remove(path string) error          { return r.For(path).Remove(path) }
func (r *Router) RemoveForced(path string) error    { return r.For(path).RemoveForced(path) }
func (r *Router) ParentOf(path string) string       { return r.For(path).ParentOf(path) }
func (r *Router) Materialize(path string) error     { return r.For(path).Materialize(path) }
func (r *Router) Label(dir string) string           { return r.For(dir).Label(dir) }

func (r *Router) ModTime(path string) (time.Time, error) {
	return r.For(path).ModTime(path)
}

func (r *Router) Move(src, dst string) error {
	b, err := r.pair("move", src, dst)
	if err != nil {
		return err
	}
	return b.Move(src, dst)
}

func (r *Router) Copy(src, dst string) error {
	b, err := r.pair("copy", src, dst)
	if err != nil {
		return err
	}
	return b.Copy(src, dst)
}

func (r *Router) ToggleShowHidden() {
	r.Local.ToggleShowHidden()
	if r.Remote != nil {
		r.Remote.ToggleShowHidden()
	}
}

// pair refuses transfers between the local filesystem and the remote mirror.
func (r *Router) pair(op, src, dst string) (Backend, error) {
	b := r.For(src)
	if b != r.For(dst) {
		return nil, errors.NewBackendError(op, src, fmt.Errorf("cannot transfer between local and remote storage (%s)", dst))
	}
	return b, nil
}
