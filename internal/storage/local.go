package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"dirbuf/internal/errors"
	"dirbuf/internal/log"

	"github.com/charlievieth/fastwalk"
)

// Collision strategies applied when a move or copy target already exists.
const (
	CollisionRename = "rename"
	CollisionSkip   = "skip"
	CollisionFail   = "fail"
)

// Local is the backend for the local filesystem.
type Local struct {
	mu         sync.Mutex
	showHidden bool
	collision  string
}

// NewLocal creates a local backend. The collision strategy decides what a
// copy onto an existing name does; empty means fail.
func NewLocal(showHidden bool, collision string) *Local {
	if collision == "" {
		collision = CollisionFail
	}
	return &Local{showHidden: showHidden, collision: collision}
}

// ToggleShowHidden switches the dot-file filter.
func (l *Local) ToggleShowHidden() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showHidden = !l.showHidden
}

func (l *Local) hidden() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.showHidden
}

// List returns the entries of dir sorted by name.
func (l *Local) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewBackendError("list", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return filterHidden(names, l.hidden()), nil
}

func (l *Local) Classify(path string) Kind {
	return classify(path)
}

func (l *Local) ParentOf(path string) string {
	return filepath.Dir(filepath.Clean(path))
}

func (l *Local) ModTime(path string) (time.Time, error) {
	return modTime(path)
}

func (l *Local) Materialize(string) error {
	return nil
}

func (l *Local) Label(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "" || base == "." {
		return string(filepath.Separator)
	}
	return base
}

// Move renames src to dst, falling back to copy and delete across devices.
func (l *Local) Move(src, dst string) error {
	cleanSrc := filepath.Clean(src)
	cleanDst := filepath.Clean(dst)

	if cleanSrc == cleanDst {
		log.Debug("Source and destination are the same, skipping", src)
		return nil
	}
	if _, err := os.Lstat(cleanSrc); err != nil {
		return errors.NewBackendError("move", src, err)
	}
	if within(cleanSrc, cleanDst) {
		return errors.NewBackendError("move", src, fmt.Errorf("cannot move a directory into itself"))
	}

	// Moves double as renames, so they never pick another name.
	if _, err := os.Lstat(cleanDst); err == nil {
		return errors.NewBackendError("move", src, fmt.Errorf("%s already exists", dst))
	}
	finalDst := cleanDst

	err := os.Rename(cleanSrc, finalDst)
	if errors.Is(err, syscall.EXDEV) {
		log.Debugf("Cross-device move %s -> %s, copying", cleanSrc, finalDst)
		if err = l.copyAny(cleanSrc, finalDst); err == nil {
			err = os.RemoveAll(cleanSrc)
		}
	}
	if err != nil {
		return errors.NewBackendError("move", src, err)
	}

	log.Debugf("Moved %s -> %s", src, finalDst)
	return nil
}

// Copy copies src to dst. Directories are copied recursively.
func (l *Local) Copy(src, dst string) error {
	cleanSrc := filepath.Clean(src)
	cleanDst := filepath.Clean(dst)

	if _, err := os.Lstat(cleanSrc); err != nil {
		return errors.NewBackendError("copy", src, err)
	}
	if cleanSrc != cleanDst && within(cleanSrc, cleanDst) {
		return errors.NewBackendError("copy", src, fmt.Errorf("cannot copy a directory into itself"))
	}

	finalDst, err := l.resolveCollision("copy", cleanSrc, cleanDst)
	if err != nil || finalDst == "" {
		return err
	}
	if err := l.copyAny(cleanSrc, finalDst); err != nil {
		return errors.NewBackendError("copy", src, err)
	}

	log.Debugf("Copied %s -> %s", src, finalDst)
	return nil
}

// Remove deletes a file, link or empty directory.
func (l *Local) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.NewBackendError("remove", path, err)
	}
	return nil
}

// RemoveForced deletes path and everything below it.
func (l *Local) RemoveForced(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return errors.NewBackendError("remove", path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return errors.NewBackendError("remove", path, err)
	}
	return nil
}

// resolveCollision returns the path a copy writes to. An empty path means
// the entry is skipped.
func (l *Local) resolveCollision(op, src, dst string) (string, error) {
	_, err := os.Lstat(dst)
	if os.IsNotExist(err) {
		return dst, nil
	}
	if err != nil {
		return "", errors.NewBackendError(op, dst, err)
	}

	switch l.collision {
	case CollisionSkip:
		log.Infof("Skipping %s, %s already exists", src, dst)
		return "", nil
	case CollisionRename:
		return findUniqueName(dst)
	default:
		return "", errors.NewBackendError(op, src, fmt.Errorf("%s already exists", dst))
	}
}

// findUniqueName adds a counter to the base name until the path is free.
func findUniqueName(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == filepath.Base(path) {
		ext = ""
	}
	base := strings.TrimSuffix(path, ext)

	for counter := 1; counter <= 1000; counter++ {
		candidate := fmt.Sprintf("%s_(%d)%s", base, counter, ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", errors.NewFileError("no free name", path, errors.FileOperationFailed, nil)
}

func (l *Local) copyAny(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	switch {
	case info.IsDir():
		return copyTree(src, dst)
	case info.Mode()&os.ModeSymlink != 0:
		return copySymlink(src, dst)
	default:
		return copyFile(src, dst, info.Mode().Perm())
	}
}

// copyTree walks src in parallel and recreates it under dst. The walk
// callback runs on several goroutines, each writing distinct targets.
func copyTree(src, dst string) error {
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type()&fs.ModeSymlink != 0:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			return copySymlink(path, target)
		default:
			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	return os.Symlink(link, dst)
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
