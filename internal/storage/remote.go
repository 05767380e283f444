package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dirbuf/internal/errors"
	"dirbuf/internal/log"

	"golang.org/x/sync/singleflight"
)

// Entry is one item of a remote directory listing.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Remote is a provider of remote storage. Paths have the form
// "<remote>:<slash/separated/path>"; "<remote>:" is the remote's top level.
type Remote interface {
	// Remotes returns the names shown at the top of the cache directory.
	Remotes(ctx context.Context) ([]string, error)
	List(ctx context.Context, dir string) ([]Entry, error)
	Download(ctx context.Context, src, dst string) error
	Move(ctx context.Context, src, dst string, isDir bool) error
	Copy(ctx context.Context, src, dst string, isDir bool) error
	Delete(ctx context.Context, path string, isDir bool) error
}

// RemotePath joins a remote name and a slash separated path.
func RemotePath(remote, rel string) string {
	return remote + ":" + strings.TrimPrefix(path.Clean("/"+rel), "/")
}

// SplitRemotePath splits "<remote>:<path>" into its parts.
func SplitRemotePath(p string) (remote, rel string, err error) {
	remote, rel, ok := strings.Cut(p, ":")
	if !ok || remote == "" {
		return "", "", errors.NewFileError("not a remote path", p, errors.InvalidPath, nil)
	}
	rel = strings.Trim(rel, "/")
	return remote, rel, nil
}

// Cached mirrors a Remote under a local directory. Directories are listed
// lazily, once, and the listing is kept until Invalidate. Files appear as
// empty placeholders until Materialize downloads them.
type Cached struct {
	root    string
	remote  Remote
	timeout time.Duration

	mu         sync.Mutex
	showHidden bool
	listings   map[string][]string
	downloaded map[string]bool

	downloads singleflight.Group
}

// NewCached mirrors remote under root.
func NewCached(root string, remote Remote, showHidden bool) (*Cached, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewFileError("failed to create cache directory", root, errors.FileAccessDenied, err)
	}
	return &Cached{
		root:       root,
		remote:     remote,
		timeout:    5 * time.Minute,
		showHidden: showHidden,
		listings:   make(map[string][]string),
		downloaded: make(map[string]bool),
	}, nil
}

// Root returns the mirror directory whose entries are the remotes.
func (c *Cached) Root() string {
	return c.root
}

// Contains reports whether p lies inside the mirror.
func (c *Cached) Contains(p string) bool {
	return within(c.root, filepath.Clean(p))
}

func (c *Cached) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// remotePath translates a mirror path into the remote's notation.
func (c *Cached) remotePath(local string) (string, error) {
	rel, err := filepath.Rel(c.root, filepath.Clean(local))
	if err != nil || rel == "." || !c.Contains(local) {
		return "", errors.NewFileError("not a remote entry", local, errors.InvalidPath, err)
	}
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	if len(parts) == 1 {
		return RemotePath(parts[0], ""), nil
	}
	return RemotePath(parts[0], parts[1]), nil
}

// List returns the remotes at the mirror root and the remote listing below
// it, fetching and mirroring entries the first time a directory is listed.
func (c *Cached) List(dir string) ([]string, error) {
	dir = filepath.Clean(dir)

	c.mu.Lock()
	names, ok := c.listings[dir]
	showHidden := c.showHidden
	c.mu.Unlock()

	if !ok {
		var err error
		if names, err = c.fetch(dir); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.listings[dir] = names
		c.mu.Unlock()
	}

	visible := make([]string, len(names))
	copy(visible, names)
	return filterHidden(visible, showHidden), nil
}

func (c *Cached) fetch(dir string) ([]string, error) {
	ctx, cancel := c.context()
	defer cancel()

	if dir == c.root {
		remotes, err := c.remote.Remotes(ctx)
		if err != nil {
			return nil, errors.NewBackendError("list", dir, err)
		}
		for _, name := range remotes {
			if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
				return nil, errors.NewBackendError("list", dir, err)
			}
		}
		sort.Strings(remotes)
		return remotes, nil
	}

	rp, err := c.remotePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := c.remote.List(ctx, rp)
	if err != nil {
		return nil, errors.NewBackendError("list", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewBackendError("list", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		local := filepath.Join(dir, entry.Name)
		if entry.IsDir {
			err = os.MkdirAll(local, 0755)
		} else {
			err = placeholder(local)
		}
		if err != nil {
			return nil, errors.NewBackendError("list", local, err)
		}
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	log.Debugf("Listed %s: %d entries", rp, len(names))
	return names, nil
}

// placeholder creates an empty file unless something is already there.
func placeholder(p string) error {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// Invalidate forgets the listing of dir so the next List asks the remote.
func (c *Cached) Invalidate(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, filepath.Clean(dir))
}

func (c *Cached) forget(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for dir := range c.listings {
		if within(p, dir) {
			delete(c.listings, dir)
		}
	}
	for file := range c.downloaded {
		if within(p, file) {
			delete(c.downloaded, file)
		}
	}
	delete(c.listings, filepath.Dir(p))
}

func (c *Cached) Classify(p string) Kind {
	return classify(p)
}

// ParentOf refuses to climb above the mirror root.
func (c *Cached) ParentOf(p string) string {
	p = filepath.Clean(p)
	if p == c.root {
		return p
	}
	return filepath.Dir(p)
}

func (c *Cached) ModTime(p string) (time.Time, error) {
	return modTime(p)
}

func (c *Cached) Label(dir string) string {
	rp, err := c.remotePath(dir)
	if err != nil {
		return "remotes"
	}
	return rp
}

func (c *Cached) ToggleShowHidden() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showHidden = !c.showHidden
}

// Materialize downloads the file behind a placeholder. Concurrent requests
// for the same file share one download.
func (c *Cached) Materialize(p string) error {
	p = filepath.Clean(p)
	c.mu.Lock()
	done := c.downloaded[p]
	c.mu.Unlock()
	if done || classify(p) == KindDirectory {
		return nil
	}

	_, err, _ := c.downloads.Do(p, func() (interface{}, error) {
		rp, err := c.remotePath(p)
		if err != nil {
			return nil, err
		}
		ctx, cancel := c.context()
		defer cancel()

		tmp := p + ".part"
		if err := c.remote.Download(ctx, rp, tmp); err != nil {
			os.Remove(tmp)
			return nil, errors.NewBackendError("download", p, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			return nil, errors.NewBackendError("download", p, err)
		}

		c.mu.Lock()
		c.downloaded[p] = true
		c.mu.Unlock()
		log.Debugf("Downloaded %s", rp)
		return nil, nil
	})
	return err
}

// Move moves the remote entry and mirrors the move locally.
func (c *Cached) Move(src, dst string) error {
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	if src == dst {
		return nil
	}
	if _, err := os.Lstat(dst); err == nil {
		return errors.NewBackendError("move", src, fmt.Errorf("%s already exists", dst))
	}
	rsrc, rdst, err := c.pair(src, dst)
	if err != nil {
		return errors.NewBackendError("move", src, err)
	}
	isDir := classify(src) == KindDirectory

	ctx, cancel := c.context()
	defer cancel()
	if err := c.remote.Move(ctx, rsrc, rdst, isDir); err != nil {
		return errors.NewBackendError("move", src, err)
	}

	c.mu.Lock()
	wasDownloaded := c.downloaded[src]
	c.mu.Unlock()
	c.forget(src)
	c.forget(dst)

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err == nil {
		if err := os.Rename(src, dst); err != nil {
			log.Warnf("Mirror rename %s -> %s failed: %v", src, dst, err)
		}
	}
	if wasDownloaded {
		c.mu.Lock()
		c.downloaded[dst] = true
		c.mu.Unlock()
	}
	return nil
}

// Copy copies the remote entry. The copy shows up as a placeholder.
func (c *Cached) Copy(src, dst string) error {
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	if _, err := os.Lstat(dst); err == nil {
		return errors.NewBackendError("copy", src, fmt.Errorf("%s already exists", dst))
	}
	rsrc, rdst, err := c.pair(src, dst)
	if err != nil {
		return errors.NewBackendError("copy", src, err)
	}
	isDir := classify(src) == KindDirectory

	ctx, cancel := c.context()
	defer cancel()
	if err := c.remote.Copy(ctx, rsrc, rdst, isDir); err != nil {
		return errors.NewBackendError("copy", src, err)
	}

	c.forget(dst)
	if isDir {
		err = os.MkdirAll(dst, 0755)
	} else {
		err = placeholder(dst)
	}
	if err != nil {
		log.Warnf("Mirror copy %s -> %s failed: %v", src, dst, err)
	}
	return nil
}

// Remove deletes a remote file or an empty remote directory.
func (c *Cached) Remove(p string) error {
	if classify(p) == KindDirectory {
		names, err := c.List(p)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			return errors.NewBackendError("remove", p, fmt.Errorf("directory not empty"))
		}
	}
	return c.remove(p)
}

// RemoveForced deletes a remote entry and everything below it.
func (c *Cached) RemoveForced(p string) error {
	return c.remove(p)
}

func (c *Cached) remove(p string) error {
	p = filepath.Clean(p)
	rp, err := c.remotePath(p)
	if err != nil {
		return errors.NewBackendError("remove", p, err)
	}
	if _, _, err := c.pair(p, p); err != nil {
		return errors.NewBackendError("remove", p, err)
	}
	isDir := classify(p) == KindDirectory

	ctx, cancel := c.context()
	defer cancel()
	if err := c.remote.Delete(ctx, rp, isDir); err != nil {
		return errors.NewBackendError("remove", p, err)
	}

	c.forget(p)
	if err := os.RemoveAll(p); err != nil {
		log.Warnf("Mirror remove %s failed: %v", p, err)
	}
	return nil
}

// pair translates both ends of a transfer. Remotes themselves, the entries
// of the mirror root, can not be moved, copied or deleted.
func (c *Cached) pair(src, dst string) (string, string, error) {
	if filepath.Dir(src) == c.root || filepath.Dir(dst) == c.root {
		return "", "", fmt.Errorf("remotes can not be modified")
	}
	rsrc, err := c.remotePath(src)
	if err != nil {
		return "", "", err
	}
	rdst, err := c.remotePath(dst)
	if err != nil {
		return "", "", err
	}
	return rsrc, rdst, nil
}
