package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"dirbuf/internal/errors"
	"dirbuf/internal/storage"

	"github.com/stretchr/testify/require"
)

// CreateTree creates files below dir. Names ending in "/" become
// directories; parent directories are created as needed.
func CreateTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	var result []rune
	inEscape := false
	for _, r := range str {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		result = append(result, r)
	}
	return string(result)
}

// MemBackend is an in-memory storage.Backend. Every mutation is recorded in
// Calls and bumps the modification time of the directories it touches.
type MemBackend struct {
	mu         sync.Mutex
	kinds      map[string]storage.Kind
	mtimes     map[string]time.Time
	clock      time.Time
	showHidden bool

	// Calls records "move src dst", "copy src dst", "remove path",
	// "remove! path" and "materialize path".
	Calls []string
	// Fail makes any operation on the given source path fail.
	Fail map[string]error
}

// NewMemBackend creates a backend holding paths. Paths ending in "/" are
// directories; every parent is a directory.
func NewMemBackend(paths ...string) *MemBackend {
	m := &MemBackend{
		kinds:  map[string]storage.Kind{"/": storage.KindDirectory},
		mtimes: make(map[string]time.Time),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Fail:   make(map[string]error),
	}
	m.Add(paths...)
	return m
}

// Add creates paths as NewMemBackend does.
func (m *MemBackend) Add(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		kind := storage.KindFile
		if strings.HasSuffix(p, "/") {
			kind = storage.KindDirectory
		}
		p = filepath.Clean(p)
		m.kinds[p] = kind
		for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
			m.kinds[dir] = storage.KindDirectory
			if dir == filepath.Dir(dir) {
				break
			}
		}
		m.touch(filepath.Dir(p))
	}
}

// SetKind overrides the classification of path.
func (m *MemBackend) SetKind(path string, kind storage.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds[filepath.Clean(path)] = kind
}

// Exists reports whether path is present.
func (m *MemBackend) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.kinds[filepath.Clean(path)]
	return ok
}

// Touch marks dir as modified, as an external program would.
func (m *MemBackend) Touch(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(filepath.Clean(dir))
}

// Reset forgets the recorded calls.
func (m *MemBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

func (m *MemBackend) touch(dir string) {
	m.clock = m.clock.Add(time.Second)
	m.mtimes[dir] = m.clock
}

func (m *MemBackend) record(format string, args ...interface{}) {
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

func (m *MemBackend) children(dir string) []string {
	var names []string
	for p := range m.kinds {
		if p != dir && filepath.Dir(p) == dir {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names
}

func (m *MemBackend) List(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = filepath.Clean(dir)
	if m.kinds[dir] != storage.KindDirectory {
		return nil, errors.NewBackendError("list", dir, os.ErrNotExist)
	}
	var names []string
	for _, name := range m.children(dir) {
		if m.showHidden || !strings.HasPrefix(name, ".") {
			names = append(names, name)
		}
	}
	return names, nil
}

func (m *MemBackend) Classify(path string) storage.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kinds[filepath.Clean(path)]
}

func (m *MemBackend) check(op, src string) error {
	if err, ok := m.Fail[src]; ok {
		return errors.NewBackendError(op, src, err)
	}
	if _, ok := m.kinds[src]; !ok {
		return errors.NewBackendError(op, src, os.ErrNotExist)
	}
	return nil
}

func (m *MemBackend) transfer(op, src, dst string, keep bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	m.record("%s %s %s", op, src, dst)
	if err := m.check(op, src); err != nil {
		return err
	}
	if _, ok := m.kinds[dst]; ok {
		return errors.NewBackendError(op, src, os.ErrExist)
	}
	for p, kind := range m.kinds {
		if p == src || strings.HasPrefix(p, src+string(filepath.Separator)) {
			m.kinds[dst+strings.TrimPrefix(p, src)] = kind
			if !keep {
				delete(m.kinds, p)
			}
		}
	}
	if !keep {
		m.touch(filepath.Dir(src))
	}
	m.touch(filepath.Dir(dst))
	return nil
}

func (m *MemBackend) Move(src, dst string) error { return m.transfer("move", src, dst, false) }
func (m *MemBackend) Copy(src, dst string) error { return m.transfer("copy", src, dst, true) }

func (m *MemBackend) remove(op, path string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.record("%s %s", op, path)
	if err := m.check("remove", path); err != nil {
		return err
	}
	if !force && len(m.children(path)) > 0 {
		return errors.NewBackendError("remove", path, fmt.Errorf("directory not empty"))
	}
	for p := range m.kinds {
		if p == path || strings.HasPrefix(p, path+string(filepath.Separator)) {
			delete(m.kinds, p)
			delete(m.mtimes, p)
		}
	}
	m.touch(filepath.Dir(path))
	return nil
}

func (m *MemBackend) Remove(path string) error       { return m.remove("remove", path, false) }
func (m *MemBackend) RemoveForced(path string) error { return m.remove("remove!", path, true) }

func (m *MemBackend) ParentOf(path string) string {
	return filepath.Dir(filepath.Clean(path))
}

func (m *MemBackend) ModTime(path string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if _, ok := m.kinds[path]; !ok {
		return time.Time{}, errors.NewBackendError("stat", path, os.ErrNotExist)
	}
	return m.mtimes[path], nil
}

func (m *MemBackend) Materialize(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("materialize %s", path)
	return m.check("download", filepath.Clean(path))
}

func (m *MemBackend) Label(dir string) string {
	return filepath.Base(dir)
}

func (m *MemBackend) ToggleShowHidden() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showHidden = !m.showHidden
}
