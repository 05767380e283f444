// Package watch reports directories whose contents changed on disk so the
// pages listing them can be refreshed.
package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"dirbuf/internal/log"

	"github.com/fsnotify/fsnotify"
)

// DirtyEvent names a watched directory whose entries changed.
type DirtyEvent struct {
	Dir       string
	Timestamp time.Time
	Op        fsnotify.Op
}

// Watcher monitors directories for entry changes using fsnotify
type Watcher struct {
	// Directories being watched
	directories map[string]bool

	// Channel to receive dirty directories
	dirtyChan chan DirtyEvent

	// Channel to signal stop
	stopChan chan struct{}
	done     chan struct{}

	fsWatcher *fsnotify.Watcher

	mutex   sync.RWMutex
	running bool
}

// New creates a new directory watcher using fsnotify
func New() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		directories: make(map[string]bool),
		dirtyChan:   make(chan DirtyEvent, 32),
		stopChan:    make(chan struct{}),
		fsWatcher:   fsWatcher,
	}, nil
}

// AddDirectory starts watching dir.
func (w *Watcher) AddDirectory(dir string) error {
	dir = filepath.Clean(dir)
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.directories[dir] {
		return nil
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}
	w.directories[dir] = true
	log.LogWithFields(log.F("directory", dir)).Debug("Watching directory")
	return nil
}

// RemoveDirectory stops watching dir.
func (w *Watcher) RemoveDirectory(dir string) {
	dir = filepath.Clean(dir)
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if !w.directories[dir] {
		return
	}
	delete(w.directories, dir)
	// fsnotify drops watches of deleted directories on its own.
	_ = w.fsWatcher.Remove(dir)
}

// Sync makes the watched set equal to dirs. Directories that can not be
// watched, remote cache entries included, are skipped.
func (w *Watcher) Sync(dirs []string) {
	want := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		want[filepath.Clean(dir)] = true
	}

	for _, dir := range w.GetDirectories() {
		if !want[dir] {
			w.RemoveDirectory(dir)
		}
	}
	for dir := range want {
		if err := w.AddDirectory(dir); err != nil {
			log.LogWithFields(log.F("directory", dir), log.F("error", err)).Debug("Directory not watched")
		}
	}
}

// DirtyChannel returns the channel that delivers changed directories
func (w *Watcher) DirtyChannel() <-chan DirtyEvent {
	return w.dirtyChan
}

// Start begins the watching process
func (w *Watcher) Start() error {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	stop, done := w.stopChan, w.done
	w.mutex.Unlock()

	go w.loop(stop, done)
	return nil
}

func (w *Watcher) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(w.dirtyChan)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.emit(w.dirtyDir(event.Name), event.Op)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-stop:
			return
		}
	}
}

// dirtyDir maps an event path to the watched directory it changes. A
// watched directory that is itself removed or renamed is dirty too.
func (w *Watcher) dirtyDir(name string) string {
	name = filepath.Clean(name)
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	if w.directories[name] {
		return name
	}
	return filepath.Dir(name)
}

func (w *Watcher) emit(dir string, op fsnotify.Op) {
	ev := DirtyEvent{Dir: dir, Timestamp: time.Now(), Op: op}
	// Send event non-blockingly; a full channel already holds a refresh.
	select {
	case w.dirtyChan <- ev:
	default:
		log.LogWithFields(log.F("directory", dir)).Debug("Dirty channel is full, dropped event")
	}
}

// Stop halts the watching process and closes the dirty channel.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mutex.Unlock()

	<-done
	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// GetDirectories returns the watched directories in sorted order.
func (w *Watcher) GetDirectories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirs := make([]string, 0, len(w.directories))
	for dir := range w.directories {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
