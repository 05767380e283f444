package messages

import "dirbuf/internal/watch"

// ErrorMsg carries a failure from a command back into the update loop.
type ErrorMsg struct {
	Err error
}

// DirtyMsg reports a watched directory whose entries changed.
type DirtyMsg struct {
	Event watch.DirtyEvent
}

// WatcherClosedMsg is sent once the watcher's channel is drained.
type WatcherClosedMsg struct{}

// ExecFinishedMsg is sent when an opener or editor process exits.
type ExecFinishedMsg struct {
	Path string
	Err  error
}
