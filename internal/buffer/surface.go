package buffer

import (
	"fmt"
	"sync"

	"dirbuf/internal/page"
)

// Surface is the line addressed display a controller renders into.
type Surface interface {
	// SetLines replaces every row with decorated lines.
	SetLines(lines []page.Line)
	// SetLine redraws one row.
	SetLine(row int, line page.Line)
	// SetPlain shows editable plain text, one entry per row.
	SetPlain(lines []string)
	// Lines returns the current text, one entry per row.
	Lines() []string
	SetModifiable(on bool)
	SetCursor(row int)
	// Rename sets the title of the view.
	Rename(label string)
	// Open shows path in the surface's own viewer.
	Open(path string)
	// Spawn runs command on path outside the surface.
	Spawn(command, path string)
	Notify(msg string)
	Error(err error)
}

// Opener resolves the external command that opens a file.
type Opener interface {
	Resolve(path string) (string, bool)
}

// Labels hands out view titles that are unique across controllers. A
// title already used by another controller gets a "-N" suffix.
type Labels struct {
	mu    sync.Mutex
	owner map[string]string
	held  map[string]string
}

// NewLabels creates an empty registry.
func NewLabels() *Labels {
	return &Labels{owner: make(map[string]string), held: make(map[string]string)}
}

// Claim releases the label held by id and returns a free label for base.
func (l *Labels) Claim(id, base string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(id)

	label := base
	for i := 1; ; i++ {
		if _, taken := l.owner[label]; !taken {
			break
		}
		label = fmt.Sprintf("%s-%d", base, i)
	}
	l.owner[label] = id
	l.held[id] = label
	return label
}

// Release frees the label held by id.
func (l *Labels) Release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(id)
}

func (l *Labels) release(id string) {
	if label, ok := l.held[id]; ok {
		delete(l.owner, label)
		delete(l.held, id)
	}
}
