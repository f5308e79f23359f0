package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/codequery-ai/codequery/pkg/types"
)

// EventKind discriminates watch notifications.
type EventKind int

const (
	EventCreated EventKind = iota
	EventModified
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	}
	return "unknown"
}

// Event is one raw filesystem notification. No coalescing or de-duplication
// is performed; consumers must tolerate duplicate and rapid-fire events.
type Event struct {
	Kind EventKind
	Path string
}

// Watch is a live subscription to changes under a root. Events is closed
// only when Close is called or the underlying watcher dies.
type Watch struct {
	Events  <-chan Event
	watcher *fsnotify.Watcher
}

// Close terminates the subscription. This is the only cancellation
// mechanism; the event stream is otherwise infinite.
func (w *Watch) Close() error {
	return w.watcher.Close()
}

// Watch opens a recursive subscription on root. fsnotify watches are
// per-directory, so every existing subdirectory is registered up front and
// newly created directories are added as their create events arrive.
// Events for paths matching the ignore rules are filtered out.
func (w *Walker) Watch(root string) (*Watch, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: create watcher: %v", types.ErrIndexing, err)
	}

	if err := w.addWatchesRecursive(fsw, root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	matcher := loadIgnoreRules(root)
	events := make(chan Event)

	go w.forwardEvents(fsw, root, matcher, events)

	return &Watch{Events: events, watcher: fsw}, nil
}

func (w *Walker) addWatchesRecursive(fsw *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if _, skip := w.excludeDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
		}
		return fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("%w: register watches under %s: %v", types.ErrIndexing, root, err)
	}
	return nil
}

// forwardEvents translates fsnotify notifications into Events until the
// watcher closes, registering watches on newly created directories along
// the way.
func (w *Walker) forwardEvents(fsw *fsnotify.Watcher, root string, matcher *gitignore.GitIgnore, out chan<- Event) {
	defer close(out)

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if e, forward := w.translate(fsw, root, matcher, ev); forward {
				out <- e
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Walker) translate(fsw *fsnotify.Watcher, root string, matcher *gitignore.GitIgnore, ev fsnotify.Event) (Event, bool) {
	if _, skip := w.excludeDirs[filepath.Base(ev.Name)]; skip {
		return Event{}, false
	}

	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		rel = ev.Name
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			// New directory: start watching it, don't report it.
			_ = fsw.Add(ev.Name)
			return Event{}, false
		}
		if w.shouldIgnore(rel, matcher) {
			return Event{}, false
		}
		return Event{Kind: EventCreated, Path: ev.Name}, true
	case ev.Op.Has(fsnotify.Write):
		if w.shouldIgnore(rel, matcher) {
			return Event{}, false
		}
		return Event{Kind: EventModified, Path: ev.Name}, true
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if w.shouldIgnore(rel, matcher) {
			return Event{}, false
		}
		return Event{Kind: EventDeleted, Path: ev.Name}, true
	}
	return Event{}, false
}
