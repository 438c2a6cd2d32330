// Package watcher monitors source documents for changes and triggers
// rebuilds with debouncing. Bursts of events from one logical save
// collapse into a single rebuild, and rebuilds never run concurrently:
// notifications flow through a capacity-1 latest-wins queue consumed by a
// dedicated rebuild goroutine.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/guidecraft/guidecraft/internal/errors"
	"github.com/guidecraft/guidecraft/internal/logging"
)

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
}

// FileFilter determines if a changed path is relevant
type FileFilter func(path string) bool

// RebuildFunc is invoked once per settled burst of changes. It runs on
// the watcher's rebuild goroutine, so invocations never overlap.
type RebuildFunc func(ctx context.Context, events []ChangeEvent)

// FileWatcher watches source paths with debounced rebuild triggering.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      logging.Logger

	mu      sync.Mutex
	filters []FileFilter // all must accept
	scopes  []FileFilter // any may accept; empty means everything
	pending map[string]ChangeEvent
	timer   *time.Timer

	// notify has capacity 1; a burst settling while a rebuild is running
	// queues exactly one follow-up, and further bursts replace it.
	notify chan []ChangeEvent

	stopOnce sync.Once
}

// New creates a file watcher with the given debounce interval. A failure
// to initialize the underlying filesystem watch API is reported as
// WatchSubscriptionFailed.
func New(debounce time.Duration, log logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New(errors.KindWatchSubscription, "watch", "", err)
	}
	return &FileWatcher{
		watcher:  w,
		debounce: debounce,
		log:      log.WithComponent("watcher"),
		pending:  make(map[string]ChangeEvent),
		notify:   make(chan []ChangeEvent, 1),
	}, nil
}

// AddFilter adds a file filter. All filters must accept a path for its
// events to be considered.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.filters = append(fw.filters, filter)
}

// WatchFile subscribes to changes of a single file by watching its
// containing directory and filtering to that path. Editors replace files
// by rename, so watching the file's own inode would lose the
// subscription after the first save.
func (fw *FileWatcher) WatchFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.New(errors.KindWatchSubscription, "watch file", path, err)
	}
	fw.addScope(func(p string) bool {
		candidate, err := filepath.Abs(p)
		return err == nil && candidate == abs
	})
	return fw.addDir(filepath.Dir(abs))
}

// WatchDir subscribes to changes of every relevant file in a directory.
// A missing directory is not an error; the site simply has nothing there
// to watch yet.
func (fw *FileWatcher) WatchDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.New(errors.KindWatchSubscription, "watch dir", dir, err)
	}
	fw.addScope(func(p string) bool {
		candidate, err := filepath.Abs(p)
		return err == nil && strings.HasPrefix(candidate, abs+string(filepath.Separator))
	})
	return fw.addDir(abs)
}

// addScope widens the set of paths the watcher reacts to. Scopes are
// OR'd; filters added with AddFilter are AND'd on top.
func (fw *FileWatcher) addScope(scope FileFilter) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.scopes = append(fw.scopes, scope)
}

func (fw *FileWatcher) addDir(dir string) error {
	if err := fw.watcher.Add(dir); err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.KindNotFound, "watch", dir, err)
		}
		return errors.New(errors.KindWatchSubscription, "watch", dir, err)
	}
	return nil
}

// Start spawns the watch and rebuild loops. Both terminate when ctx is
// cancelled; an in-flight rebuild runs to completion first.
func (fw *FileWatcher) Start(ctx context.Context, rebuild RebuildFunc) {
	go fw.watchLoop(ctx)
	go fw.rebuildLoop(ctx, rebuild)
}

// Stop releases the filesystem subscription.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.mu.Lock()
		if fw.timer != nil {
			fw.timer.Stop()
		}
		fw.mu.Unlock()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log and keep watching
			fw.log.Warn(ctx, err, "file watcher error")
		}
	}
}

func (fw *FileWatcher) rebuildLoop(ctx context.Context, rebuild RebuildFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.notify:
			rebuild(ctx, events)
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	fw.mu.Lock()
	filters := fw.filters
	scopes := fw.scopes
	fw.mu.Unlock()

	if len(scopes) > 0 {
		inScope := false
		for _, scope := range scopes {
			if scope(event.Name) {
				inScope = true
				break
			}
		}
		if !inScope {
			return
		}
	}
	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	var eventType EventType
	switch {
	case event.Op.Has(fsnotify.Create):
		eventType = EventTypeCreated
	case event.Op.Has(fsnotify.Write):
		eventType = EventTypeModified
	case event.Op.Has(fsnotify.Remove):
		eventType = EventTypeDeleted
	case event.Op.Has(fsnotify.Rename):
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	change := ChangeEvent{Type: eventType, Path: event.Name}
	if info, err := os.Stat(event.Name); err == nil {
		change.ModTime = info.ModTime()
	}

	fw.log.Debug(ctx, "file changed", "path", change.Path, "op", change.Type.String())
	fw.enqueue(change)
}

// enqueue records an event and (re)arms the quiescence timer. Events for
// the same path within one debounce window collapse, keeping the latest.
func (fw *FileWatcher) enqueue(event ChangeEvent) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.pending[event.Path] = event

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.flush)
}

// flush publishes the settled burst to the rebuild queue. If a previous
// burst is still queued the two merge and the merged burst takes its
// place: latest wins, at most one rebuild pending.
func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	if len(fw.pending) == 0 {
		fw.mu.Unlock()
		return
	}
	events := make([]ChangeEvent, 0, len(fw.pending))
	for _, e := range fw.pending {
		events = append(events, e)
	}
	fw.pending = make(map[string]ChangeEvent)
	fw.mu.Unlock()

	for {
		select {
		case fw.notify <- events:
			return
		default:
		}
		select {
		case stale := <-fw.notify:
			events = mergeEvents(stale, events)
		default:
		}
	}
}

// mergeEvents combines a superseded burst with a newer one, newer events
// winning per path.
func mergeEvents(stale, fresh []ChangeEvent) []ChangeEvent {
	byPath := make(map[string]ChangeEvent, len(stale)+len(fresh))
	for _, e := range stale {
		byPath[e.Path] = e
	}
	for _, e := range fresh {
		byPath[e.Path] = e
	}
	merged := make([]ChangeEvent, 0, len(byPath))
	for _, e := range byPath {
		merged = append(merged, e)
	}
	return merged
}

// MarkdownFilter accepts only markdown files.
func MarkdownFilter(path string) bool {
	return filepath.Ext(path) == ".md"
}

// NoHiddenFilter rejects dotfiles and editor temp files.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
