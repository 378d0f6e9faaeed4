package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// ChangeType describes what happened to a watched file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a file event that affects the index.
type Change struct {
	Type ChangeType
	Path string
}

// ChangeHandler observes each applied change. Document is nil for
// deletions and failures.
type ChangeHandler func(change Change, doc *domain.DocumentRecord, err error)

// ErrWatcherClosed is returned by Run after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher keeps the index in sync with a directory tree.
type Watcher struct {
	ingester *Ingester
	root     string
	kind     domain.SourceKind
	onChange ChangeHandler

	mu     sync.Mutex
	closed bool
	fsw    *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithChangeHandler registers a callback invoked after each applied change.
func WithChangeHandler(h ChangeHandler) WatcherOption {
	return func(w *Watcher) {
		w.onChange = h
	}
}

// WithSourceKind sets the source kind of files indexed by the watcher.
// Defaults to domain.SourcePreloaded.
func WithSourceKind(kind domain.SourceKind) WatcherOption {
	return func(w *Watcher) {
		w.kind = kind
	}
}

// NewWatcher creates a watcher for root.
func NewWatcher(ingester *Ingester, root string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		ingester: ingester,
		root:     root,
		kind:     domain.SourcePreloaded,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the tree until ctx is cancelled or Close is called.
// Directories created while running are watched as well and their
// files are indexed.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := w.start()
	if err != nil {
		return err
	}
	defer fsw.Close()

	logger.Info("Watching %s for changes", w.root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && !isHidden(filepath.Base(event.Name)) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(ctx, fsw, event.Name)
					continue
				}
			}
			if change := w.handleFsEvent(event); change != nil {
				w.apply(ctx, *change)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error on %s: %v", w.root, err)
		}
	}
}

// Close stops a running watcher. It is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) start() (*fsnotify.Watcher, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWatcherClosed
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addDirs(fsw, w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw
	return fsw, nil
}

// addTree starts watching a new directory and indexes what it already holds.
func (w *Watcher) addTree(ctx context.Context, fsw *fsnotify.Watcher, dir string) {
	if err := addDirs(fsw, dir); err != nil {
		logger.Warn("Failed to watch %s: %v", dir, err)
		return
	}
	paths, err := listFiles(dir)
	if err != nil {
		logger.Warn("Failed to list %s: %v", dir, err)
		return
	}
	for _, path := range paths {
		w.apply(ctx, Change{Type: ChangeCreated, Path: path})
	}
}

// addDirs adds dir and its visible subdirectories to fsw.
func addDirs(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent maps a filesystem event to an index change.
// Directories, hidden files and permission changes produce none.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(filepath.Base(event.Name)) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if event.Has(fsnotify.Create) {
			return &Change{Type: ChangeCreated, Path: event.Name}
		}
		return &Change{Type: ChangeUpdated, Path: event.Name}
	default:
		return nil
	}
}

func (w *Watcher) apply(ctx context.Context, change Change) {
	var (
		doc *domain.DocumentRecord
		err error
	)
	switch change.Type {
	case ChangeDeleted:
		err = w.ingester.RemoveFile(ctx, change.Path)
	default:
		doc, err = w.ingester.IngestFile(ctx, change.Path, w.kind)
	}

	if err != nil {
		logger.Warn("Failed to apply %s %s: %v", change.Type, change.Path, err)
	} else {
		logger.Debug("Applied %s %s", change.Type, change.Path)
	}
	if w.onChange != nil {
		w.onChange(change, doc, err)
	}
}
