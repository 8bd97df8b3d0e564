package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"studynotes/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports changes to the notes file made outside this process,
// including removal. Events for the file are debounced.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()

	mu          sync.Mutex
	timer       *time.Timer
	ignoreUntil time.Time
}

// NewFileWatcher watches the directory holding path, since saves replace the
// file by rename and a watch on the file itself would be lost.
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch notes directory: %w", err)
	}
	return &FileWatcher{
		path:     path,
		watcher:  w,
		debounce: 100 * time.Millisecond,
		onChange: onChange,
	}, nil
}

// Run blocks until ctx is done.
func (w *FileWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	logger.Sugar.Infof("Watching notes file %s", w.path)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 && !w.ownWrite() {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Sugar.Errorf("Notes file watcher error: %v", err)
		}
	}
}

// IgnoreOwnWrite mutes events for the next debounce window. FileRepository
// calls it right before replacing the file so this process's saves are not
// reported back as outside changes.
func (w *FileWatcher) IgnoreOwnWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignoreUntil = time.Now().Add(w.debounce)
}

func (w *FileWatcher) ownWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.ignoreUntil)
}

func (w *FileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
