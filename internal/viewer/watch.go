package viewer

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

// Watcher reports changes to a fixed set of mesh files. Directories are watched rather
// than files so that editors which save by renaming a temp file are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	changes chan string
	wg      sync.WaitGroup
}

// NewWatcher starts watching paths.
func NewWatcher(paths []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		files:   make(map[string]bool, len(paths)),
		changes: make(chan string, 16),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	defer close(w.changes)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			if !w.files[path] {
				continue
			}
			select {
			case w.changes <- path:
			default:
				// Dropped: a pending reload reads the latest contents.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Changes delivers absolute paths of changed files. It is closed by Close.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
