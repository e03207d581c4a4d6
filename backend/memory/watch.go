package memory

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a save file's directory for external writes (another
// process calling Save against the same path) and invokes onChange with the
// freshly Load-ed Backend. This is an optional coordination mode for
// embedding scenarios that share a save file between processes; the
// in-memory Backend works standalone without it.
type Watcher struct {
	path string
	w    *fsnotify.Watcher
	done chan struct{}
}

// WatchSaveFile starts watching path's containing directory (fsnotify
// watches directories more reliably than single files across editors/atomic
// renames) and calls onChange(reloaded) whenever path itself is written.
// Reload and watcher errors are passed to onError; both callbacks run on the watcher's
// own goroutine. Call Close to stop.
func WatchSaveFile(path string, onChange func(*Backend), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("backend/memory: watch: %w", err)
	}
	dir := dirOf(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("backend/memory: watch: add %s: %w", dir, err)
	}

	w := &Watcher{path: path, w: fw, done: make(chan struct{})}
	go w.loop(onChange, onError)
	return w, nil
}

func (w *Watcher) loop(onChange func(*Backend), onError func(error)) {
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			b, err := Load(w.path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onChange != nil {
				onChange(b)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
