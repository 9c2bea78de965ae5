// Package watch debounces github.com/fsnotify/fsnotify filesystem events
// over a pipeline-definitions directory, using the same debounce-timer
// idiom as the rest of the codebase, narrowed to the single flat directory
// and *.json filter `pipelined run --watch` needs.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called with the set of changed pipeline definition paths once
// the debounce window has elapsed without further changes.
type Handler func(paths []string)

// Watcher watches a single directory for *.json changes.
type Watcher struct {
	dir      string
	handler  Handler
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// New creates a Watcher over dir. Call Start to begin watching.
func New(dir string, debounce time.Duration, handler Handler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	return &Watcher{dir: dir, handler: handler, debounce: debounce, watcher: fw}, nil
}

// Start runs the debounce loop until ctx is canceled, then closes the
// underlying fsnotify watcher.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()

	changed := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(changed) == 0 {
			return
		}
		paths := make([]string, 0, len(changed))
		for p := range changed {
			paths = append(paths, p)
		}
		w.handler(paths)
		changed = make(map[string]struct{})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			changed[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
			timer = nil
			timerC = nil
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
