// Package watcher notices writes to the bookmark database made by other
// processes.
package watcher

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher reports bursts of writes to a SQLite file and its journals.
type Watcher struct {
	watcher  *fsnotify.Watcher
	base     string
	delay    time.Duration
	onChange func()
	logger   *log.Logger

	mu      sync.Mutex
	pending *time.Timer
	stopped bool
}

// New watches the directory holding dbPath. onChange runs once per burst,
// delay after the last write.
func New(dbPath string, delay time.Duration, onChange func(), logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		watcher:  fw,
		base:     filepath.Base(abs),
		delay:    delay,
		onChange: onChange,
		logger:   logger.With("component", "watcher"),
	}, nil
}

// Start begins watching for changes. Blocks until Stop is called.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// bookmarks.db, bookmarks.db-wal, bookmarks.db-journal
	if !strings.HasPrefix(filepath.Base(event.Name), w.base) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.delay, w.onChange)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
