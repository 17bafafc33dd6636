// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scan

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a project tree and signals when its shape changed, so the
// picker can refresh. Bursts of filesystem events (editor saves, git
// checkouts) are coalesced into one signal per debounce window.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	changes  chan struct{}
	closing  chan struct{}
	once     sync.Once
}

// NewWatcher creates a watcher for the project rooted at dir. Call Start to
// begin watching and Close to release resources.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     dir,
		watcher:  fw,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		closing:  make(chan struct{}),
	}, nil
}

// Changes delivers one signal per settled burst of filesystem activity. The
// channel is never closed; select against application shutdown instead.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Start registers the tree and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closing)
		err = w.watcher.Close()
	})
	return err
}

// addRecursive watches dir and every non-ignored subdirectory. Directories
// that cannot be watched are skipped.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		_ = w.watcher.Add(path)
		return nil
	})
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.closing:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if skip(filepath.Base(ev.Name), false) {
				continue
			}
			// New directories need watching too.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !ignoredDirs[filepath.Base(ev.Name)] {
					_ = w.addRecursive(ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
