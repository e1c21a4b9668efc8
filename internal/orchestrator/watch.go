package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce batches the burst of filesystem events an editor save
// produces into a single rerun.
const watchDebounce = 200 * time.Millisecond

// Watcher observes a test directory tree and reports changed test files.
type Watcher struct {
	dir      string
	patterns []string
	logger   Logger

	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher over dir. patterns are shell-style base-name
// patterns selecting test files, e.g. "*_spec.rb".
func NewWatcher(dir string, patterns []string, logger Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		dir:      dir,
		patterns: patterns,
		logger:   logger,
		watcher:  fw,
	}

	// fsnotify watches are not recursive; register every subdirectory.
	if err := w.addRecursive(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// matches reports whether path names a test file per the configured
// patterns.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.patterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Watch blocks until the context is cancelled, invoking onChange with the
// set of changed test files after each debounced burst of events. New
// subdirectories are picked up as they appear.
func (w *Watcher) Watch(ctx context.Context, onChange func(changed []string)) error {
	defer func() {
		_ = w.watcher.Close()
	}()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Error("Failed to watch new directory: %v", err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.logger.Debug("Test file changed: %s (%s)", event.Name, event.Op)
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error: %v", err)

		case <-fire:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			pending = make(map[string]struct{})
			fire = nil
			sort.Strings(changed)
			onChange(changed)
		}
	}
}
