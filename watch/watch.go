// Package watch re-runs work when files change on disk.
//
// Parent directories are watched rather than the files themselves: editors
// commonly save by writing a temp file and renaming it over the original,
// which drops a direct file watch. Bursts of events are debounced into a
// single callback.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/logger"
)

// DefaultDebounce matches watch.debounce_ms's default
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the sorted set of watched paths that changed
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher watches a fixed set of files
type Watcher struct {
	fs       *fsnotify.Watcher
	targets  map[string]struct{}
	debounce time.Duration
}

// New watches paths, debouncing bursts for the given period (0 = DefaultDebounce).
func New(debounce time.Duration, paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("nothing to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		fs:       fsw,
		targets:  make(map[string]struct{}, len(paths)),
		debounce: debounce,
	}
	dirs := map[string]struct{}{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "failed to resolve %s", p)
		}
		w.targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", dir)
		}
	}
	return w, nil
}

// Run delivers debounced changes to fn until ctx is done, then closes the watcher.
// fn runs on the Run goroutine; events arriving meanwhile are batched for the next call.
func (w *Watcher) Run(ctx context.Context, fn ChangeFunc) error {
	defer w.fs.Close()

	pending := map[string]struct{}{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debugw("Watcher detected change",
				logger.FieldFile, event.Name,
				"op", event.Op.String())
			pending[filepath.Clean(event.Name)] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = map[string]struct{}{}
			fn(ctx, changed)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// Close stops watching without running
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.targets[filepath.Clean(event.Name)]; !ok {
		return false
	}
	// a rename or remove away from the path is followed by a create when the editor is done
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
