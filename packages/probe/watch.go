package probe

import (
	"context"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
)

// WatchDebounceDelay coalesces rapid successive file events into one re-run.
const WatchDebounceDelay = 300 * time.Millisecond

// Watch monitors path for changes and invokes onChange after each write,
// debounced. Callbacks run one at a time on a single worker; a change that
// lands while a callback is still running is held as one pending trigger, so
// re-runs never overlap. Watch blocks until ctx is cancelled or the watcher
// fails.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	// Watch the directory: editors often replace files on save, which
	// drops the watch on the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	// The buffered trigger keeps at most one pending re-run; the worker
	// drains it serially.
	trigger := make(chan struct{}, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-trigger:
				onChange()
			}
		}
	}()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			log.WithField("file", event.Name).Debug("change detected")
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watch error")
		}
	}
}
