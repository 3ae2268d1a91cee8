package snapshot

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	watchDebounceIntervalConstant     = 500 * time.Millisecond
	watcherStartedMessageConstant     = "watching event tree"
	watcherRefreshMessageConstant     = "event tree changed, re-projecting"
	watcherRefreshFailedMessage       = "re-projection failed"
	watcherErrorMessageConstant       = "event tree watch error"
	logFieldWatchedRootConstant       = "events_root"
	logFieldChangedPathConstant       = "changed_path"
	watcherSubdirectoryAddFailMessage = "unable to watch event subdirectory"
)

// Watcher re-runs a projection whenever the event tree changes. It is hosting
// glue around the batch engine: each refresh is still a full scan and
// recomputation.
type Watcher struct {
	eventsRoot string
	refresh    func() error
	logger     *zap.Logger
}

// NewWatcher constructs a Watcher invoking refresh after each change burst.
func NewWatcher(eventsRoot string, refresh func() error, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		eventsRoot: eventsRoot,
		refresh:    refresh,
		logger:     logger,
	}
}

// Watch blocks until the context is cancelled, debouncing bursts of
// filesystem events into single refreshes. Newly created day directories are
// added to the watch set as appenders create them.
func (watcher *Watcher) Watch(executionContext context.Context) error {
	fsWatcher, watcherError := fsnotify.NewWatcher()
	if watcherError != nil {
		return watcherError
	}
	defer fsWatcher.Close()

	if addError := watcher.addRecursive(fsWatcher, watcher.eventsRoot); addError != nil {
		return addError
	}

	watcher.logger.Info(watcherStartedMessageConstant, zap.String(logFieldWatchedRootConstant, watcher.eventsRoot))

	debounce := time.NewTimer(watchDebounceIntervalConstant)
	if !debounce.Stop() {
		<-debounce.C
	}
	refreshPending := false

	for {
		select {
		case <-executionContext.Done():
			return executionContext.Err()
		case fsEvent, channelOpen := <-fsWatcher.Events:
			if !channelOpen {
				return nil
			}
			if fsEvent.Op.Has(fsnotify.Create) {
				if addError := fsWatcher.Add(fsEvent.Name); addError != nil {
					watcher.logger.Debug(watcherSubdirectoryAddFailMessage,
						zap.String(logFieldChangedPathConstant, fsEvent.Name),
						zap.Error(addError),
					)
				}
			}
			watcher.logger.Debug(watcherRefreshMessageConstant, zap.String(logFieldChangedPathConstant, fsEvent.Name))
			if !refreshPending {
				refreshPending = true
				debounce.Reset(watchDebounceIntervalConstant)
			}
		case watchError, channelOpen := <-fsWatcher.Errors:
			if !channelOpen {
				return nil
			}
			watcher.logger.Warn(watcherErrorMessageConstant, zap.Error(watchError))
		case <-debounce.C:
			refreshPending = false
			if refreshError := watcher.refresh(); refreshError != nil {
				watcher.logger.Warn(watcherRefreshFailedMessage, zap.Error(refreshError))
			}
		}
	}
}

func (watcher *Watcher) addRecursive(fsWatcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		return fsWatcher.Add(path)
	})
}
