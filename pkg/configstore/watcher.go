package configstore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/logging"
)

// Watcher observes the configs directory so instances whose files are
// placed on disk by hand get discovered without a restart. Events are
// debounced; onChange is invoked from a single goroutine.
type Watcher struct {
	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

// Watch starts watching the store's configs directory. The directory is
// created first so watching a fresh root works.
func (s *Store) Watch(debounce time.Duration, onChange func()) (*Watcher, error) {
	if err := ensureDir(s.configsDir()); err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewInternalError("failed to create filesystem watcher", err)
	}
	if err := fsWatcher.Add(s.configsDir()); err != nil {
		fsWatcher.Close()
		return nil, errors.NewFileSystemError("failed to watch configs directory", err).WithContext("dir", s.configsDir())
	}

	w := &Watcher{
		watcher: fsWatcher,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go w.run(s.logger, debounce, onChange)

	return w, nil
}

func (w *Watcher) run(logger logging.Logger, debounce time.Duration, onChange func()) {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigEvent(event) {
				continue
			}
			logger.Debugf("Config directory event: %s", event)
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Config directory watch error: %v", err)

		case <-timerC:
			timer = nil
			timerC = nil
			onChange()

		case <-w.stop:
			return
		}
	}
}

// Close stops the watcher and waits for the event goroutine to finish.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.watcher.Close()
	<-w.done
	return err
}

func isConfigEvent(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, configExt) {
		return false
	}
	if strings.Contains(filepath.Base(event.Name), ".tmp-") {
		return false // our own atomic-write temp files
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewFileSystemError("failed to create directory", err).WithContext("dir", dir)
	}
	return nil
}
