package profile

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/negotiator/internal/errors"
)

// debounce collapses the burst of events editors emit for a single save.
const debounce = 50 * time.Millisecond

// Watch reloads path whenever it is written or (re)created, until ctx is
// done. The parent directory is watched so atomic-rename saves are seen.
// Reload failures are logged and the previous table is kept.
func (m *Manager) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewProfileError("create watcher", err).WithPath(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return errors.NewProfileError("resolve path", err).WithPath(path)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return errors.NewProfileError("watch directory", err).WithPath(path)
	}

	go m.watchLoop(ctx, watcher, abs)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			if err := m.LoadFile(path); err != nil {
				m.logger.Warn("profile reload failed", "path", path, "error", err.Error())
				continue
			}
			m.logger.Info("profiles reloaded", "path", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("profile watcher error", "error", err.Error())
		}
	}
}
