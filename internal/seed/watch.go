package seed

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 200 * time.Millisecond

// Watch reapplies the fixture at path whenever it changes until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file by rename are picked up. cb, if non-nil, is called after each
// successful reload.
func Watch(ctx context.Context, path string, t Target, logger *slog.Logger, cb func(Summary)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("seed watcher: started", slog.String("fixture", abs))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("seed watcher: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			s, err := LoadAndApply(ctx, t, abs)
			if err != nil {
				logger.Warn("seed watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("seed watcher: reloaded",
				slog.Int("users", s.Users),
				slog.Int("contacts", s.Contacts),
				slog.Int("leads", s.Leads))
			if cb != nil {
				cb(s)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("seed watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
