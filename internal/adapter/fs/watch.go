package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher calls back when knowledge-base files change. Bursts of events
// (an editor saving, a git checkout) are coalesced into one callback once
// the tree has been quiet for the debounce interval.
type Watcher struct {
	walker   *Walker
	debounce time.Duration
	logger   zerolog.Logger
}

func NewWatcher(walker *Walker, debounce time.Duration, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{walker: walker, debounce: debounce, logger: logger}
}

// Watch blocks until ctx is done. onChange runs on the watching goroutine,
// so events arriving meanwhile are batched into the next call.
func (w *Watcher) Watch(ctx context.Context, root string, onChange func()) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, root, root); err != nil {
		return err
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				if err := w.addTree(fsw, root, ev.Name); err != nil {
					w.logger.Warn().Err(err).Str("path", ev.Name).Msg("cannot watch new directory")
				}
			}
			if !w.relevant(root, ev) {
				continue
			}
			w.logger.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("knowledge base changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// relevant reports whether ev touches a file Walk would return.
func (w *Watcher) relevant(root string, ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return false
	}
	return w.walker.Matches(filepath.ToSlash(rel))
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if w.walker.shouldExclude(rel) || w.walker.shouldExclude(rel+"/") {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
