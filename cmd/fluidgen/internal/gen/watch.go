package gen

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/broady/fluidgen/config"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reruns generation when Go sources or the config under Root change.
// Runs never overlap.
type Watcher struct {
	Root     string
	Log      *zap.Logger
	Debounce time.Duration
}

// Run calls run once, then again after each batch of relevant changes,
// until ctx is cancelled. A failed run is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, run func(context.Context) error) error {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer fw.Close()

	if err := addTree(fw, w.Root); err != nil {
		return err
	}
	log.Info("watching for changes", zap.String("root", w.Root))

	changes := make(chan struct{}, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					return nil
				}
				if ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
						if err := addTree(fw, ev.Name); err != nil {
							log.Warn("watch new directory", zap.String("dir", ev.Name), zap.Error(err))
						}
						continue
					}
				}
				if !Relevant(ev) {
					continue
				}
				log.Debug("change detected", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				log.Warn("watcher error", zap.Error(err))
			}
		}
	})

	g.Go(func() error {
		runOnce := func() {
			if err := run(ctx); err != nil && ctx.Err() == nil {
				log.Error("generation failed", zap.Error(err))
			}
		}
		runOnce()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			}
			t := time.NewTimer(debounce)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
			select {
			case <-changes:
			default:
			}
			runOnce()
		}
	})

	return g.Wait()
}

// Relevant reports whether ev should trigger a regeneration: a change to
// a non-test Go file, a config file or .env.
func Relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	switch {
	case strings.HasSuffix(base, "_test.go"):
		return false
	case strings.HasSuffix(base, ".go"):
		return true
	case base == ".env":
		return true
	case strings.TrimSuffix(base, filepath.Ext(base)) == config.FileName:
		return true
	}
	return false
}

func skipDir(name string) bool {
	if name == "." {
		return false
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "node_modules" || name == "vendor" || name == "testdata"
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return errors.Wrapf(err, "watch %s", path)
		}
		return nil
	})
}
