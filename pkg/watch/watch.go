// Package watch reports changed scenario files, debouncing editor write bursts.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pushqa/wpregress/pkg/scenario"
)

// DefaultDebounce is the quiet period after the last change before a batch is reported.
const DefaultDebounce = 500 * time.Millisecond

// Logger receives watcher warnings.
type Logger interface {
	Warn(format string, args ...any)
}

// Watcher watches scenario directories recursively.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      Logger
}

// New creates a watcher over dirs and their subdirectories. Hidden directories are skipped.
func New(dirs []string, debounce time.Duration, log Logger) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, errors.New("no directories to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{fsw: fsw, debounce: debounce, log: log}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	res := w.fsw.WatchList()
	slices.Sort(res)
	return res
}

// Run blocks until ctx is canceled, calling fn with each debounced batch of changed scenario files.
// deleted files are not reported. fn runs on the watcher goroutine; changes arriving meanwhile are
// collected into the next batch.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, files []string)) error {
	defer w.fsw.Close()

	pending := map[string]struct{}{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				pending[ev.Name] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error: %v", err)

		case <-timer.C:
			files := existing(pending)
			pending = map[string]struct{}{}
			if len(files) > 0 {
				fn(ctx, files)
			}
		}
	}
}

// handle reacts to an event and reports whether it names a scenario file change.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch new directory %s: %v", ev.Name, err)
			}
			return false
		}
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return scenario.IsScenarioFile(ev.Name) && !hidden(filepath.Base(ev.Name))
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", p, err)
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// existing returns sorted pending paths that still exist.
func existing(pending map[string]struct{}) []string {
	res := make([]string, 0, len(pending))
	for p := range pending {
		if _, err := os.Stat(p); err == nil {
			res = append(res, p)
		}
	}
	slices.Sort(res)
	return res
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
