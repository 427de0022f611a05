// Package watch signals when plugin search paths change on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/soyeahso/eina/internal/logging"
)

// Watcher watches search paths and their immediate subdirectories. Bursts of
// filesystem events are coalesced into a single signal on C.
type Watcher struct {
	watcher  *fsnotify.Watcher
	roots    map[string]bool
	debounce time.Duration
	log      *logging.Logger
	c        chan struct{}

	mu      sync.Mutex
	pending []string
}

// New creates a watcher over paths. Paths that do not exist are skipped.
func New(paths []string, debounce time.Duration, log *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		roots:    make(map[string]bool),
		debounce: debounce,
		log:      log.Sub("watch"),
		c:        make(chan struct{}, 1),
	}

	for _, p := range paths {
		p = filepath.Clean(p)
		if err := w.watchRoot(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				w.log.Debug().Str("path", p).Msg("search path missing, not watching")
				continue
			}
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) watchRoot(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return err
	}
	w.roots[root] = true

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() {
			w.addDir(filepath.Join(root, e.Name()))
		}
	}
	return nil
}

func (w *Watcher) addDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.log.Debug().Err(err).Str("dir", dir).Msg("cannot watch plugin dir")
	}
}

// C delivers one value per debounced burst of changes.
func (w *Watcher) C() <-chan struct{} {
	return w.c
}

// Watched returns the directories currently watched.
func (w *Watcher) Watched() []string {
	return w.watcher.WatchList()
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) {
				continue
			}
			// New plugin directories are watched too.
			if ev.Has(fsnotify.Create) && w.roots[filepath.Dir(ev.Name)] {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					w.addDir(ev.Name)
				}
			}
			w.log.Trace().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("change")

			w.mu.Lock()
			w.pending = append(w.pending, ev.Name)
			w.mu.Unlock()

			if timer == nil {
				timer = time.AfterFunc(w.debounce, w.fire)
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) fire() {
	w.mu.Lock()
	n := len(w.pending)
	w.pending = nil
	w.mu.Unlock()

	w.log.Debug().Int("changes", n).Msg("search paths changed")
	select {
	case w.c <- struct{}{}:
	default:
	}
}
