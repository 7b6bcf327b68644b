package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/zeusync/bhtree/internal/core/observability/log"
)

// watcher reloads trees whose definition or subtree files change. Parent
// directories are watched instead of the files because editors usually
// replace a file rather than write it in place.
type watcher struct {
	r      *Runner
	fs     *fsnotify.Watcher
	byPath map[string][]string
}

func newWatcher(r *Runner, entries []*entry) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &watcher{r: r, fs: fs, byPath: make(map[string][]string)}

	dirs := make(map[string]bool)
	for _, e := range entries {
		e.mu.Lock()
		src := e.src
		e.mu.Unlock()
		if src == nil {
			continue
		}
		paths := []string{src.cfg.File}
		for _, p := range src.cfg.Subtrees {
			paths = append(paths, p)
		}
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				_ = fs.Close()
				return nil, fmt.Errorf("watch %s: %w", p, err)
			}
			w.byPath[abs] = append(w.byPath[abs], e.name)
			dirs[filepath.Dir(abs)] = true
		}
	}
	for dir := range dirs {
		if err = fs.Add(dir); err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

func (w *watcher) run(ctx context.Context) error {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			for _, name := range w.byPath[abs] {
				w.reload(ctx, name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.r.logger.Warn("file watcher error", log.Err(err))
		}
	}
}

// reload keeps the old tree running when the new files do not build.
func (w *watcher) reload(ctx context.Context, name string) {
	changed, err := w.r.Reload(ctx, name)
	if err != nil {
		w.r.logger.Error("reload failed", log.String("tree", name), log.Err(err))
		return
	}
	if !changed {
		w.r.logger.Debug("tree unchanged", log.String("tree", name))
	}
}
