// Package watch re-runs modules when their implementation or tests change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"mtr/internal/config"
)

// DefaultDebounce is how long the watcher waits for changes to settle
const DefaultDebounce = 500 * time.Millisecond

// Watcher maps file system events under utils/<m> and tests/<m> to modules
type Watcher struct {
	config   *config.Config
	log      zerolog.Logger
	debounce time.Duration
	ignore   map[string]bool
}

// New creates a new Watcher
func New(cfg *config.Config, log zerolog.Logger) *Watcher {
	ignore := map[string]bool{".pytest_cache": true}
	for _, dir := range cfg.PathsToIgnore {
		ignore[dir] = true
	}
	return &Watcher{config: cfg, log: log, debounce: DefaultDebounce, ignore: ignore}
}

// SetDebounce changes the settle delay
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run watches the given modules until ctx is done, calling onChange with the
// sorted set of modules touched by each settled burst of changes.
func (w *Watcher) Run(ctx context.Context, modules []string, onChange func(context.Context, []string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	watched := make(map[string]bool, len(modules))
	for _, m := range modules {
		watched[m] = true
		for _, dir := range []string{w.config.GetModuleUtilsPath(m), w.config.GetModuleTestsPath(m)} {
			if err := w.addTree(fsw, dir); err != nil {
				return err
			}
		}
	}
	w.log.Info().Int("modules", len(modules)).Msg("watching for changes")

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New directories are not watched until added
				_ = w.addTree(fsw, event.Name)
			}
			module := w.ModuleFor(event.Name)
			if module == "" || !watched[module] {
				continue
			}
			w.log.Debug().Str("module", module).Str("file", event.Name).Str("op", event.Op.String()).Msg("change")
			pending[module] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for m := range pending {
				changed = append(changed, m)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			onChange(ctx, changed)
		}
	}
}

// ModuleFor returns the module a path belongs to, or "" when it lies outside
// both roots.
func (w *Watcher) ModuleFor(path string) string {
	for _, root := range []string{w.config.GetUtilsRoot(), w.absolute(w.config.GetTestsRoot())} {
		rel, err := filepath.Rel(root, w.absolute(path))
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return strings.Split(filepath.ToSlash(rel), "/")[0]
	}
	return ""
}

func (w *Watcher) ignored(path string) bool {
	if strings.HasSuffix(path, ".pyc") || strings.HasSuffix(path, "~") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if w.ignore[part] {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Modules without a tests or utils directory are still watched through the other
			if path == root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (w.ignore[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
