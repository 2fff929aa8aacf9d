// Package watch turns file system events into node runs.
//
// Each workflow watch rule gets its own goroutine that debounces matching
// events and decides whether to run, queue or drop them. The fsnotify loop
// fans events out to the rules; all loops run under one errgroup.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

// skipDirs are never watched.
var skipDirs = map[string]bool{".git": true}

// Watcher watches a directory tree and drives the workflow's watch rules.
type Watcher struct {
	root   string
	rules  []*rule
	logger *log.Logger
}

// New compiles the rules. Rules are kept in name order.
func New(root string, rules map[string]*workflow.WatchRule, trigger Trigger, logger *log.Logger) (*Watcher, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("workflow declares no watch rules")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	logger = log.OrDefault(logger)

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	w := &Watcher{root: abs, logger: logger.With("root", abs)}
	for _, name := range names {
		def := rules[name]
		if def.Name == "" {
			def.Name = name
		}
		r, err := newRule(def, trigger, w.logger)
		if err != nil {
			return nil, err
		}
		w.rules = append(w.rules, r)
	}
	return w, nil
}

// Root returns the absolute watch root.
func (w *Watcher) Root() string { return w.root }

// Run watches until ctx is done. In-flight runs are allowed to finish.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range w.rules {
		g.Go(func() error { return r.run(gctx) })
	}
	g.Go(func() error { return w.loop(gctx, fsw) })

	w.logger.InfoContext(ctx, "watching", "rules", len(w.rules))
	return g.Wait()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("file watcher error")
		case fe, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if fe.Has(fsnotify.Create) {
				if info, err := os.Stat(fe.Name); err == nil && info.IsDir() {
					if err := w.addTree(fsw, fe.Name); err != nil {
						w.logger.WithError(err).Warn("could not watch new directory", "path", fe.Name)
					}
				}
			}
			ev, ok := w.event(fe)
			if !ok {
				continue
			}
			w.dispatch(ctx, ev)
		}
	}
}

// event converts an fsnotify event to a root relative Event. Events inside
// skipped directories are dropped.
func (w *Watcher) event(fe fsnotify.Event) (Event, bool) {
	rel, err := filepath.Rel(w.root, fe.Name)
	if err != nil {
		return Event{}, false
	}
	rel = filepath.ToSlash(rel)
	if skipped(rel) {
		return Event{}, false
	}
	return Event{Path: rel, Op: fe.Op, Time: time.Now()}, true
}

// dispatch offers ev to every rule it matches.
func (w *Watcher) dispatch(ctx context.Context, ev Event) {
	for _, r := range w.rules {
		if r.matches(ev) {
			r.offer(ctx, ev)
		}
	}
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func skipped(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if skipDirs[part] {
			return true
		}
	}
	return false
}
