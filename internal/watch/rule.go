package watch

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

// Event is a file system change under the watch root.
type Event struct {
	// Path is slash separated and relative to the root.
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Trigger runs the node bound to rule. Errors are logged by the caller and
// do not stop watching.
type Trigger func(ctx context.Context, rule *workflow.WatchRule, ev Event) error

var kindOps = map[string]fsnotify.Op{
	"create": fsnotify.Create,
	"write":  fsnotify.Write,
	"remove": fsnotify.Remove,
	"rename": fsnotify.Rename,
	"chmod":  fsnotify.Chmod,
}

// rule owns the state of one watch rule. Only its run goroutine touches
// busy, queued and the debounce timer.
type rule struct {
	def     *workflow.WatchRule
	filter  *regexp.Regexp
	ops     fsnotify.Op
	trigger Trigger
	logger  *log.Logger

	events chan Event
	done   chan error
}

func newRule(def *workflow.WatchRule, trigger Trigger, logger *log.Logger) (*rule, error) {
	filter, err := regexp.Compile(def.Filter)
	if err != nil {
		return nil, fmt.Errorf("watch rule %s: invalid filter: %w", def.Name, err)
	}

	var ops fsnotify.Op
	for _, k := range def.Kinds {
		op, ok := kindOps[k]
		if !ok {
			return nil, fmt.Errorf("watch rule %s: unknown event kind %q", def.Name, k)
		}
		ops |= op
	}
	if ops == 0 {
		ops = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename | fsnotify.Chmod
	}

	return &rule{
		def:     def,
		filter:  filter,
		ops:     ops,
		trigger: trigger,
		logger:  logger.With("rule", def.Name, "node", def.Exec.Node),
		events:  make(chan Event, 64),
		done:    make(chan error, 1),
	}, nil
}

// matches reports whether ev passes the kind and path filters.
func (r *rule) matches(ev Event) bool {
	return ev.Op&r.ops != 0 && r.filter.MatchString(ev.Path)
}

// run is the rule loop. Matching events are debounced; the settled event
// starts a run when idle. While a run is in flight the event replaces the
// queued one if the rule queues, and is dropped otherwise. When ctx is done
// the loop waits for an in-flight run before returning.
func (r *rule) run(ctx context.Context) error {
	var (
		busy     bool
		queued   *Event
		latest   Event
		debounce *time.Timer
		settled  <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	accept := func(ev Event) {
		switch {
		case !busy:
			busy = true
			r.start(ctx, ev)
		case r.def.Queue:
			queued = &ev
			r.logger.Debug("event queued", "path", ev.Path)
		default:
			r.logger.Debug("event dropped", "path", ev.Path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if busy {
				<-r.done
			}
			return nil

		case ev := <-r.events:
			if r.def.Debounce <= 0 {
				accept(ev)
				continue
			}
			latest = ev
			if debounce == nil {
				debounce = time.NewTimer(r.def.Debounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(r.def.Debounce)
			}
			settled = debounce.C

		case <-settled:
			settled = nil
			accept(latest)

		case err := <-r.done:
			busy = false
			if err != nil {
				r.logger.WithError(err).Error("triggered run failed")
			}
			if queued != nil {
				ev := *queued
				queued = nil
				busy = true
				r.start(ctx, ev)
			}
		}
	}
}

func (r *rule) start(ctx context.Context, ev Event) {
	r.logger.Info("triggered", "path", ev.Path, "op", ev.Op.String())
	go func() {
		r.done <- r.trigger(ctx, r.def, ev)
	}()
}

// offer hands ev to the rule loop, giving up when ctx is done.
func (r *rule) offer(ctx context.Context, ev Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}
