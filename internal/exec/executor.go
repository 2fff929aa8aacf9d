package exec

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/plan"
	"github.com/felixgeelhaar/chainrun/internal/progress"
)

// DefaultPrefix is prepended to every line of child output.
const DefaultPrefix = "==> "

// Runtime executes plans stage by stage on a bounded worker pool.
type Runtime struct {
	workers   int
	spawner   Spawner
	logger    *log.Logger
	out       io.Writer
	prefix    string
	silent    bool
	capture   bool
	indicator *progress.Indicator
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithWorkers sets the pool size. Values below one mean one.
func WithWorkers(n int) Option {
	return func(r *Runtime) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithSpawner replaces the process boundary.
func WithSpawner(s Spawner) Option {
	return func(r *Runtime) { r.spawner = s }
}

// WithLogger sets the logger; run, stage, node, cell and task are added as attributes.
func WithLogger(l *log.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithOutput sets where child output is streamed.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) { r.out = w }
}

// WithPrefix sets the line prefix for child output.
func WithPrefix(prefix string) Option {
	return func(r *Runtime) { r.prefix = prefix }
}

// WithSilent suppresses child output.
func WithSilent(silent bool) Option {
	return func(r *Runtime) { r.silent = silent }
}

// WithCaptureOutput keeps each task's output in its TaskResult.
func WithCaptureOutput(capture bool) Option {
	return func(r *Runtime) { r.capture = capture }
}

// WithIndicator reports invocation status changes.
func WithIndicator(ind *progress.Indicator) Option {
	return func(r *Runtime) { r.indicator = ind }
}

// New creates a runtime with one worker, the shell spawner and output on stdout.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		workers: 1,
		spawner: ShellSpawner{},
		out:     os.Stdout,
		prefix:  DefaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrDefault(r.logger)
	return r
}

// Workers returns the pool size.
func (r *Runtime) Workers() int { return r.workers }

// completion is what a worker hands to the aggregator.
type completion struct {
	pos    int
	result InvocationResult
}

// Execute runs p. Stages run in order; the invocations of a stage run on the
// pool in plan order. After a failure the current stage drains and no later
// stage starts. Cancelling ctx stops dispatch, lets started invocations
// finish and reports the rest as skipped.
//
// The result is always returned. The error is the first failure received,
// or an interrupted error when ctx was cancelled.
func (r *Runtime) Execute(ctx context.Context, p *plan.Plan) (*ExecutionResult, error) {
	result := &ExecutionResult{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	logger := r.logger.With("run_id", result.RunID)
	out := progress.NewSyncWriter(r.out)

	logger.InfoContext(ctx, "run started",
		"stages", len(p.Stages),
		"invocations", p.InvocationCount(),
		"workers", r.workers)

	var firstErr error
	for _, stage := range p.Stages {
		sr := StageResult{Index: stage.Index, Invocations: make([]InvocationResult, len(stage.Invocations))}

		if firstErr != nil || ctx.Err() != nil {
			r.skipAll(stage, sr.Invocations)
		} else {
			stageLogger := logger.With("stage", stage.Index)
			stageLogger.DebugContext(ctx, "stage started", "invocations", len(stage.Invocations))
			if err := r.runStage(ctx, stageLogger, out, stage, sr.Invocations); err != nil && firstErr == nil {
				firstErr = err
			}
		}

		for _, inv := range sr.Invocations {
			switch inv.Status {
			case progress.StatusCompleted:
				result.Succeeded++
			case progress.StatusFailed:
				result.Failed++
			default:
				result.Skipped++
			}
		}
		result.Stages = append(result.Stages, sr)
	}
	result.EndTime = time.Now()

	if ctx.Err() != nil {
		logger.WarnContext(ctx, "run interrupted",
			"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
		return result, errors.Wrap(errors.ErrCodeInterrupted, "run interrupted", ctx.Err()).
			WithSuggestion("Invocations that had started were allowed to finish; the rest were skipped")
	}
	if firstErr != nil {
		logger.ErrorContext(ctx, "run failed",
			"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
		return result, firstErr
	}
	logger.InfoContext(ctx, "run completed", "invocations", result.Succeeded, "duration", result.Duration())
	return result, nil
}

// runStage dispatches the stage onto the pool and aggregates completions.
// It is the only writer of results.
func (r *Runtime) runStage(ctx context.Context, logger *log.Logger, out io.Writer, stage plan.Stage, results []InvocationResult) error {
	done := make(chan completion)
	workers := pool.New().WithMaxGoroutines(r.workers)

	go func() {
		defer close(done)
		for i, inv := range stage.Invocations {
			if ctx.Err() != nil {
				break
			}
			workers.Go(func() {
				done <- completion{pos: i, result: r.runInvocation(ctx, logger, out, inv)}
			})
		}
		workers.Wait()
	}()

	received := make([]bool, len(results))
	var firstErr error
	for c := range done {
		results[c.pos] = c.result
		received[c.pos] = true
		if c.result.Err != nil && firstErr == nil {
			firstErr = c.result.Err
		}
	}

	for i, inv := range stage.Invocations {
		if !received[i] {
			results[i] = r.skipped(inv)
		}
	}
	return firstErr
}

func (r *Runtime) runInvocation(ctx context.Context, logger *log.Logger, out io.Writer, inv plan.Invocation) InvocationResult {
	if ctx.Err() != nil {
		return r.skipped(inv)
	}

	res := InvocationResult{Node: inv.Node, Cell: inv.Cell, Start: time.Now()}
	logger = logger.With("node", inv.Node, "cell", inv.CellString())
	logger.DebugContext(ctx, "invocation started", "tasks", len(inv.Tasks))
	r.report(inv.ID(), progress.StatusRunning, nil)

	for _, t := range inv.Tasks {
		tr, err := r.runTask(ctx, logger.With("task", t.Index), out, inv, t)
		res.Tasks = append(res.Tasks, tr)
		if err != nil {
			res.Err = err
			break
		}
	}
	res.End = time.Now()

	if res.Err != nil {
		res.Status = progress.StatusFailed
		logger.WithError(res.Err).ErrorContext(ctx, "invocation failed")
	} else {
		res.Status = progress.StatusCompleted
		logger.DebugContext(ctx, "invocation completed", "duration", res.End.Sub(res.Start))
	}
	r.report(inv.ID(), res.Status, res.Err)
	return res
}

func (r *Runtime) runTask(ctx context.Context, logger *log.Logger, out io.Writer, inv plan.Invocation, t plan.Task) (TaskResult, error) {
	stream := progress.NewStreamWriter(out, r.prefix)
	var w io.Writer = stream
	if r.silent {
		w = io.Discard
	}
	var captured bytes.Buffer
	if r.capture {
		w = io.MultiWriter(w, &captured)
	}

	start := time.Now()
	code, err := r.spawner.Spawn(ctx, Command{
		Program: t.Scope.Shell.Program,
		Args:    t.Scope.Shell.Args,
		Script:  t.Script,
		Env:     t.Scope.Env,
		Dir:     t.Scope.Workdir,
		Stdout:  w,
		Stderr:  w,
	})
	if !r.silent {
		if ferr := stream.Flush(); ferr != nil {
			logger.WarnContext(ctx, "flush output", "error", ferr)
		}
	}

	tr := TaskResult{Index: t.Index, ExitCode: code, Duration: time.Since(start), Output: captured.String()}
	logger.DebugContext(ctx, "task finished", "exit_code", code, "duration", tr.Duration)

	switch {
	case err != nil:
		return tr, errors.NewSpawnFailureError(inv.Node, inv.CellString(), t.Index, err)
	case code != 0:
		return tr, errors.NewTaskFailureError(inv.Node, inv.CellString(), t.Index, code)
	}
	return tr, nil
}

func (r *Runtime) skipAll(stage plan.Stage, results []InvocationResult) {
	for i, inv := range stage.Invocations {
		results[i] = r.skipped(inv)
	}
}

func (r *Runtime) skipped(inv plan.Invocation) InvocationResult {
	r.report(inv.ID(), progress.StatusSkipped, nil)
	return InvocationResult{Node: inv.Node, Cell: inv.Cell, Status: progress.StatusSkipped}
}

func (r *Runtime) report(id string, status progress.Status, err error) {
	if r.indicator != nil {
		r.indicator.Update(id, status, err)
	}
}
