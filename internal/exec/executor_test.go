package exec

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/plan"
	"github.com/felixgeelhaar/chainrun/internal/progress"
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// span is one recorded Spawn call.
type span struct {
	script     string
	start, end time.Time
}

// fakeSpawner records every call and answers from per-script behaviour.
type fakeSpawner struct {
	mu    sync.Mutex
	spans []span
	calls []Command

	delay  time.Duration
	exit   map[string]int
	fail   map[string]error
	output map[string]string
	// onSpawn runs at the start of every call, outside the lock
	onSpawn func(Command)
}

func (f *fakeSpawner) Spawn(_ context.Context, c Command) (int, error) {
	if f.onSpawn != nil {
		f.onSpawn(c)
	}
	start := time.Now()
	if err := f.fail[c.Script]; err != nil {
		f.record(c, start)
		return -1, err
	}
	if out, ok := f.output[c.Script]; ok {
		fmt.Fprint(c.Stdout, out)
	}
	time.Sleep(f.delay)
	f.record(c, start)
	return f.exit[c.Script], nil
}

func (f *fakeSpawner) record(c Command, start time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spans = append(f.spans, span{script: c.Script, start: start, end: time.Now()})
	f.calls = append(f.calls, c)
}

func (f *fakeSpawner) scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spans))
	for i, s := range f.spans {
		out[i] = s.script
	}
	return out
}

// stage builds a stage whose invocations each run one task named after the node.
func stage(index int, nodes ...string) plan.Stage {
	s := plan.Stage{Index: index}
	sc := scope.Root(scope.DefaultShell())
	for _, n := range nodes {
		s.Invocations = append(s.Invocations, plan.Invocation{
			Node:  n,
			Scope: sc,
			Tasks: []plan.Task{{Index: 0, Script: n, Scope: sc}},
		})
	}
	return s
}

func newRuntime(sp Spawner, opts ...Option) *Runtime {
	base := []Option{WithSpawner(sp), WithLogger(log.Discard()), WithOutput(&bytes.Buffer{})}
	return New(append(base, opts...)...)
}

func TestExecuteSequentialWithOneWorker(t *testing.T) {
	sp := &fakeSpawner{delay: 10 * time.Millisecond}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a", "b", "c"), stage(1, "d")}}

	result, err := newRuntime(sp, WithWorkers(1)).Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, sp.scripts())
	for i := 1; i < len(sp.spans); i++ {
		assert.False(t, sp.spans[i].start.Before(sp.spans[i-1].end), "%s started before %s ended", sp.spans[i].script, sp.spans[i-1].script)
	}
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 0, result.Failed+result.Skipped)
	assert.NotEmpty(t, result.RunID)
}

func TestExecuteOverlapsWithEnoughWorkers(t *testing.T) {
	sp := &fakeSpawner{delay: 50 * time.Millisecond}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a", "b", "c")}}

	_, err := newRuntime(sp, WithWorkers(3)).Execute(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, sp.spans, 3)

	var lastStart, firstEnd time.Time
	for i, s := range sp.spans {
		if i == 0 || s.start.After(lastStart) {
			lastStart = s.start
		}
		if i == 0 || s.end.Before(firstEnd) {
			firstEnd = s.end
		}
	}
	assert.True(t, lastStart.Before(firstEnd), "all invocations should be running at the same time")
}

func TestExecuteStagesDoNotOverlap(t *testing.T) {
	sp := &fakeSpawner{delay: 10 * time.Millisecond}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a", "b"), stage(1, "c", "d")}}

	_, err := newRuntime(sp, WithWorkers(4)).Execute(context.Background(), p)
	require.NoError(t, err)

	var stage0End time.Time
	for _, s := range sp.spans {
		if (s.script == "a" || s.script == "b") && s.end.After(stage0End) {
			stage0End = s.end
		}
	}
	for _, s := range sp.spans {
		if s.script == "c" || s.script == "d" {
			assert.False(t, s.start.Before(stage0End), "%s started before stage 0 drained", s.script)
		}
	}
}

func TestExecuteFailureStopsLaterStages(t *testing.T) {
	sp := &fakeSpawner{delay: 20 * time.Millisecond, exit: map[string]int{"a": 2}}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a", "b"), stage(1, "c")}}

	result, err := newRuntime(sp, WithWorkers(2)).Execute(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTaskFailure))
	assert.Contains(t, err.Error(), "node a")
	assert.Contains(t, err.Error(), "exit code 2")

	assert.ElementsMatch(t, []string{"a", "b"}, sp.scripts(), "sibling finishes, next stage never starts")
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)

	require.Len(t, result.Stages, 2)
	assert.Equal(t, progress.StatusFailed, result.Stages[0].Invocations[0].Status)
	assert.Equal(t, progress.StatusCompleted, result.Stages[0].Invocations[1].Status)
	assert.Equal(t, progress.StatusSkipped, result.Stages[1].Invocations[0].Status)

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "a", failures[0].ID())
	assert.Equal(t, 2, failures[0].Tasks[0].ExitCode)
}

func TestExecuteSpawnFailure(t *testing.T) {
	sp := &fakeSpawner{fail: map[string]error{"a": fmt.Errorf("no such file")}}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a")}}

	_, err := newRuntime(sp).Execute(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSpawnFailure))
}

func TestExecuteTasksAreSequentialAndAllOrNothing(t *testing.T) {
	sc := scope.Root(scope.DefaultShell())
	inv := plan.Invocation{Node: "n", Cell: []int{1, 0}, Scope: sc, Tasks: []plan.Task{
		{Index: 0, Script: "first", Scope: sc},
		{Index: 1, Script: "second", Scope: sc},
		{Index: 2, Script: "third", Scope: sc},
	}}
	sp := &fakeSpawner{exit: map[string]int{"second": 1}}

	result, err := newRuntime(sp).Execute(context.Background(), &plan.Plan{Stages: []plan.Stage{{Index: 0, Invocations: []plan.Invocation{inv}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 1 of node n (cell 1,0)")

	assert.Equal(t, []string{"first", "second"}, sp.scripts())
	got := result.Stages[0].Invocations[0]
	assert.Equal(t, "n[1,0]", got.ID())
	assert.Len(t, got.Tasks, 2)
}

func TestExecuteInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := &fakeSpawner{onSpawn: func(Command) { cancel() }}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a", "b", "c"), stage(1, "d")}}

	result, err := newRuntime(sp, WithWorkers(1)).Execute(ctx, p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInterrupted))

	assert.Equal(t, []string{"a"}, sp.scripts(), "the started invocation drains")
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 3, result.Skipped)
}

func TestExecuteOutput(t *testing.T) {
	sp := &fakeSpawner{output: map[string]string{"a": "hello\nworld"}}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a")}}

	tests := []struct {
		name        string
		opts        []Option
		wantOut     string
		wantCapture string
	}{
		{name: "default prefix", wantOut: "==> hello\n==> world\n"},
		{name: "custom prefix", opts: []Option{WithPrefix("[a] ")}, wantOut: "[a] hello\n[a] world\n"},
		{name: "silent", opts: []Option{WithSilent(true)}, wantOut: ""},
		{name: "capture", opts: []Option{WithSilent(true), WithCaptureOutput(true)}, wantOut: "", wantCapture: "hello\nworld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			opts := append([]Option{WithOutput(&out)}, tt.opts...)
			result, err := newRuntime(sp, opts...).Execute(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantCapture, result.Stages[0].Invocations[0].Tasks[0].Output)
		})
	}
}

func TestExecutePassesResolvedScope(t *testing.T) {
	sp := &fakeSpawner{}
	taskScope := scope.Scope{
		Env:     map[string]string{"A": "1"},
		Workdir: "/work",
		Shell:   scope.Shell{Program: "bash", Args: []string{"-eu", "-c"}},
	}
	p := &plan.Plan{Stages: []plan.Stage{{Index: 0, Invocations: []plan.Invocation{{
		Node:  "n",
		Scope: taskScope,
		Tasks: []plan.Task{{Index: 0, Script: "echo $A", Scope: taskScope}},
	}}}}}

	_, err := newRuntime(sp).Execute(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, sp.calls, 1)

	c := sp.calls[0]
	assert.Equal(t, []string{"bash", "-eu", "-c", "echo $A"}, c.Argv())
	assert.Equal(t, map[string]string{"A": "1"}, c.Env)
	assert.Equal(t, "/work", c.Dir)
}

func TestExecuteIndicatorAndSummary(t *testing.T) {
	var status bytes.Buffer
	sp := &fakeSpawner{exit: map[string]int{"b": 1}}
	p := &plan.Plan{Stages: []plan.Stage{stage(0, "a", "b"), stage(1, "c")}}

	result, err := newRuntime(sp, WithIndicator(progress.NewIndicator(progress.Config{Writer: &status}))).
		Execute(context.Background(), p)
	require.Error(t, err)

	for _, want := range []string{"a [completed]", "b [failed]", "c [skipped]"} {
		assert.Contains(t, status.String(), want)
	}

	s := result.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, result.RunID, s.RunID)
	require.Len(t, s.Failures, 1)
	assert.True(t, strings.HasPrefix(s.Failures[0], "b: "))
}

func TestWithWorkersClamps(t *testing.T) {
	assert.Equal(t, 1, New(WithWorkers(0)).Workers())
	assert.Equal(t, 8, New(WithWorkers(8)).Workers())
}
