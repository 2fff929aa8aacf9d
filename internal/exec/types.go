package exec

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/chainrun/internal/matrix"
	"github.com/felixgeelhaar/chainrun/internal/progress"
)

// ExecutionResult contains results from executing a plan
type ExecutionResult struct {
	RunID string
	// Stages mirrors the plan: one entry per stage and per invocation, in plan order.
	Stages    []StageResult
	Succeeded int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// StageResult holds the outcome of every invocation of one stage.
type StageResult struct {
	Index       int
	Invocations []InvocationResult
}

// InvocationResult is the outcome of one invocation.
type InvocationResult struct {
	Node   string
	Cell   []int
	Status progress.Status
	// Tasks holds one entry per task that was started.
	Tasks []TaskResult
	// Err is the spawn or task failure, nil on success and when skipped.
	Err   error
	Start time.Time
	End   time.Time
}

// TaskResult represents the outcome of one task process
type TaskResult struct {
	Index    int
	ExitCode int
	Duration time.Duration
	// Output is the combined stdout and stderr, kept only when capture is enabled.
	Output string
}

// ID identifies the invocation, e.g. "build[0,1]".
func (r InvocationResult) ID() string {
	if r.Cell == nil {
		return r.Node
	}
	return r.Node + "[" + matrix.IndexString(r.Cell) + "]"
}

// Total returns the number of invocations in the run.
func (r *ExecutionResult) Total() int {
	return r.Succeeded + r.Failed + r.Skipped
}

// Duration returns the wall time of the run.
func (r *ExecutionResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Failures returns the failed invocations in plan order.
func (r *ExecutionResult) Failures() []InvocationResult {
	var out []InvocationResult
	for _, s := range r.Stages {
		for _, inv := range s.Invocations {
			if inv.Status == progress.StatusFailed {
				out = append(out, inv)
			}
		}
	}
	return out
}

// Summary converts the result into its printable form.
func (r *ExecutionResult) Summary() progress.Summary {
	s := progress.Summary{
		RunID:     r.RunID,
		Total:     r.Total(),
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Skipped:   r.Skipped,
		Duration:  r.Duration(),
	}
	for _, f := range r.Failures() {
		s.Failures = append(s.Failures, fmt.Sprintf("%s: %v", f.ID(), f.Err))
	}
	return s
}
