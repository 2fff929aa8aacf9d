package plan

import (
	"github.com/felixgeelhaar/chainrun/internal/matrix"
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// Plan is the ordered list of stages produced for a request. A plan is never
// modified after it is built; the runtime only reads it.
type Plan struct {
	Stages []Stage
}

// Stage is a set of invocations with no dependencies between them.
type Stage struct {
	Index       int
	Invocations []Invocation
}

// Invocation runs the tasks of one node for one matrix cell.
type Invocation struct {
	Node string
	// Cell is the matrix index, nil for a node without a matrix.
	Cell  []int
	Scope scope.Scope
	Tasks []Task
}

// Task is a rendered script with its fully resolved scope.
type Task struct {
	Index  int
	Script string
	Scope  scope.Scope
}

// CellString renders the cell index as "0,1,0", or "" when there is none.
func (i Invocation) CellString() string {
	return matrix.IndexString(i.Cell)
}

// ID identifies the invocation in logs and summaries, e.g. "build[0,1]".
func (i Invocation) ID() string {
	if i.Cell == nil {
		return i.Node
	}
	return i.Node + "[" + i.CellString() + "]"
}

// InvocationCount returns the number of invocations across all stages.
func (p *Plan) InvocationCount() int {
	n := 0
	for _, s := range p.Stages {
		n += len(s.Invocations)
	}
	return n
}

// Nodes returns the distinct node names of the plan in stage order.
func (p *Plan) Nodes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range p.Stages {
		for _, inv := range s.Invocations {
			if !seen[inv.Node] {
				seen[inv.Node] = true
				out = append(out, inv.Node)
			}
		}
	}
	return out
}
