package plan

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/graph"
	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/matrix"
	"github.com/felixgeelhaar/chainrun/internal/scope"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

// GenerateOptions contains options for plan generation
type GenerateOptions struct {
	// Nodes are the requested node names
	Nodes []string
	// Args are the template arguments scripts are rendered against
	Args scope.Args
	// Environ is the caller environment snapshot used by capture patterns
	Environ []string
	// DefaultShell is the root shell; the zero value means sh -c
	DefaultShell scope.Shell
	// Logger receives debug output; nil uses the default logger
	Logger *log.Logger
}

// Generate resolves the requested nodes and their dependencies into stages
// and expands every node into one invocation per matrix cell. Identical
// inputs produce identical plans.
func Generate(ctx context.Context, wf *workflow.Workflow, opts GenerateOptions) (*Plan, error) {
	logger := log.OrDefault(opts.Logger)

	g, err := graph.Build(wf.Nodes, opts.Nodes)
	if err != nil {
		return nil, err
	}
	levels := Levels(g)

	shell := opts.DefaultShell
	if shell.Program == "" {
		shell = scope.DefaultShell()
	}
	gf, err := wf.GlobalFragment(opts.Environ)
	if err != nil {
		return nil, errors.NewWorkflowInvalidError("workflow capture", err)
	}
	global, err := scope.Root(shell).Apply(gf)
	if err != nil {
		return nil, errors.NewWorkflowInvalidError("workflow scope", err)
	}

	p := &Plan{Stages: make([]Stage, stageCount(levels))}
	for i := range p.Stages {
		p.Stages[i].Index = i
	}

	for i, n := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		invs, err := invocations(n, global, opts)
		if err != nil {
			return nil, err
		}
		s := &p.Stages[levels[i]]
		s.Invocations = append(s.Invocations, invs...)
	}

	logger.DebugContext(ctx, "plan generated",
		"requested", opts.Nodes,
		"stages", len(p.Stages),
		"invocations", p.InvocationCount())
	return p, nil
}

// Describe returns the stage grouping of node names for the request without
// expanding matrices or rendering scripts.
func Describe(wf *workflow.Workflow, nodes []string) ([][]string, error) {
	g, err := graph.Build(wf.Nodes, nodes)
	if err != nil {
		return nil, err
	}
	levels := Levels(g)

	out := make([][]string, stageCount(levels))
	for i, n := range g.Nodes {
		out[levels[i]] = append(out[levels[i]], n.Name)
	}
	return out, nil
}

// Levels assigns every graph node its stage: 0 without predecessors,
// otherwise one more than its deepest predecessor.
func Levels(g *graph.Graph) []int {
	levels := make([]int, len(g.Nodes))
	for _, n := range g.Order {
		for _, p := range g.Pre[n] {
			if levels[p]+1 > levels[n] {
				levels[n] = levels[p] + 1
			}
		}
	}
	return levels
}

func stageCount(levels []int) int {
	n := 0
	for _, l := range levels {
		if l+1 > n {
			n = l + 1
		}
	}
	return n
}

func invocations(n *workflow.Node, global scope.Scope, opts GenerateOptions) ([]Invocation, error) {
	nf, err := n.Fragment(opts.Environ)
	if err != nil {
		return nil, errors.NewWorkflowInvalidError("capture of node "+n.Name, err)
	}
	nodeScope, err := global.Apply(nf)
	if err != nil {
		return nil, errors.NewWorkflowInvalidError("scope of node "+n.Name, err)
	}

	scripts := make([]string, len(n.Tasks))
	for i, t := range n.Tasks {
		script, err := scope.Render(t.Script, opts.Args)
		switch {
		case stderrors.Is(err, scope.ErrInvalidTemplate):
			return nil, errors.NewInvalidTemplateError(n.Name, i, err)
		case err != nil:
			return nil, errors.NewUndefinedArgumentError(n.Name, i, err)
		}
		scripts[i] = script
	}

	cells, err := matrix.Expand(n.Matrix)
	if err != nil {
		var fe *matrix.FilterError
		if stderrors.As(err, &fe) {
			return nil, errors.NewInvalidFilterError(n.Name, fe.Filter, fe.Pattern, fe.Err)
		}
		return nil, err
	}

	out := make([]Invocation, 0, len(cells))
	for _, c := range cells {
		cellScope, err := nodeScope.Apply(c.Fragment)
		if err != nil {
			return nil, errors.NewWorkflowInvalidError("scope of node "+n.Name, err)
		}
		inv := Invocation{Node: n.Name, Cell: c.Index, Scope: cellScope}
		for i, t := range n.Tasks {
			taskScope, err := cellScope.Apply(t.Fragment())
			if err != nil {
				return nil, errors.NewWorkflowInvalidError(fmt.Sprintf("scope of node %s task %d", n.Name, i), err)
			}
			inv.Tasks = append(inv.Tasks, Task{Index: i, Script: scripts[i], Scope: taskScope})
		}
		out = append(out, inv)
	}
	return out, nil
}
