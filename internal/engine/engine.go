// Package engine runs the closed set of chainrun operations against a
// workflow or plan. Commands and the watch trigger both go through Dispatch.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/chainrun/internal/config"
	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/exec"
	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/plan"
	"github.com/felixgeelhaar/chainrun/internal/ux"
)

// Engine binds settings and a runtime.
type Engine struct {
	settings *config.Settings
	runtime  *exec.Runtime
	logger   *log.Logger
}

// New creates an engine. Runtime options are applied after the ones derived
// from settings, so callers can replace the spawner or output.
func New(settings *config.Settings, logger *log.Logger, opts ...exec.Option) *Engine {
	logger = log.OrDefault(logger)
	base := []exec.Option{
		exec.WithWorkers(settings.Workers),
		exec.WithPrefix(settings.Prefix),
		exec.WithSilent(settings.Silent),
		exec.WithLogger(logger),
	}
	return &Engine{
		settings: settings,
		runtime:  exec.New(append(base, opts...)...),
		logger:   logger,
	}
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() *config.Settings { return e.settings }

// Dispatch runs op. For ExecuteOp the result is returned alongside a run
// error so callers can still print the summary.
func (e *Engine) Dispatch(ctx context.Context, op Operation) (Result, error) {
	switch op := op.(type) {
	case PlanOp:
		return e.plan(ctx, op)
	case ExecuteOp:
		return e.execute(ctx, op)
	case DescribeOp:
		return e.describe(op)
	case ListOp:
		return e.list(op)
	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}
}

// DispatchAs runs op and returns its result as T.
func DispatchAs[T Result](ctx context.Context, e *Engine, op Operation) (T, error) {
	var zero T
	res, err := e.Dispatch(ctx, op)
	if res == nil {
		return zero, err
	}
	out, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("operation %T returned %T", op, res)
	}
	return out, err
}

func (e *Engine) plan(ctx context.Context, op PlanOp) (PlanResult, error) {
	if op.Workflow == nil {
		return PlanResult{}, errors.NewInvalidArgumentError("plan requires a workflow")
	}

	p, err := plan.Generate(ctx, op.Workflow, plan.GenerateOptions{
		Nodes:        op.Nodes,
		Args:         op.Args,
		Environ:      e.settings.Environ,
		DefaultShell: e.settings.DefaultShell,
		Logger:       e.logger,
	})
	if err != nil {
		return PlanResult{}, err
	}

	fp, err := plan.Fingerprint(p)
	if err != nil {
		return PlanResult{}, err
	}
	e.logger.InfoContext(ctx, "plan created",
		"nodes", op.Nodes,
		"stages", len(p.Stages),
		"invocations", p.InvocationCount(),
		"fingerprint", fp)
	return PlanResult{Plan: p, Fingerprint: fp}, nil
}

func (e *Engine) execute(ctx context.Context, op ExecuteOp) (Result, error) {
	if op.Plan == nil {
		return nil, errors.NewInvalidArgumentError("execute requires a plan")
	}
	if op.Fingerprint != "" {
		if err := plan.VerifyFingerprint(op.Plan, op.Fingerprint); err != nil {
			return nil, err
		}
	}

	res, err := e.runtime.Execute(ctx, op.Plan)
	return ExecuteResult{res}, err
}

func (e *Engine) describe(op DescribeOp) (DescribeResult, error) {
	if op.Workflow == nil {
		return DescribeResult{}, errors.NewInvalidArgumentError("describe requires a workflow")
	}
	stages, err := plan.Describe(op.Workflow, op.Nodes)
	if err != nil {
		return DescribeResult{}, err
	}
	return DescribeResult{ux.StagesView{Stages: stages}}, nil
}

func (e *Engine) list(op ListOp) (ListResult, error) {
	if op.Workflow == nil {
		return ListResult{}, errors.NewInvalidArgumentError("list requires a workflow")
	}

	nodes := make([]ux.NodeSummary, 0, op.Workflow.Nodes.Len())
	for _, n := range op.Workflow.Nodes.All() {
		nodes = append(nodes, ux.NodeSummary{
			Name:        n.Name,
			Description: n.Description,
			Pre:         append([]string(nil), n.Pre...),
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return ListResult{ux.NodeList{Nodes: nodes}}, nil
}
