package engine

import (
	"github.com/felixgeelhaar/chainrun/internal/exec"
	"github.com/felixgeelhaar/chainrun/internal/plan"
	"github.com/felixgeelhaar/chainrun/internal/scope"
	"github.com/felixgeelhaar/chainrun/internal/ux"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

// Operation is one of PlanOp, ExecuteOp, DescribeOp or ListOp. The set is
// closed: the marker method is unexported.
type Operation interface {
	operation()
}

// PlanOp resolves the requested nodes of a workflow into a plan.
type PlanOp struct {
	Workflow *workflow.Workflow
	Nodes    []string
	Args     scope.Args
}

// ExecuteOp runs a plan. A non-empty Fingerprint must match the plan.
type ExecuteOp struct {
	Plan        *plan.Plan
	Fingerprint string
}

// DescribeOp reports the stage grouping of the requested nodes.
type DescribeOp struct {
	Workflow *workflow.Workflow
	Nodes    []string
}

// ListOp reports every declared node.
type ListOp struct {
	Workflow *workflow.Workflow
}

func (PlanOp) operation()     {}
func (ExecuteOp) operation()  {}
func (DescribeOp) operation() {}
func (ListOp) operation()     {}

// Result is what Dispatch returns; its concrete type mirrors the operation.
type Result interface {
	result()
}

// PlanResult carries the generated plan and its fingerprint.
type PlanResult struct {
	Plan        *plan.Plan
	Fingerprint string
}

// ExecuteResult wraps the runtime result.
type ExecuteResult struct {
	*exec.ExecutionResult
}

// DescribeResult is the stage grouping of node names.
type DescribeResult struct {
	ux.StagesView
}

// ListResult is the sorted node listing.
type ListResult struct {
	ux.NodeList
}

func (PlanResult) result()     {}
func (ExecuteResult) result()  {}
func (DescribeResult) result() {}
func (ListResult) result()     {}
