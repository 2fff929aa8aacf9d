package workflow

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// Validate checks the parts of a workflow that do not need the dependency
// graph. Unknown pre entries and matrix filters are reported at plan time.
func (w *Workflow) Validate() error {
	if w.Version == "" {
		return errors.NewWorkflowInvalidError("version is required", nil).
			WithSuggestion(fmt.Sprintf("Add version: %q at the top of the workflow", Version))
	}
	if w.Version != Version {
		return errors.NewWorkflowVersionError(w.Version, Version)
	}

	if w.Nodes.Len() == 0 {
		return errors.NewWorkflowInvalidError("no nodes declared", nil)
	}
	if err := validateCapture("workflow", w.Capture); err != nil {
		return err
	}
	if err := validateShell("workflow", w.Shell); err != nil {
		return err
	}

	for _, n := range w.Nodes.All() {
		if err := n.validate(); err != nil {
			return err
		}
	}

	for name, rule := range w.Watch {
		if err := w.validateWatch(name, rule); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) validate() error {
	if n.Name == "" {
		return errors.NewWorkflowInvalidError("node with an empty name", nil)
	}
	where := "node " + n.Name
	if err := validateCapture(where, n.Capture); err != nil {
		return err
	}
	if err := validateShell(where, n.Shell); err != nil {
		return err
	}
	for _, p := range n.Pre {
		if p == "" {
			return errors.NewWorkflowInvalidError(where+" has an empty pre entry", nil)
		}
	}

	for i, t := range n.Tasks {
		if t.Script == "" {
			return errors.NewWorkflowInvalidError(fmt.Sprintf("%s task %d has an empty script", where, i), nil)
		}
		if err := validateShell(fmt.Sprintf("%s task %d", where, i), t.Shell); err != nil {
			return err
		}
	}

	if n.Matrix != nil {
		if err := n.Matrix.validate(where); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matrix) validate(where string) error {
	switch {
	case m.Dense != nil && m.Sparse != nil:
		return errors.NewWorkflowInvalidError(where+" matrix sets both dense and sparse", nil)
	case m.Dense == nil && m.Sparse == nil:
		return errors.NewWorkflowInvalidError(where+" matrix sets neither dense nor sparse", nil)
	}
	for d, dim := range m.Dimensions() {
		for o, opt := range dim {
			if err := validateShell(fmt.Sprintf("%s matrix dimension %d option %d", where, d, o), opt.Shell); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Workflow) validateWatch(name string, rule *WatchRule) error {
	where := "watch rule " + name
	if rule == nil {
		return errors.NewWorkflowInvalidError(where+" is empty", nil)
	}
	if _, err := regexp.Compile(rule.Filter); err != nil {
		return errors.NewWorkflowInvalidError(where+" has an invalid filter", err)
	}
	for _, k := range rule.Kinds {
		if !slices.Contains(EventKinds, k) {
			return errors.NewWorkflowInvalidError(fmt.Sprintf("%s has unknown event kind %q", where, k), nil).
				WithSuggestion(fmt.Sprintf("Use any of %v", EventKinds))
		}
	}
	if rule.Debounce < 0 {
		return errors.NewWorkflowInvalidError(where+" has a negative debounce", nil)
	}
	if rule.Exec.Node == "" {
		return errors.NewWorkflowInvalidError(where+" does not name a node to run", nil)
	}
	if _, ok := w.Nodes.Get(rule.Exec.Node); !ok {
		return errors.NewUnknownNodeError(rule.Exec.Node, "")
	}
	return nil
}

func validateCapture(where, pattern string) error {
	if pattern == "" {
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return errors.NewWorkflowInvalidError(where+" has an invalid capture pattern", err)
	}
	return nil
}

func validateShell(where string, sh *scope.Shell) error {
	if sh != nil && sh.Program == "" {
		return errors.NewWorkflowInvalidError(where+" sets a shell without a program", nil)
	}
	return nil
}
