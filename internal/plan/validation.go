package plan

import (
	"fmt"
	"strings"
)

// Validate checks the structural rules every plan satisfies: stages are
// numbered from zero without gaps, a node lives in exactly one stage, a cell
// appears once per node, tasks are numbered in order and every scope names a
// shell program.
func (p *Plan) Validate() error {
	stageOf := make(map[string]int)
	cells := make(map[string]bool)

	for i, s := range p.Stages {
		if s.Index != i {
			return fmt.Errorf("stage at position %d has index %d", i, s.Index)
		}
		for _, inv := range s.Invocations {
			if strings.TrimSpace(inv.Node) == "" {
				return fmt.Errorf("stage %d has an invocation without a node name", i)
			}
			if prev, ok := stageOf[inv.Node]; ok && prev != i {
				return fmt.Errorf("node %s appears in stages %d and %d", inv.Node, prev, i)
			}
			stageOf[inv.Node] = i

			key := inv.Node + "\x00" + inv.CellString()
			if cells[key] {
				return fmt.Errorf("invocation %s appears more than once", inv.ID())
			}
			cells[key] = true

			if err := inv.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (i *Invocation) validate() error {
	for _, c := range i.Cell {
		if c < 0 {
			return fmt.Errorf("invocation %s has a negative cell index", i.ID())
		}
	}
	if i.Scope.Shell.Program == "" {
		return fmt.Errorf("invocation %s has an empty shell program", i.ID())
	}
	for n, t := range i.Tasks {
		if t.Index != n {
			return fmt.Errorf("invocation %s task at position %d has index %d", i.ID(), n, t.Index)
		}
		if t.Scope.Shell.Program == "" {
			return fmt.Errorf("invocation %s task %d has an empty shell program", i.ID(), n)
		}
	}
	return nil
}
