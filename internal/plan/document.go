package plan

import (
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// DocumentVersion is written into every encoded plan and checked on decode.
const DocumentVersion = "1"

// Document is the syntax independent form of a plan.
type Document struct {
	Version string     `yaml:"version" json:"version" toml:"version"`
	Stages  []StageDoc `yaml:"stages" json:"stages" toml:"stages"`
}

// StageDoc is one encoded stage.
type StageDoc struct {
	Index       int             `yaml:"index" json:"index" toml:"index"`
	Invocations []InvocationDoc `yaml:"invocations" json:"invocations" toml:"invocations"`
}

// InvocationDoc is one encoded invocation.
type InvocationDoc struct {
	Node  string    `yaml:"node" json:"node" toml:"node"`
	Cell  []int     `yaml:"cell,omitempty" json:"cell,omitempty" toml:"cell,omitempty"`
	Scope ScopeDoc  `yaml:"scope" json:"scope" toml:"scope"`
	Tasks []TaskDoc `yaml:"tasks" json:"tasks" toml:"tasks"`
}

// TaskDoc is one encoded task.
type TaskDoc struct {
	Index  int      `yaml:"index" json:"index" toml:"index"`
	Script string   `yaml:"script" json:"script" toml:"script"`
	Scope  ScopeDoc `yaml:"scope" json:"scope" toml:"scope"`
}

// ScopeDoc is an encoded resolved scope.
type ScopeDoc struct {
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty" toml:"env,omitempty"`
	Workdir string            `yaml:"workdir,omitempty" json:"workdir,omitempty" toml:"workdir,omitempty"`
	Shell   scope.Shell       `yaml:"shell" json:"shell" toml:"shell"`
}

// ToDocument converts p into its encodable form.
func ToDocument(p *Plan) *Document {
	doc := &Document{Version: DocumentVersion}
	for _, s := range p.Stages {
		sd := StageDoc{Index: s.Index, Invocations: []InvocationDoc{}}
		for _, inv := range s.Invocations {
			id := InvocationDoc{
				Node:  inv.Node,
				Cell:  cloneCell(inv.Cell),
				Scope: toScopeDoc(inv.Scope),
				Tasks: []TaskDoc{},
			}
			for _, t := range inv.Tasks {
				id.Tasks = append(id.Tasks, TaskDoc{Index: t.Index, Script: t.Script, Scope: toScopeDoc(t.Scope)})
			}
			sd.Invocations = append(sd.Invocations, id)
		}
		doc.Stages = append(doc.Stages, sd)
	}
	return doc
}

// FromDocument converts an encoded plan back. Empty collections come back
// in the same shape the planner produces, so a round trip is lossless.
func FromDocument(doc *Document) *Plan {
	p := &Plan{}
	for _, sd := range doc.Stages {
		s := Stage{Index: sd.Index}
		for _, id := range sd.Invocations {
			inv := Invocation{
				Node:  id.Node,
				Cell:  cloneCell(id.Cell),
				Scope: fromScopeDoc(id.Scope),
			}
			for _, td := range id.Tasks {
				inv.Tasks = append(inv.Tasks, Task{Index: td.Index, Script: td.Script, Scope: fromScopeDoc(td.Scope)})
			}
			s.Invocations = append(s.Invocations, inv)
		}
		p.Stages = append(p.Stages, s)
	}
	return p
}

func toScopeDoc(s scope.Scope) ScopeDoc {
	return ScopeDoc{Env: scope.CloneEnv(s.Env), Workdir: s.Workdir, Shell: s.Shell.Clone()}
}

func fromScopeDoc(d ScopeDoc) scope.Scope {
	return scope.Scope{Env: scope.CloneEnv(d.Env), Workdir: d.Workdir, Shell: d.Shell.Clone()}
}

func cloneCell(c []int) []int {
	if len(c) == 0 {
		return nil
	}
	return append([]int(nil), c...)
}
