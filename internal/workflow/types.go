package workflow

import (
	"time"

	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// Version is the only workflow format version this build reads.
const Version = "0.5"

// Workflow is a parsed workflow document.
type Workflow struct {
	Version string            `yaml:"version"`
	Env     map[string]string `yaml:"env,omitempty"`
	// Capture selects caller environment variables by name (regex).
	Capture string                `yaml:"capture,omitempty"`
	Workdir string                `yaml:"workdir,omitempty"`
	Shell   *scope.Shell          `yaml:"shell,omitempty"`
	Nodes   NodeSet               `yaml:"nodes"`
	Watch   map[string]*WatchRule `yaml:"watch,omitempty"`
}

// Node is one named task chain.
type Node struct {
	Name        string            `yaml:"-"`
	Description string            `yaml:"description,omitempty"`
	Pre         []string          `yaml:"pre,omitempty"`
	Capture     string            `yaml:"capture,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Workdir     string            `yaml:"workdir,omitempty"`
	Shell       *scope.Shell      `yaml:"shell,omitempty"`
	Matrix      *Matrix           `yaml:"matrix,omitempty"`
	Tasks       []Task            `yaml:"tasks"`
}

// Task is a single script run under the scope of its node and matrix cell.
type Task struct {
	Script  string            `yaml:"script"`
	Env     map[string]string `yaml:"env,omitempty"`
	Workdir string            `yaml:"workdir,omitempty"`
	Shell   *scope.Shell      `yaml:"shell,omitempty"`
}

// Fragment returns the task level overrides.
func (t Task) Fragment() scope.Fragment {
	return scope.Fragment{Env: t.Env, Workdir: t.Workdir, Shell: t.Shell}
}

// Matrix parameterizes a node. Exactly one of Dense or Sparse is set.
type Matrix struct {
	Dense  *Dense  `yaml:"dense,omitempty"`
	Sparse *Sparse `yaml:"sparse,omitempty"`
}

// Dense is the full cartesian product of its dimensions.
type Dense struct {
	Dimensions [][]scope.Fragment `yaml:"dimensions"`
}

// Sparse is the cartesian product of its dimensions filtered by Keep and Drop.
// Both are regular expressions matched against the cell index, e.g. "0,1,0".
type Sparse struct {
	Dimensions [][]scope.Fragment `yaml:"dimensions"`
	Keep       string             `yaml:"keep,omitempty"`
	Drop       string             `yaml:"drop,omitempty"`
}

// WatchRule binds file system events under the watch root to a node.
type WatchRule struct {
	Name string `yaml:"-"`
	// Filter is a regex matched against the slash separated path relative to the root.
	Filter string `yaml:"filter"`
	// Kinds restricts the event kinds; empty means all of them.
	Kinds    []string      `yaml:"kinds,omitempty"`
	Queue    bool          `yaml:"queue,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty"`
	Exec     WatchExec     `yaml:"exec"`
}

// WatchExec names the node a watch rule runs and the template arguments it passes.
type WatchExec struct {
	Node string            `yaml:"node"`
	Args map[string]string `yaml:"args,omitempty"`
}

// EventKinds are the accepted values of WatchRule.Kinds.
var EventKinds = []string{"create", "write", "remove", "rename", "chmod"}
