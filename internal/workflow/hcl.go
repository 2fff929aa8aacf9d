package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// hclRoot is the top level of an HCL workflow file.
type hclRoot struct {
	Version string            `hcl:"version"`
	Env     map[string]string `hcl:"env,optional"`
	Capture string            `hcl:"capture,optional"`
	Workdir string            `hcl:"workdir,optional"`
	Shell   *scope.Shell      `hcl:"shell,block"`
	Nodes   []*hclNode        `hcl:"node,block"`
	Watches []*hclWatch       `hcl:"watch,block"`
}

type hclNode struct {
	Name        string            `hcl:"name,label"`
	Description string            `hcl:"description,optional"`
	Pre         []string          `hcl:"pre,optional"`
	Capture     string            `hcl:"capture,optional"`
	Env         map[string]string `hcl:"env,optional"`
	Workdir     string            `hcl:"workdir,optional"`
	Shell       *scope.Shell      `hcl:"shell,block"`
	Matrix      *hclMatrix        `hcl:"matrix,block"`
	Tasks       []*hclTask        `hcl:"task,block"`
}

type hclTask struct {
	Script  string            `hcl:"script"`
	Env     map[string]string `hcl:"env,optional"`
	Workdir string            `hcl:"workdir,optional"`
	Shell   *scope.Shell      `hcl:"shell,block"`
}

// hclMatrix is sparse when either filter is set and dense otherwise.
type hclMatrix struct {
	Keep       string          `hcl:"keep,optional"`
	Drop       string          `hcl:"drop,optional"`
	Dimensions []*hclDimension `hcl:"dimension,block"`
}

type hclDimension struct {
	Options []*hclOption `hcl:"option,block"`
}

type hclOption struct {
	Env     map[string]string `hcl:"env,optional"`
	Workdir string            `hcl:"workdir,optional"`
	Shell   *scope.Shell      `hcl:"shell,block"`
}

type hclWatch struct {
	Name     string   `hcl:"name,label"`
	Filter   string   `hcl:"filter"`
	Kinds    []string `hcl:"kinds,optional"`
	Queue    bool     `hcl:"queue,optional"`
	Debounce string   `hcl:"debounce,optional"`
	Exec     hclExec  `hcl:"exec,block"`
}

type hclExec struct {
	Node string            `hcl:"node"`
	Args map[string]string `hcl:"args,optional"`
}

// DecodeHCL decodes an HCL workflow without validating it. The caller
// environment is available to expressions as env.NAME.
func DecodeHCL(data []byte, filename string, environ []string) (*Workflow, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.NewWorkflowInvalidError("parse hcl", diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, evalContext(environ), &root); diags.HasErrors() {
		return nil, errors.NewWorkflowInvalidError("decode hcl", diags)
	}
	return root.translate()
}

func evalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !isIdentifier(k) {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

// isIdentifier reports whether k can be referenced as env.k.
func isIdentifier(k string) bool {
	for i, r := range k {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

func (r *hclRoot) translate() (*Workflow, error) {
	wf := &Workflow{
		Version: r.Version,
		Env:     r.Env,
		Capture: r.Capture,
		Workdir: r.Workdir,
		Shell:   r.Shell,
	}

	for _, hn := range r.Nodes {
		n := &Node{
			Name:        hn.Name,
			Description: hn.Description,
			Pre:         hn.Pre,
			Capture:     hn.Capture,
			Env:         hn.Env,
			Workdir:     hn.Workdir,
			Shell:       hn.Shell,
			Matrix:      hn.Matrix.translate(),
		}
		for _, ht := range hn.Tasks {
			n.Tasks = append(n.Tasks, Task{Script: ht.Script, Env: ht.Env, Workdir: ht.Workdir, Shell: ht.Shell})
		}
		if err := wf.Nodes.Add(n); err != nil {
			return nil, errors.NewWorkflowInvalidError("decode hcl", err)
		}
	}

	for _, hw := range r.Watches {
		if wf.Watch == nil {
			wf.Watch = make(map[string]*WatchRule)
		}
		if _, dup := wf.Watch[hw.Name]; dup {
			return nil, errors.NewWorkflowInvalidError(fmt.Sprintf("watch rule %q declared more than once", hw.Name), nil)
		}
		rule := &WatchRule{
			Name:   hw.Name,
			Filter: hw.Filter,
			Kinds:  hw.Kinds,
			Queue:  hw.Queue,
			Exec:   WatchExec{Node: hw.Exec.Node, Args: hw.Exec.Args},
		}
		if hw.Debounce != "" {
			d, err := time.ParseDuration(hw.Debounce)
			if err != nil {
				return nil, errors.NewWorkflowInvalidError(fmt.Sprintf("watch rule %q has an invalid debounce", hw.Name), err)
			}
			rule.Debounce = d
		}
		wf.Watch[hw.Name] = rule
	}
	return wf, nil
}

func (m *hclMatrix) translate() *Matrix {
	if m == nil {
		return nil
	}
	dims := make([][]scope.Fragment, 0, len(m.Dimensions))
	for _, d := range m.Dimensions {
		opts := make([]scope.Fragment, 0, len(d.Options))
		for _, o := range d.Options {
			opts = append(opts, scope.Fragment{Env: o.Env, Workdir: o.Workdir, Shell: o.Shell})
		}
		dims = append(dims, opts)
	}
	if m.Keep != "" || m.Drop != "" {
		return &Matrix{Sparse: &Sparse{Dimensions: dims, Keep: m.Keep, Drop: m.Drop}}
	}
	return &Matrix{Dense: &Dense{Dimensions: dims}}
}
