package scope

import (
	"fmt"
	"maps"
	"sort"

	"dario.cat/mergo"
)

// Shell is the interpreter a script is handed to: Program Args... script.
type Shell struct {
	Program string   `yaml:"program" json:"program" toml:"program" hcl:"program"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty" toml:"args,omitempty" hcl:"args,optional"`
}

// DefaultShell is the process-wide root shell used when no level sets one.
func DefaultShell() Shell {
	return Shell{Program: "sh", Args: []string{"-c"}}
}

// Clone returns a copy that shares no backing storage with s.
func (s Shell) Clone() Shell {
	return Shell{Program: s.Program, Args: CloneArgs(s.Args)}
}

// Command returns the argv for running script under s.
func (s Shell) Command(script string) (string, []string) {
	args := make([]string, 0, len(s.Args)+1)
	args = append(args, s.Args...)
	return s.Program, append(args, script)
}

// Fragment is a partial scope as written at one level of a workflow.
// Zero fields mean "inherit from the enclosing level".
type Fragment struct {
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Workdir string            `yaml:"workdir,omitempty" json:"workdir,omitempty"`
	Shell   *Shell            `yaml:"shell,omitempty" json:"shell,omitempty"`
}

// IsZero reports whether f overrides nothing.
func (f Fragment) IsZero() bool {
	return len(f.Env) == 0 && f.Workdir == "" && f.Shell == nil
}

// Merge layers inner over f and returns the combined fragment. Neither input is modified.
func (f Fragment) Merge(inner Fragment) (Fragment, error) {
	env, err := mergeEnv(f.Env, inner.Env)
	if err != nil {
		return Fragment{}, err
	}
	out := Fragment{
		Env:     env,
		Workdir: f.Workdir,
		Shell:   f.Shell,
	}
	if inner.Workdir != "" {
		out.Workdir = inner.Workdir
	}
	if inner.Shell != nil {
		out.Shell = inner.Shell
	}
	if out.Shell != nil {
		sh := out.Shell.Clone()
		out.Shell = &sh
	}
	return out, nil
}

// Scope is the fully resolved tuple attached to one task execution.
type Scope struct {
	Env     map[string]string
	Workdir string
	Shell   Shell
}

// Root returns the outermost scope: no env, inherited workdir and the given shell.
func Root(shell Shell) Scope {
	return Scope{Env: map[string]string{}, Shell: shell.Clone()}
}

// Apply layers f over s and returns the result. s is not modified.
func (s Scope) Apply(f Fragment) (Scope, error) {
	env, err := mergeEnv(s.Env, f.Env)
	if err != nil {
		return Scope{}, err
	}
	out := Scope{
		Env:     env,
		Workdir: s.Workdir,
		Shell:   s.Shell.Clone(),
	}
	if f.Workdir != "" {
		out.Workdir = f.Workdir
	}
	if f.Shell != nil {
		out.Shell = f.Shell.Clone()
	}
	return out, nil
}

// Resolve folds levels, outer to inner, over base.
func Resolve(base Scope, levels ...Fragment) (Scope, error) {
	out, err := base.Apply(Fragment{})
	if err != nil {
		return Scope{}, err
	}
	for _, f := range levels {
		if out, err = out.Apply(f); err != nil {
			return Scope{}, err
		}
	}
	return out, nil
}

// Environ renders the env map as sorted KEY=VALUE pairs.
func (s Scope) Environ() []string {
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+s.Env[k])
	}
	return out
}

// mergeEnv returns a new map holding outer overlaid by inner. The result is never nil.
func mergeEnv(outer, inner map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(outer)+len(inner))
	if err := mergo.Merge(&out, outer); err != nil {
		return nil, fmt.Errorf("merge env: %w", err)
	}
	if err := mergo.Merge(&out, inner, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge env: %w", err)
	}
	return out, nil
}

// CloneEnv copies m into a non-nil map.
func CloneEnv(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	maps.Copy(out, m)
	return out
}

// CloneArgs copies args, returning nil for an empty list.
func CloneArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return append([]string(nil), args...)
}
