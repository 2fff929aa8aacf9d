package workflow

import (
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// GlobalFragment returns the workflow level overrides: the captured caller
// env, then the explicit env, workdir and shell.
func (w *Workflow) GlobalFragment(environ []string) (scope.Fragment, error) {
	return fragment(w.Capture, environ, w.Env, w.Workdir, w.Shell)
}

// Fragment returns the node level overrides: the env captured by the node's
// own pattern, then the explicit env, workdir and shell.
func (n *Node) Fragment(environ []string) (scope.Fragment, error) {
	return fragment(n.Capture, environ, n.Env, n.Workdir, n.Shell)
}

func fragment(capture string, environ []string, env map[string]string, workdir string, shell *scope.Shell) (scope.Fragment, error) {
	captured, err := scope.Capture(capture, environ)
	if err != nil {
		return scope.Fragment{}, err
	}
	f := scope.Fragment{Env: captured}
	return f.Merge(scope.Fragment{Env: env, Workdir: workdir, Shell: shell})
}

// Dimensions returns the matrix dimensions regardless of its kind.
func (m *Matrix) Dimensions() [][]scope.Fragment {
	switch {
	case m == nil:
		return nil
	case m.Dense != nil:
		return m.Dense.Dimensions
	case m.Sparse != nil:
		return m.Sparse.Dimensions
	}
	return nil
}
