package workflow

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

const sampleYAML = `
version: "0.5"
env:
  A: "1"
nodes:
  zeta:
    tasks:
      - script: echo zeta
  alpha:
    description: first letter
    pre: [zeta]
    env:
      B: "2"
    matrix:
      - - env: { OS: linux }
        - env: { OS: darwin }
      - - env: { ARCH: amd64 }
    tasks:
      - script: echo $OS
      - script: echo again
        workdir: /tmp
        shell:
          program: bash
          args: ["-c"]
  mid:
    matrix:
      sparse:
        dimensions:
          - - env: { X: "0" }
            - env: { X: "1" }
        keep: "^1$"
    tasks:
      - script: echo mid
watch:
  src:
    filter: "\\.go$"
    debounce: 100ms
    queue: true
    exec:
      node: alpha
      args:
        pkg: ./...
`

func TestDecodeYAMLKeepsDeclarationOrder(t *testing.T) {
	wf, err := Parse([]byte(sampleYAML), "wf.yaml", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, wf.Nodes.Names())

	alpha, ok := wf.Nodes.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "first letter", alpha.Description)
	assert.Equal(t, []string{"zeta"}, alpha.Pre)
	require.Len(t, alpha.Tasks, 2)
	assert.Equal(t, "/tmp", alpha.Tasks[1].Workdir)
	require.NotNil(t, alpha.Tasks[1].Shell)
	assert.Equal(t, "bash", alpha.Tasks[1].Shell.Program)

	i, ok := wf.Nodes.Index("mid")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = wf.Nodes.Get("missing")
	assert.False(t, ok)
}

func TestDecodeYAMLMatrixForms(t *testing.T) {
	wf, err := Parse([]byte(sampleYAML), "wf.yaml", nil)
	require.NoError(t, err)

	alpha, _ := wf.Nodes.Get("alpha")
	require.NotNil(t, alpha.Matrix)
	require.NotNil(t, alpha.Matrix.Dense, "list of lists is dense shorthand")
	assert.Nil(t, alpha.Matrix.Sparse)
	dims := alpha.Matrix.Dimensions()
	require.Len(t, dims, 2)
	assert.Len(t, dims[0], 2)
	assert.Equal(t, map[string]string{"OS": "darwin"}, dims[0][1].Env)

	mid, _ := wf.Nodes.Get("mid")
	require.NotNil(t, mid.Matrix.Sparse)
	assert.Equal(t, "^1$", mid.Matrix.Sparse.Keep)
	assert.Len(t, mid.Matrix.Dimensions(), 1)

	zeta, _ := wf.Nodes.Get("zeta")
	assert.Nil(t, zeta.Matrix.Dimensions())
}

func TestDecodeYAMLWatch(t *testing.T) {
	wf, err := Parse([]byte(sampleYAML), "wf.yaml", nil)
	require.NoError(t, err)

	rule := wf.Watch["src"]
	require.NotNil(t, rule)
	assert.Equal(t, "src", rule.Name)
	assert.Equal(t, 100*time.Millisecond, rule.Debounce)
	assert.True(t, rule.Queue)
	assert.Equal(t, "alpha", rule.Exec.Node)
	assert.Equal(t, map[string]string{"pkg": "./..."}, rule.Exec.Args)
}

func TestDecodeYAMLDuplicateNode(t *testing.T) {
	doc := `
version: "0.5"
nodes:
  a:
    tasks: [{script: x}]
  a:
    tasks: [{script: y}]
`
	_, err := Parse([]byte(doc), "wf.yaml", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowInvalid))
}

func TestDecodeYAMLRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "top level",
			doc: `
version: "0.5"
nodez: {}
nodes:
  a:
    tasks: [{script: x}]
`,
			want: "nodez",
		},
		{
			name: "node field",
			doc: `
version: "0.5"
nodes:
  build:
    tasks: [{script: make}]
  deploy:
    pres: [build]
    tasks: [{script: ship}]
`,
			want: "pres",
		},
		{
			name: "task field",
			doc: `
version: "0.5"
nodes:
  deploy:
    tasks:
      - script: ship
        enw: {X: "1"}
`,
			want: "enw",
		},
		{
			name: "matrix key",
			doc: `
version: "0.5"
nodes:
  deploy:
    matrix:
      sparce:
        dimensions: [[{env: {A: "1"}}]]
    tasks: [{script: ship}]
`,
			want: "sparce",
		},
		{
			name: "matrix cell field",
			doc: `
version: "0.5"
nodes:
  deploy:
    matrix:
      - - {env: {A: "1"}, workdri: /tmp}
    tasks: [{script: ship}]
`,
			want: "workdri",
		},
		{
			name: "shell field",
			doc: `
version: "0.5"
nodes:
  deploy:
    shell: {program: bash, argv: ["-c"]}
    tasks: [{script: ship}]
`,
			want: "argv",
		},
		{
			name: "watch rule field",
			doc: `
version: "0.5"
nodes:
  a:
    tasks: [{script: x}]
watch:
  src:
    filter: ".*"
    debounse: 1s
    exec: {node: a}
`,
			want: "debounse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "wf.yaml", nil)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowInvalid))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeYAMLAnchorsStayStrict(t *testing.T) {
	doc := `
version: "0.5"
nodes:
  base:
    env: &common {A: "1"}
    tasks: [{script: x}]
  other:
    env: *common
    tasks: [{script: y}]
`
	wf, err := Parse([]byte(doc), "wf.yaml", nil)
	require.NoError(t, err)
	other, ok := wf.Nodes.Get("other")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"A": "1"}, other.Env)

	bad := `
version: "0.5"
nodes:
  base:
    tasks: &steps [{script: x, scirpt: y}]
  other:
    tasks: *steps
`
	_, err = Parse([]byte(bad), "wf.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scirpt")
}

func TestFileRepositoryLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	wf, err := NewFileRepository(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, wf.Nodes.Len())

	_, err = NewFileRepository(nil).Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowNotFound))
}

func TestGlobalAndNodeFragments(t *testing.T) {
	wf := &Workflow{
		Capture: "^CI_",
		Env:     map[string]string{"CI_JOB": "explicit", "A": "1"},
		Workdir: "/srv",
	}
	environ := []string{"CI_JOB=captured", "CI_RUNNER=r1", "HOME=/root"}

	f, err := wf.GlobalFragment(environ)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"CI_JOB": "explicit", "CI_RUNNER": "r1", "A": "1"}, f.Env)
	assert.Equal(t, "/srv", f.Workdir)
	assert.Nil(t, f.Shell)

	n := &Node{Name: "n", Capture: "^HOME$", Shell: &scope.Shell{Program: "bash"}}
	nf, err := n.Fragment(environ)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"HOME": "/root"}, nf.Env)
	require.NotNil(t, nf.Shell)
	assert.Equal(t, "bash", nf.Shell.Program)
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, []string{"max", "min"}, TemplateNames())

	for _, name := range TemplateNames() {
		t.Run(name, func(t *testing.T) {
			data, err := Template(name)
			require.NoError(t, err)
			wf, err := Parse(data, name+".yaml", nil)
			require.NoError(t, err)
			assert.Equal(t, Version, wf.Version)
		})
	}

	_, err := Template("nope")
	assert.Error(t, err)
}

func TestNodeSetMarshalKeepsOrder(t *testing.T) {
	set, err := NewNodeSet(&Node{Name: "b", Tasks: []Task{{Script: "x"}}}, &Node{Name: "a", Tasks: []Task{{Script: "y"}}})
	require.NoError(t, err)

	out, err := set.MarshalYAML()
	require.NoError(t, err)
	node, ok := out.(*yaml.Node)
	require.True(t, ok)
	require.Len(t, node.Content, 4)
	assert.Equal(t, "b", node.Content[0].Value)
	assert.Equal(t, "a", node.Content[2].Value)

	_, err = NewNodeSet(&Node{Name: "a"}, &Node{Name: "a"})
	assert.Error(t, err)
}
