package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	global, err := Root(DefaultShell()).Apply(Fragment{Env: map[string]string{"A": "1"}})
	require.NoError(t, err)
	node := Fragment{Env: map[string]string{"A": "2", "B": "1"}}
	cell := Fragment{Env: map[string]string{"B": "2"}}
	task := Fragment{}

	got, err := Resolve(global, node, cell, task)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A": "2", "B": "2"}, got.Env)
	assert.Equal(t, DefaultShell(), got.Shell)
	assert.Empty(t, got.Workdir)
}

func TestResolveWholeValueOverrides(t *testing.T) {
	bash := &Shell{Program: "bash", Args: []string{"-eu", "-c"}}
	python := &Shell{Program: "python3"}

	tests := []struct {
		name        string
		levels      []Fragment
		wantWorkdir string
		wantShell   Shell
	}{
		{
			name:        "nothing set inherits root",
			levels:      []Fragment{{}, {}},
			wantWorkdir: "",
			wantShell:   DefaultShell(),
		},
		{
			name:        "node workdir and shell",
			levels:      []Fragment{{Workdir: "/srv", Shell: bash}, {}},
			wantWorkdir: "/srv",
			wantShell:   *bash,
		},
		{
			name:        "innermost wins",
			levels:      []Fragment{{Workdir: "/srv", Shell: bash}, {Workdir: "/tmp"}, {Shell: python}},
			wantWorkdir: "/tmp",
			wantShell:   Shell{Program: "python3"},
		},
		{
			name:        "shell args are not inherited from an outer shell",
			levels:      []Fragment{{Shell: bash}, {Shell: &Shell{Program: "zsh"}}},
			wantWorkdir: "",
			wantShell:   Shell{Program: "zsh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(Root(DefaultShell()), tt.levels...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWorkdir, got.Workdir)
			assert.Equal(t, tt.wantShell, got.Shell)
		})
	}
}

func TestApplyDoesNotAlias(t *testing.T) {
	base, err := Root(DefaultShell()).Apply(Fragment{Env: map[string]string{"A": "1"}})
	require.NoError(t, err)
	derived, err := base.Apply(Fragment{Env: map[string]string{"B": "2"}})
	require.NoError(t, err)

	derived.Env["C"] = "3"
	derived.Shell.Args[0] = "-x"

	assert.Equal(t, map[string]string{"A": "1"}, base.Env)
	assert.Equal(t, []string{"-c"}, base.Shell.Args)
}

func TestFragmentMerge(t *testing.T) {
	outer := Fragment{Env: map[string]string{"OS": "linux", "ARCH": "amd64"}, Workdir: "a"}
	inner := Fragment{Env: map[string]string{"ARCH": "arm64"}, Shell: &Shell{Program: "bash"}}

	got, err := outer.Merge(inner)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"OS": "linux", "ARCH": "arm64"}, got.Env)
	assert.Equal(t, "a", got.Workdir)
	require.NotNil(t, got.Shell)
	assert.Equal(t, "bash", got.Shell.Program)
	assert.NotSame(t, inner.Shell, got.Shell)
	assert.Equal(t, "amd64", outer.Env["ARCH"])

	assert.True(t, Fragment{}.IsZero())
	assert.False(t, got.IsZero())
}

func TestMergeEnvKeepsEmptyValues(t *testing.T) {
	got, err := mergeEnv(map[string]string{"A": "1", "B": ""}, map[string]string{"A": "", "C": ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "", "B": "", "C": ""}, got)

	got, err = mergeEnv(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEnviron(t *testing.T) {
	s := Scope{Env: map[string]string{"B": "2", "A": "1"}}
	assert.Equal(t, []string{"A=1", "B=2"}, s.Environ())
}

func TestShellCommand(t *testing.T) {
	program, args := DefaultShell().Command("echo hi")
	assert.Equal(t, "sh", program)
	assert.Equal(t, []string{"-c", "echo hi"}, args)

	program, args = Shell{Program: "python3"}.Command("print(1)")
	assert.Equal(t, "python3", program)
	assert.Equal(t, []string{"print(1)"}, args)
}

func TestCloneHelpers(t *testing.T) {
	assert.NotNil(t, CloneEnv(nil))
	assert.Nil(t, CloneArgs([]string{}))
	assert.Equal(t, []string{"x"}, CloneArgs([]string{"x"}))
}

func TestCapture(t *testing.T) {
	environ := []string{"HOME=/home/me", "CI_JOB=42", "CI_TOKEN=abc=def", "PATH=/bin", "broken"}

	got, err := Capture("^CI_", environ)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"CI_JOB": "42", "CI_TOKEN": "abc=def"}, got)

	got, err = Capture("", environ)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Capture("(", environ)
	assert.Error(t, err)
}
