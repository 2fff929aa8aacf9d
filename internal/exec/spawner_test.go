package exec

import (
	"bytes"
	"context"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := osexec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestShellSpawner(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	tests := []struct {
		name     string
		cmd      Command
		wantCode int
		wantOut  string
	}{
		{
			name:    "env and workdir",
			cmd:     Command{Program: "sh", Args: []string{"-c"}, Script: `echo "$GREETING"; basename "$(pwd)"`, Env: map[string]string{"GREETING": "hi"}, Dir: dir},
			wantOut: "hi\n" + filepath.Base(dir) + "\n",
		},
		{
			name:     "exit code",
			cmd:      Command{Program: "sh", Args: []string{"-c"}, Script: "exit 3"},
			wantCode: 3,
		},
		{
			name:    "stderr is captured",
			cmd:     Command{Program: "sh", Args: []string{"-c"}, Script: "echo oops >&2"},
			wantOut: "oops\n",
		},
		{
			name:    "caller environment is inherited",
			cmd:     Command{Program: "sh", Args: []string{"-c"}, Script: `echo "$FROM_CALLER"`},
			wantOut: "caller\n",
		},
	}

	spawner := ShellSpawner{Environ: func() []string { return []string{"FROM_CALLER=caller", "PATH=/usr/bin:/bin"} }}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tt.cmd.Stdout, tt.cmd.Stderr = &out, &out

			code, err := spawner.Spawn(context.Background(), tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}

func TestShellSpawnerStartFailure(t *testing.T) {
	_, err := ShellSpawner{}.Spawn(context.Background(), Command{Program: "definitely-not-a-program-chainrun", Script: "x"})
	require.Error(t, err)

	requireShell(t)
	_, err = ShellSpawner{}.Spawn(context.Background(), Command{Program: "sh", Args: []string{"-c"}, Script: "true", Dir: "/nonexistent/dir"})
	assert.Error(t, err)
}

func TestCommandArgv(t *testing.T) {
	c := Command{Program: "python3", Script: "print(1)"}
	assert.Equal(t, "python3 print(1)", strings.Join(c.Argv(), " "))
}
