package exec

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	osexec "os/exec"

	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// Command is one task process to start.
type Command struct {
	Program string
	Args    []string
	Script  string
	// Env is the resolved scope env, layered over the caller environment.
	Env    map[string]string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Argv returns the program followed by its arguments and the script.
func (c Command) Argv() []string {
	program, args := scope.Shell{Program: c.Program, Args: c.Args}.Command(c.Script)
	return append([]string{program}, args...)
}

// Spawner starts task processes and waits for them.
type Spawner interface {
	// Spawn runs cmd to completion and returns its exit code. A non-nil
	// error means the process could not be started.
	Spawn(ctx context.Context, cmd Command) (int, error)
}

// ShellSpawner runs commands as child processes of the current one.
//
// Cancellation of ctx does not kill a running child; it is left to finish
// so an interrupted run drains instead of leaving half-done work behind.
type ShellSpawner struct {
	// Environ returns the caller environment; nil uses os.Environ.
	Environ func() []string
}

// Spawn implements Spawner.
func (s ShellSpawner) Spawn(_ context.Context, c Command) (int, error) {
	argv := c.Argv()
	cmd := osexec.Command(argv[0], argv[1:]...)

	environ := os.Environ
	if s.Environ != nil {
		environ = s.Environ
	}
	cmd.Env = append(environ(), scope.Scope{Env: c.Env}.Environ()...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *osexec.ExitError
		if stderrors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}
