package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/exec"
	"github.com/felixgeelhaar/chainrun/internal/tui"
)

// IOStreams are the standard streams a command reads and writes.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// DefaultStreams returns the process streams.
func DefaultStreams() IOStreams {
	return IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
}

// app carries what commands share besides flags. Tests replace the spawner
// and the prompt.
type app struct {
	streams     IOStreams
	spawner     exec.Spawner
	confirm     tui.Confirmer
	interactive func() bool
}

// Option customizes the root command.
type Option func(*app)

// WithSpawner replaces the process boundary used by execute and watch.
func WithSpawner(s exec.Spawner) Option {
	return func(a *app) { a.spawner = s }
}

// WithConfirmer replaces the confirmation prompt used by execute --confirm.
func WithConfirmer(c tui.Confirmer, interactive func() bool) Option {
	return func(a *app) {
		a.confirm = c
		a.interactive = interactive
	}
}

// NewRootCommand builds the chainrun command tree.
func NewRootCommand(streams IOStreams, opts ...Option) *cobra.Command {
	a := &app{
		streams:     streams,
		confirm:     tui.PromptForConfirmation,
		interactive: tui.ShouldPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "chainrun",
		Short: "Declarative task runner",
		Long: `chainrun runs named task chains declared in a workflow file.

Nodes depend on other nodes through pre, expand over a parameter matrix and
run their tasks in order. The dependency graph is resolved into stages whose
invocations run in parallel on a bounded worker pool.

Use 'chainrun plan' to resolve nodes into a plan document and
'chainrun execute' to run it, or pipe one into the other.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(streams.In)
	rootCmd.SetOut(streams.Out)
	rootCmd.SetErr(streams.ErrOut)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(
		a.newPlanCommand(),
		a.newExecuteCommand(),
		a.newDescribeCommand(),
		a.newListCommand(),
		a.newWatchCommand(),
		a.newWorkflowCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// ExecuteContext runs the root command with the process streams.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand(DefaultStreams()).ExecuteContext(ctx)
}
