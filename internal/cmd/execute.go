package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/engine"
	"github.com/felixgeelhaar/chainrun/internal/plan"
	"github.com/felixgeelhaar/chainrun/internal/tui"
)

type executeOptions struct {
	format      string
	file        string
	fingerprint string
	confirm     bool
}

func (a *app) newExecuteCommand() *cobra.Command {
	opts := &executeOptions{}
	cmd := &cobra.Command{
		Use:     "execute",
		Aliases: []string{"exec", "x"},
		Short:   "Run a plan",
		Long: `Read a plan document and run it. Stages run in order; the invocations
of a stage run on a pool of --workers. When an invocation fails its stage
drains and no later stage starts.

An interrupt stops dispatch. Invocations that already started run to
completion, the rest are skipped.`,
		Example: `  chainrun plan -n build | chainrun execute -w 4
  chainrun execute --plan plan.yaml --fingerprint 3f2a... --confirm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runExecute(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", string(plan.FormatYAML), "plan format (yaml, json, json+p, toml)")
	f.StringVar(&opts.file, "plan", plan.Stdio, "plan file, - for stdin")
	f.IntP("workers", "w", 1, "number of invocations run in parallel")
	f.StringP("prefix", "p", "==> ", "prefix for every line of task output")
	f.BoolP("silent", "s", false, "suppress task output")
	f.StringVar(&opts.fingerprint, "fingerprint", "", "refuse to run unless the plan has this fingerprint")
	f.BoolVar(&opts.confirm, "confirm", false, "ask for confirmation before running")
	return cmd
}

func (a *app) runExecute(cmd *cobra.Command, opts *executeOptions) error {
	format, err := plan.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.confirm {
		if opts.file == "" || opts.file == plan.Stdio {
			return usageErrorf("--confirm reads the answer from the terminal and needs --plan <file>")
		}
		if !a.interactive() {
			return usageErrorf("--confirm needs an interactive terminal")
		}
	}

	cc, err := a.newCommandContext(cmd)
	if err != nil {
		return err
	}

	p, err := plan.LoadPlan(opts.file, format, cc.Streams.In)
	if err != nil {
		return err
	}

	if opts.confirm {
		fp, err := plan.Fingerprint(p)
		if err != nil {
			return err
		}
		ok, err := a.confirm(tui.Confirmation{
			Title:       fmt.Sprintf("Run %d invocations in %d stages?", p.InvocationCount(), len(p.Stages)),
			Description: fmt.Sprintf("nodes: %s\nfingerprint: %s", strings.Join(p.Nodes(), ", "), fp),
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("execution aborted")
		}
	}

	res, err := engine.DispatchAs[engine.ExecuteResult](cmd.Context(), cc.Engine, engine.ExecuteOp{
		Plan:        p,
		Fingerprint: opts.fingerprint,
	})
	if res.ExecutionResult != nil {
		cc.Indicator.PrintSummary(res.Summary())
	}
	return err
}
