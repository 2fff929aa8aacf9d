package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/engine"
	"github.com/felixgeelhaar/chainrun/internal/scope"
	"github.com/felixgeelhaar/chainrun/internal/watch"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

type watchOptions struct {
	workflow string
	root     string
}

func (a *app) newWatchCommand() *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"w"},
		Short:   "Run nodes when files change",
		Long: `Watch the directory tree under --root and run the node bound to each
watch rule of the workflow when a matching file changes. The workflow is read
again before every run, so edits to it take effect on the next trigger.

Runs that fail are logged and watching continues until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.workflow, "workflow", "", "workflow file (default: discover .chainrun.yaml)")
	f.StringVar(&opts.root, "root", ".", "directory to watch")
	f.IntP("workers", "w", 1, "number of invocations run in parallel")
	f.StringP("prefix", "p", "==> ", "prefix for every line of task output")
	f.BoolP("silent", "s", false, "suppress task output")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, opts *watchOptions) error {
	cc, err := a.newCommandContext(cmd)
	if err != nil {
		return err
	}
	wf, err := cc.LoadWorkflow(opts.workflow)
	if err != nil {
		return err
	}
	if len(wf.Watch) == 0 {
		return usageErrorf("workflow declares no watch rules")
	}

	w, err := watch.New(opts.root, wf.Watch, cc.trigger(opts.workflow), cc.Logger)
	if err != nil {
		return err
	}
	return w.Run(cmd.Context())
}

// trigger plans the rule's node against a freshly loaded workflow and runs it.
func (c *CommandContext) trigger(path string) watch.Trigger {
	return func(ctx context.Context, rule *workflow.WatchRule, ev watch.Event) error {
		wf, err := c.LoadWorkflow(path)
		if err != nil {
			return err
		}
		args, err := scope.NewArgs(rule.Exec.Args)
		if err != nil {
			return err
		}

		planned, err := engine.DispatchAs[engine.PlanResult](ctx, c.Engine, engine.PlanOp{
			Workflow: wf,
			Nodes:    []string{rule.Exec.Node},
			Args:     args,
		})
		if err != nil {
			return err
		}

		res, err := engine.DispatchAs[engine.ExecuteResult](ctx, c.Engine, engine.ExecuteOp{Plan: planned.Plan})
		if res.ExecutionResult != nil {
			c.Indicator.PrintSummary(res.Summary())
		}
		return err
	}
}
