package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/engine"
	"github.com/felixgeelhaar/chainrun/internal/plan"
)

type planOptions struct {
	workflow string
	nodes    []string
	args     []string
	output   string
	file     string
}

func (a *app) newPlanCommand() *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:     "plan",
		Aliases: []string{"p"},
		Short:   "Resolve nodes into an execution plan",
		Long: `Resolve the requested nodes and their dependencies into stages, expand
every matrix and render every script. The plan document is written to stdout
(or --plan) and can be reviewed before 'chainrun execute' runs it.

The plan fingerprint is logged; pass it to 'execute --fingerprint' to make
sure the reviewed plan is the one that runs.`,
		Example: `  chainrun plan -n build -a version=1.2.3 > plan.yaml
  chainrun plan -n test -o json | chainrun execute -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPlan(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.workflow, "workflow", "", "workflow file (default: discover .chainrun.yaml)")
	f.StringArrayVarP(&opts.nodes, "node", "n", nil, "node to plan (repeatable)")
	f.StringArrayVarP(&opts.args, "arg", "a", nil, "template argument key=value (repeatable)")
	f.StringVarP(&opts.output, "output", "o", string(plan.FormatYAML), "plan format (yaml, json, json+p, toml)")
	f.StringVar(&opts.file, "plan", plan.Stdio, "write the plan to this file, - for stdout")
	return cmd
}

func (a *app) runPlan(cmd *cobra.Command, opts *planOptions) error {
	if err := nodesRequired(opts.nodes); err != nil {
		return err
	}
	format, err := plan.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	args, err := parseArgs(opts.args)
	if err != nil {
		return err
	}

	cc, err := a.newCommandContext(cmd)
	if err != nil {
		return err
	}
	wf, err := cc.LoadWorkflow(opts.workflow)
	if err != nil {
		return err
	}

	res, err := engine.DispatchAs[engine.PlanResult](cmd.Context(), cc.Engine, engine.PlanOp{
		Workflow: wf,
		Nodes:    opts.nodes,
		Args:     args,
	})
	if err != nil {
		return err
	}
	return plan.SavePlan(res.Plan, opts.file, format, cc.Streams.Out)
}
