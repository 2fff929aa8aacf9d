package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/engine"
	"github.com/felixgeelhaar/chainrun/internal/ux"
)

type describeOptions struct {
	workflow string
	nodes    []string
	output   string
}

func (a *app) newDescribeCommand() *cobra.Command {
	opts := &describeOptions{}
	cmd := &cobra.Command{
		Use:     "describe",
		Aliases: []string{"desc", "d"},
		Short:   "Show the stages of a request",
		Long: `Show how the requested nodes and their dependencies are grouped into
stages, without expanding matrices or rendering scripts.`,
		Example: `  chainrun describe -n deploy
  chainrun describe -n test -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := nodesRequired(opts.nodes); err != nil {
				return err
			}
			cc, err := a.newCommandContext(cmd)
			if err != nil {
				return err
			}
			formatter, err := cc.Formatter(opts.output)
			if err != nil {
				return err
			}
			wf, err := cc.LoadWorkflow(opts.workflow)
			if err != nil {
				return err
			}

			res, err := engine.DispatchAs[engine.DescribeResult](cmd.Context(), cc.Engine, engine.DescribeOp{
				Workflow: wf,
				Nodes:    opts.nodes,
			})
			if err != nil {
				return err
			}
			return formatter.Format(res.StagesView)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.workflow, "workflow", "", "workflow file (default: discover .chainrun.yaml)")
	f.StringArrayVarP(&opts.nodes, "node", "n", nil, "node to describe (repeatable)")
	f.StringVarP(&opts.output, "output", "o", ux.FormatText, "output format (text, yaml, json, json+p, toml)")
	return cmd
}
