package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/engine"
	"github.com/felixgeelhaar/chainrun/internal/ux"
)

type listOptions struct {
	workflow string
	output   string
}

func (a *app) newListCommand() *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "List the nodes of a workflow",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			res, err := engine.DispatchAs[engine.ListResult](cmd.Context(), cc.Engine, engine.ListOp{Workflow: wf})
			if err != nil {
				return err
			}
			return formatter.Format(res.NodeList)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.workflow, "workflow", "", "workflow file (default: discover .chainrun.yaml)")
	f.StringVarP(&opts.output, "output", "o", ux.FormatText, "output format (text, yaml, json, json+p, toml)")
	return cmd
}
