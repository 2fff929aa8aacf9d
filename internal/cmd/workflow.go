package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

func (a *app) newWorkflowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Work with workflow files",
	}
	cmd.AddCommand(a.newWorkflowInitCommand())
	return cmd
}

func (a *app) newWorkflowInitCommand() *cobra.Command {
	var (
		template string
		output   string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter workflow",
		Long: `Write one of the built-in workflow templates. The min template declares a
single node; max shows every feature: capture, env, shells, matrices, pre and
watch rules.`,
		Example: `  chainrun workflow init
  chainrun workflow init -t max -o -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := workflow.Template(template)
			if err != nil {
				return usageErrorf("unknown template %q (available: %s)", template, strings.Join(workflow.TemplateNames(), ", "))
			}

			if output == "-" {
				_, err := a.streams.Out.Write(data)
				return err
			}
			if !force {
				if _, err := os.Stat(output); err == nil {
					return usageErrorf("%s already exists, use --force to overwrite", output)
				}
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write workflow: %w", err)
			}
			fmt.Fprintf(a.streams.ErrOut, "wrote %s\n", output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&template, "template", "t", "min", "template to write (min, max)")
	f.StringVarP(&output, "output", "o", workflow.DefaultPath, "file to write, - for stdout")
	f.BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
