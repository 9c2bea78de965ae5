package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
}

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "pipelined",
		Short:         "Runs and validates dynamically-typed DAG data pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newValidateCmd(app))
	cmd.AddCommand(newExecCmd(app))
	cmd.AddCommand(newRunCmd(app))

	return cmd
}
