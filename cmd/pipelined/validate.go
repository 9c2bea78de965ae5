package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"

	_ "github.com/pipelined/pipelined/internal/nodes"
)

func newValidateCmd(app *AppContext) *cobra.Command {
	var inputFlags []string

	cmd := &cobra.Command{
		Use:   "validate <pipeline.json>",
		Short: "Build a pipeline document against the node registry without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, logger := app.CommandContext(cmd, "command.validate")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read pipeline document: %w", err)
			}

			doc, err := pipeline.ParseDocument(data)
			if err != nil {
				return fmt.Errorf("parse pipeline document: %w", err)
			}

			inputs, err := parseInputFlags(inputFlags)
			if err != nil {
				return err
			}

			if _, err := pipeline.Build(noderegistry.Default, args[0], doc, inputs); err != nil {
				if logger != nil {
					logger.Error(ctx, "validation failed", "error", err)
				}
				return err
			}

			if logger != nil {
				logger.Info(ctx, "validation succeeded", "path", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputFlags, "input", nil, "Input value as name=kind:value, e.g. data=Text:hello (repeatable)")
	return cmd
}
