package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pipelined/pipelined/internal/infrastructure/memstore"
	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"

	_ "github.com/pipelined/pipelined/internal/nodes"
)

func newExecCmd(app *AppContext) *cobra.Command {
	var inputFlags []string
	var fragmentSize int
	var blobBuffer int

	cmd := &cobra.Command{
		Use:   "exec <pipeline.json>",
		Short: "Build and run a pipeline document once, locally, against an in-memory object store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, logger := app.CommandContext(cmd, "command.exec")

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

			jobID := uuid.NewString()
			spec, err := pipeline.Build(noderegistry.Default, jobID, doc, inputs)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			store := memstore.New()
			jobCtx := pipeline.NewContext(context.Background(), jobID, store, nil, fragmentSize, blobBuffer)

			start := time.Now()
			job := pipeline.NewJob(spec, noderegistry.Default, jobCtx, app.Logger, pipeline.DefaultOptions())
			if err := job.Run(ctx); err != nil {
				if logger != nil {
					logger.Error(ctx, "job failed", "job_id", jobID, "error", err)
				}
				return err
			}

			if logger != nil {
				logger.Info(ctx, "job succeeded", "job_id", jobID, "duration", time.Since(start))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: succeeded in %s\n", jobID, time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputFlags, "input", nil, "Input value as name=kind:value, e.g. data=Text:hello (repeatable)")
	cmd.Flags().IntVar(&fragmentSize, "fragment-size", 1<<20, "Object-store fetch fragment size in bytes")
	cmd.Flags().IntVar(&blobBuffer, "blob-buffer", 4, "Blob channel buffer depth")

	return cmd
}
