package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pipelined/pipelined/internal/ports"
)

// AppContext carries process-wide collaborators shared across subcommands.
type AppContext struct {
	Logger ports.Logger
}

// CommandContext attaches a correlation id (reusing the one main() generated
// for the process, carried on cmd's root context) and a component-scoped
// logger for a single subcommand invocation.
func (a *AppContext) CommandContext(cmd *cobra.Command, component string) (context.Context, ports.Logger) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.Logger == nil {
		return ctx, nil
	}
	return ctx, a.Logger.With("component", component)
}
