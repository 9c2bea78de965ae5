package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pipelined/pipelined/internal/infrastructure/logging"
	"github.com/pipelined/pipelined/internal/ports"
)

func main() {
	appLogger, err := logging.New(logging.Options{
		Level:     "info",
		Component: "cli",
		Layer:     "infrastructure",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application logger: %v\n", err)
		os.Exit(1)
	}

	correlationID := ports.GenerateCorrelationID()
	ctx := ports.WithCorrelationID(context.Background(), correlationID)

	app := &AppContext{Logger: appLogger}

	rootCmd := newRootCmd(app)
	appLogger.Info(ctx, "starting pipelined command", "pid", os.Getpid())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
