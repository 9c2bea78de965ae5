package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pipelined/pipelined/internal/config"
	"github.com/pipelined/pipelined/internal/dashboard"
	"github.com/pipelined/pipelined/internal/infrastructure/gcstore"
	"github.com/pipelined/pipelined/internal/infrastructure/jobqueue"
	"github.com/pipelined/pipelined/internal/infrastructure/memstore"
	"github.com/pipelined/pipelined/internal/infrastructure/pgtx"
	"github.com/pipelined/pipelined/internal/infrastructure/watch"
	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
	"github.com/pipelined/pipelined/internal/ports"
	"github.com/pipelined/pipelined/internal/runner"

	_ "github.com/pipelined/pipelined/internal/nodes"
)

// adder is implemented by every jobqueue backend in addition to
// runner.JobQueue, surfacing the admission path --watch uses to submit
// newly-seen pipeline documents.
type adder interface {
	Add(ctx context.Context, job *runner.QueuedJob) error
}

func newRunCmd(app *AppContext) *cobra.Command {
	var configPath string
	var withDashboard bool
	var watchDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the runner, polling a job queue and executing pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, logger := app.CommandContext(cmd, "command.run")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			queue, closeQueue, err := openQueue(ctx, cfg.Queue)
			if err != nil {
				return err
			}
			defer closeQueue()

			store, closeStore, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer closeStore()

			var db *pgtx.Pool
			if cfg.DB.DSN != "" {
				db, err = pgtx.Open(ctx, cfg.DB.DSN)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer db.Close()
			}

			newContext := func(jobID string) (*pipeline.Context, error) {
				var tx pipeline.Transaction
				if db != nil {
					t, err := db.Begin(context.Background())
					if err != nil {
						return nil, err
					}
					tx = t
				}
				return pipeline.NewContext(context.Background(), jobID, store, tx, cfg.Runner.FragmentSize, cfg.Runner.BlobBufferSize), nil
			}

			opts := runner.Options{
				MaxRunningJobs: int64(cfg.Runner.MaxRunningJobs),
				PollInterval:   time.Duration(cfg.Runner.PollIntervalMS) * time.Millisecond,
				JobLogSize:     cfg.Runner.JobLogSize,
				JobOptions: pipeline.Options{
					DrainOnFailure: cfg.Runner.DrainOnFailure,
					MaxWorkers:     int64(cfg.Runner.MaxWorkers),
					PollInterval:   pipeline.DefaultOptions().PollInterval,
				},
			}

			r := runner.New(queue, noderegistry.Default, newContext, app.Logger, opts)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			if watchDir != "" {
				if add, ok := queue.(adder); ok {
					if err := startWatch(runCtx, add, watchDir, logger); err != nil {
						return fmt.Errorf("start watch: %w", err)
					}
				} else if logger != nil {
					logger.Warn(ctx, "queue backend does not support --watch submission")
				}
			}

			if withDashboard && term.IsTerminal(int(os.Stdout.Fd())) {
				return runWithDashboard(runCtx, r, cancel)
			}

			if logger != nil {
				logger.Info(ctx, "runner starting", "max_running_jobs", opts.MaxRunningJobs)
			}
			return r.Run(runCtx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "pipelined.yaml", "Path to the runner configuration file")
	cmd.Flags().BoolVar(&withDashboard, "dashboard", false, "Attach the interactive dashboard while running (requires a terminal)")
	cmd.Flags().StringVar(&watchDir, "watch", "", "Directory of pipeline *.json documents to submit automatically on change")

	return cmd
}

func runWithDashboard(ctx context.Context, r *runner.Runner, cancel context.CancelFunc) error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	m := dashboard.New(r, 200*time.Millisecond)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("dashboard: %w", err)
	}

	cancel()
	return <-done
}

func openQueue(ctx context.Context, cfg config.QueueConfig) (runner.JobQueue, func(), error) {
	switch cfg.Type {
	case "badger":
		capacity := 0
		if cfg.Badger != nil {
			capacity = cfg.Badger.Capacity
		}
		q, err := jobqueue.OpenBadger(jobqueue.BadgerOptions{DataDir: cfg.Badger.DataDir, Capacity: capacity})
		if err != nil {
			return nil, nil, fmt.Errorf("open badger queue: %w", err)
		}
		return q, func() { q.Close() }, nil
	default:
		capacity := 0
		if cfg.Memory != nil {
			capacity = cfg.Memory.Capacity
		}
		return jobqueue.NewMemory(capacity), func() {}, nil
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (pipeline.ObjectStore, func(), error) {
	switch cfg.Type {
	case "gcs":
		credentials := ""
		if cfg.GCS != nil {
			credentials = cfg.GCS.CredentialsFile
		}
		s, err := gcstore.Open(ctx, credentials)
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs store: %w", err)
		}
		return s, func() { s.Close() }, nil
	default:
		return memstore.New(), func() {}, nil
	}
}

func startWatch(ctx context.Context, add adder, dir string, logger ports.Logger) error {
	w, err := watch.New(dir, 150*time.Millisecond, func(paths []string) {
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				if logger != nil {
					logger.Error(ctx, "watch: read pipeline file failed", "path", path, "error", err)
				}
				continue
			}
			doc, err := pipeline.ParseDocument(data)
			if err != nil {
				if logger != nil {
					logger.Error(ctx, "watch: parse pipeline file failed", "path", path, "error", err)
				}
				continue
			}
			job := &runner.QueuedJob{JobID: uuid.NewString(), Name: path, Document: doc, Inputs: map[string]pipeline.DataValue{}}
			if err := add.Add(ctx, job); err != nil {
				if logger != nil {
					logger.Error(ctx, "watch: submit job failed", "path", path, "error", err)
				}
				continue
			}
			if logger != nil {
				logger.Info(ctx, "watch: submitted job", "path", path, "job_id", job.JobID)
			}
		}
	})
	if err != nil {
		return err
	}
	go w.Start(ctx)
	return nil
}
