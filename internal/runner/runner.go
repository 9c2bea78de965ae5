// Package runner hosts the process that pulls jobs from an external queue,
// constructs per-job contexts, owns concurrently-running PipelineJobs, and
// reports their terminal states back to the queue.
//
// A queued/running/finished job ledger is driven by a poll loop, using
// goroutines and a golang.org/x/sync/semaphore.Weighted cap on concurrent
// jobs, with job-log retention. Admission errors for enqueuing belong to the
// queue implementations in internal/infrastructure/jobqueue.
package runner

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pipelined/pipelined/internal/pipeline"
	"github.com/pipelined/pipelined/internal/ports"
)

// QueuedJob is the payload an external queue hands the Runner: a resolved
// pipeline document, caller-supplied inputs, and ownership metadata.
type QueuedJob struct {
	JobID    string
	Name     string
	Document *pipeline.Document
	Inputs   map[string]pipeline.DataValue
	OwnedBy  string
}

// JobQueue is the narrow external collaborator: a job-queue contract the
// Runner polls, with terminal transitions back into it. Persistence of the
// queue itself is outside the pipeline core; concrete implementations live
// under internal/infrastructure/jobqueue.
type JobQueue interface {
	// GetQueuedJob returns the next queued job, if any, without blocking.
	GetQueuedJob(ctx context.Context) (*QueuedJob, bool, error)
	SuccessJob(ctx context.Context, jobID string) error
	FailJobRun(ctx context.Context, jobID string, detail string) error
	BuilderrorJob(ctx context.Context, jobID string, detail string) error
}

// ContextFactory builds the per-job Context a PipelineJob runs against:
// the object-store handle, database transaction, and size parameters
// bound to jobID.
type ContextFactory func(jobID string) (*pipeline.Context, error)

// Options configures a Runner.
type Options struct {
	// MaxRunningJobs caps how many PipelineJobs run concurrently.
	MaxRunningJobs int64
	// PollInterval is the sleep between empty queue polls, configurable
	// down to tens of milliseconds.
	PollInterval time.Duration
	// JobLogSize bounds the ring of retained terminal-state log entries.
	JobLogSize int
	// JobOptions is passed through to every pipeline.NewJob this Runner
	// constructs.
	JobOptions pipeline.Options
}

// DefaultOptions mirrors pipeline.DefaultOptions' philosophy: a modest
// concurrent-job cap, a tens-of-milliseconds poll interval, and a bounded
// job log.
func DefaultOptions() Options {
	return Options{
		MaxRunningJobs: 4,
		PollInterval:   25 * time.Millisecond,
		JobLogSize:     200,
		JobOptions:     pipeline.DefaultOptions(),
	}
}

// JobLogEntry records one job's terminal outcome, retained in a bounded ring
// for inspection (e.g. by internal/dashboard).
type JobLogEntry struct {
	JobID      string
	State      string // "success" | "failed" | "builderror"
	Detail     string
	FinishedAt time.Time
}

// Runner is the host process: it pops jobs off a JobQueue, builds and runs
// a PipelineJob for each, and reports terminal states back to the queue.
type Runner struct {
	queue      JobQueue
	registry   pipeline.FactoryLookup
	newContext ContextFactory
	logger     ports.Logger
	opts       Options

	sem *semaphore.Weighted

	mu         sync.Mutex
	running    map[string]struct{}
	jobLog     list.List // of JobLogEntry
	jobLogSize int
}

// New constructs a Runner. queue is polled for work; registry resolves node
// type names; newContext builds the per-job Context.
func New(queue JobQueue, registry pipeline.FactoryLookup, newContext ContextFactory, logger ports.Logger, opts Options) *Runner {
	if opts.MaxRunningJobs <= 0 {
		opts.MaxRunningJobs = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 25 * time.Millisecond
	}
	return &Runner{
		queue:      queue,
		registry:   registry,
		newContext: newContext,
		logger:     logger,
		opts:       opts,
		sem:        semaphore.NewWeighted(opts.MaxRunningJobs),
		running:    make(map[string]struct{}),
		jobLogSize: opts.JobLogSize,
	}
}

// Run polls the queue and dispatches jobs until ctx is canceled, at which
// point it waits for in-flight jobs to finish before returning ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !r.sem.TryAcquire(1) {
			if !r.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		qj, ok, err := r.queue.GetQueuedJob(ctx)
		if err != nil {
			r.sem.Release(1)
			r.logger.Error(ctx, "runner: queue poll failed", "error", err)
			if !r.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if !ok {
			r.sem.Release(1)
			if !r.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		r.mu.Lock()
		r.running[qj.JobID] = struct{}{}
		r.mu.Unlock()

		wg.Add(1)
		go func(qj *QueuedJob) {
			defer wg.Done()
			defer r.sem.Release(1)
			defer func() {
				r.mu.Lock()
				delete(r.running, qj.JobID)
				r.mu.Unlock()
			}()
			r.runOne(ctx, qj)
		}(qj)
	}
}

func (r *Runner) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.opts.PollInterval):
		return true
	}
}

// runOne resolves qj's spec through the registry, builds a PipelineJob, and
// advances it to completion, reporting the outcome back to the queue.
func (r *Runner) runOne(ctx context.Context, qj *QueuedJob) {
	r.logger.Info(ctx, "runner: starting job", "job_id", qj.JobID, "owned_by", qj.OwnedBy)

	spec, err := pipeline.Build(r.registry, qj.Name, qj.Document, qj.Inputs)
	if err != nil {
		detail := err.Error()
		r.logger.Warn(ctx, "runner: job build failed", "job_id", qj.JobID, "error", detail)
		r.record(qj.JobID, "builderror", detail)
		if qerr := r.queue.BuilderrorJob(ctx, qj.JobID, detail); qerr != nil {
			r.logger.Error(ctx, "runner: builderror_job report failed", "job_id", qj.JobID, "error", qerr)
		}
		return
	}

	jobCtx, err := r.newContext(qj.JobID)
	if err != nil {
		detail := err.Error()
		r.logger.Error(ctx, "runner: job context construction failed", "job_id", qj.JobID, "error", detail)
		r.record(qj.JobID, "failed", detail)
		if qerr := r.queue.FailJobRun(ctx, qj.JobID, detail); qerr != nil {
			r.logger.Error(ctx, "runner: fail_job_run report failed", "job_id", qj.JobID, "error", qerr)
		}
		return
	}

	job := pipeline.NewJob(spec, r.registry, jobCtx, r.logger.With("job_id", qj.JobID), r.opts.JobOptions)
	err = job.Run(ctx)
	if err == nil {
		err = jobCtx.WithTransaction(func(tx pipeline.Transaction) error { return tx.Commit(ctx) })
	} else if rerr := jobCtx.WithTransaction(func(tx pipeline.Transaction) error { return tx.Rollback(ctx) }); rerr != nil {
		r.logger.Error(ctx, "runner: transaction rollback failed", "job_id", qj.JobID, "error", rerr)
	}
	if err != nil {
		detail := err.Error()
		r.logger.Warn(ctx, "runner: job failed", "job_id", qj.JobID, "error", detail)
		r.record(qj.JobID, "failed", detail)
		if qerr := r.queue.FailJobRun(ctx, qj.JobID, detail); qerr != nil {
			r.logger.Error(ctx, "runner: fail_job_run report failed", "job_id", qj.JobID, "error", qerr)
		}
		return
	}

	r.logger.Info(ctx, "runner: job succeeded", "job_id", qj.JobID)
	r.record(qj.JobID, "success", "")
	if qerr := r.queue.SuccessJob(ctx, qj.JobID); qerr != nil {
		r.logger.Error(ctx, "runner: success_job report failed", "job_id", qj.JobID, "error", qerr)
	}
}

// record appends a terminal outcome to the bounded job log, evicting the
// oldest entry once at capacity.
func (r *Runner) record(jobID, state, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.jobLogSize > 0 {
		for r.jobLog.Len() >= r.jobLogSize {
			r.jobLog.Remove(r.jobLog.Front())
		}
	}
	r.jobLog.PushBack(JobLogEntry{JobID: jobID, State: state, Detail: detail, FinishedAt: time.Now()})
}

// JobLog returns a snapshot of the retained terminal-state entries, oldest
// first.
func (r *Runner) JobLog() []JobLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]JobLogEntry, 0, r.jobLog.Len())
	for e := r.jobLog.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(JobLogEntry))
	}
	return out
}

// RunningJobs returns the job ids currently executing.
func (r *Runner) RunningJobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.running))
	for id := range r.running {
		out = append(out, id)
	}
	return out
}
