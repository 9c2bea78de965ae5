package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pipelined/pipelined/internal/graph"
	"github.com/pipelined/pipelined/internal/ports"
	pipelineerrors "github.com/pipelined/pipelined/pkg/errors"
)

// NodeState is a node's run state within a single PipelineJob.
type NodeState int

const (
	NotStarted NodeState = iota
	Running
	Done
)

func (s NodeState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

type dataSlotState int

const (
	slotUnset dataSlotState = iota
	slotSome
	slotConsumed
)

// dataSlot is a Data edge's EdgeSlot: Unset -> Some(Option<DataValue>) ->
// Consumed. value is nil for Some(None): a disconnected input.
type dataSlot struct {
	state dataSlotState
	value *DataValue
}

type orderSlotState int

const (
	orderWaiting orderSlotState = iota
	orderReady
)

// Options configures scheduler behavior around two configurable choices:
// how failures interact with in-flight nodes, and how much concurrency
// the worker pool allows.
type Options struct {
	// DrainOnFailure, when true (the default), lets already-Running nodes
	// finish after the first node failure before the job terminates; their
	// results are discarded. When false, the job returns as soon as the
	// failure is observed without waiting on in-flight nodes.
	DrainOnFailure bool
	// MaxWorkers bounds how many non-quick nodes may run concurrently.
	MaxWorkers int64
	// PollInterval is the sleep between dispatch passes when a pass makes no
	// progress.
	PollInterval time.Duration
}

// DefaultOptions returns the scheduler's default choice: drain running
// nodes on failure, a modest worker pool, and a tens-of-milliseconds poll
// interval.
func DefaultOptions() Options {
	return Options{
		DrainOnFailure: true,
		MaxWorkers:     8,
		PollInterval:   20 * time.Millisecond,
	}
}

type completionMsg struct {
	node    graph.NodeIdx
	outputs Outputs
	err     error
}

// PipelineJob is the per-job runtime: it owns node instances, edge value
// slots, and scheduling state, and advances the job by repeatedly polling
// readiness and dispatching nodes to a worker pool.
type PipelineJob struct {
	spec     *Spec
	registry FactoryLookup
	jobCtx   *Context
	logger   ports.Logger
	opts     Options

	nodeStates []NodeState
	dataSlots  []dataSlot
	orderSlots []orderSlotState

	sem         *semaphore.Weighted
	completions chan completionMsg
	running     int32

	firstErr error
}

// NewJob constructs a job ready to run: Input nodes are pre-seeded and marked
// Done, and every other node starts NotStarted with all edge slots Unset or
// Waiting.
func NewJob(spec *Spec, registry FactoryLookup, jobCtx *Context, logger ports.Logger, opts Options) *PipelineJob {
	g := spec.Graph()
	j := &PipelineJob{
		spec:        spec,
		registry:    registry,
		jobCtx:      jobCtx,
		logger:      logger,
		opts:        opts,
		nodeStates:  make([]NodeState, g.NodeCount()),
		dataSlots:   make([]dataSlot, g.EdgeCount()),
		orderSlots:  make([]orderSlotState, g.EdgeCount()),
		sem:         semaphore.NewWeighted(opts.MaxWorkers),
		completions: make(chan completionMsg, g.NodeCount()),
	}

	for _, idx := range spec.InputNodes() {
		j.nodeStates[idx] = Done
		seed, _ := spec.Seed(idx)
		for _, eix := range g.OutEdges(idx) {
			e := g.Edge(eix)
			if e.Kind == EdgeOrder {
				j.orderSlots[eix] = orderReady
				continue
			}
			v := seed
			j.dataSlots[eix] = dataSlot{state: slotSome, value: &v}
		}
	}

	return j
}

// NodeState reports a node's current run state.
func (j *PipelineJob) NodeState(n graph.NodeIdx) NodeState { return j.nodeStates[n] }

// Run advances the job to completion or failure via the dispatch loop, then
// releases the job's Context. ctx cancellation is the cooperative
// cancellation signal; it does not abort a node's run directly, only
// whatever the node itself observes through the ctx passed to its Run.
func (j *PipelineJob) Run(ctx context.Context) error {
	defer j.jobCtx.Release()

	for {
		advanced := j.drainCompletions(ctx)

		dispatching := j.firstErr == nil
		if dispatching {
			if j.dispatchPass(ctx) {
				advanced = true
			}
		}

		running := atomic.LoadInt32(&j.running) > 0

		if j.firstErr != nil {
			if !j.opts.DrainOnFailure || !running {
				return j.firstErr
			}
		} else if j.allDone() {
			return nil
		} else if !running && !j.anyRunnable() {
			j.logger.Error(ctx, "pipeline deadlock: no node runnable or running", "job_id", j.jobCtx.JobID)
			j.firstErr = pipelineerrors.NewDeadlockError()
			if !j.opts.DrainOnFailure {
				return j.firstErr
			}
		}

		if !advanced {
			select {
			case <-ctx.Done():
				if j.firstErr == nil {
					j.firstErr = ctx.Err()
				}
				return j.firstErr
			case <-time.After(j.opts.PollInterval):
			}
		}
	}
}

// drainCompletions processes every completion message currently queued,
// without blocking.
func (j *PipelineJob) drainCompletions(ctx context.Context) bool {
	advanced := false
	for {
		select {
		case msg := <-j.completions:
			advanced = true
			j.handleCompletion(ctx, msg)
		default:
			return advanced
		}
	}
}

// handleCompletion propagates a finished node's outputs into downstream edge
// slots, marks outgoing order edges Ready, and transitions the node to Done,
// dropping its instance.
func (j *PipelineJob) handleCompletion(ctx context.Context, msg completionMsg) {
	atomic.AddInt32(&j.running, -1)
	g := j.spec.Graph()
	node := g.Node(msg.node)
	j.nodeStates[msg.node] = Done

	if msg.err != nil {
		j.logger.Error(ctx, "node failed", "job_id", j.jobCtx.JobID, "node_id", node.ID, "error", msg.err)
		j.fail(pipelineerrors.NewNodeError(node.ID, msg.err))
		return
	}

	j.logger.Debug(ctx, "node completed", "job_id", j.jobCtx.JobID, "node_id", node.ID)

	for _, eix := range g.OutEdges(msg.node) {
		e := g.Edge(eix)
		if e.Kind == EdgeOrder {
			j.orderSlots[eix] = orderReady
			continue
		}

		slot := &j.dataSlots[eix]
		if slot.state != slotUnset {
			j.fail(pipelineerrors.NewOutputPortSetTwiceError(node.ID, e.SourcePort))
			return
		}

		v, ok := msg.outputs[e.SourcePort]
		if !ok {
			j.fail(pipelineerrors.NewUnrecognizedOutputError(node.ID, e.SourcePort))
			return
		}
		value := v
		slot.state = slotSome
		slot.value = &value
	}
}

// fail records the first job-terminating error; later failures are logged
// but do not overwrite it.
func (j *PipelineJob) fail(err error) {
	if j.firstErr == nil {
		j.firstErr = err
	}
}

// dispatchPass scans nodes in stable order, dispatching every runnable one a
// worker slot is available for; quick nodes always run, inline, regardless
// of the worker pool.
func (j *PipelineJob) dispatchPass(ctx context.Context) bool {
	advanced := false
	g := j.spec.Graph()

	for _, n := range j.spec.Order() {
		if !j.isRunnable(n) {
			continue
		}

		node := g.Node(n)
		factory, ok := j.registry.Get(node.TypeName)
		if !ok {
			// Build already validated type names; this would be a registry
			// mutated out from under a running job.
			j.nodeStates[n] = Done
			j.fail(fmt.Errorf("pipeline: node %q: type %q no longer registered", node.ID, node.TypeName))
			advanced = true
			continue
		}

		instance, err := factory(j.jobCtx)
		if err != nil {
			j.nodeStates[n] = Done
			j.fail(pipelineerrors.NewNodeError(node.ID, err))
			advanced = true
			continue
		}

		quick := IsQuick(instance)
		if !quick && !j.sem.TryAcquire(1) {
			continue
		}

		inputs := j.consumeInputs(n)
		j.nodeStates[n] = Running
		atomic.AddInt32(&j.running, 1)
		advanced = true
		info := NodeInfo{ID: node.ID, TypeName: node.TypeName}
		params := node.Params

		j.logger.Debug(ctx, "dispatching node", "job_id", j.jobCtx.JobID, "node_id", node.ID, "quick", quick)

		if quick {
			out, err := instance.Run(ctx, j.jobCtx, info, params, inputs)
			j.handleCompletion(ctx, completionMsg{node: n, outputs: out, err: err})
			continue
		}

		go func(n graph.NodeIdx, instance NodeInstance) {
			defer j.sem.Release(1)
			out, err := instance.Run(ctx, j.jobCtx, info, params, inputs)
			j.completions <- completionMsg{node: n, outputs: out, err: err}
		}(n, instance)
	}

	return advanced
}

// isRunnable reports whether n is NotStarted and every incoming edge slot is
// Some(_) (data) or Ready (order).
func (j *PipelineJob) isRunnable(n graph.NodeIdx) bool {
	if j.nodeStates[n] != NotStarted {
		return false
	}
	g := j.spec.Graph()
	for _, eix := range g.InEdges(n) {
		e := g.Edge(eix)
		switch e.Kind {
		case EdgeData:
			if j.dataSlots[eix].state == slotUnset {
				return false
			}
		case EdgeOrder:
			if j.orderSlots[eix] == orderWaiting {
				return false
			}
		}
	}
	return true
}

// consumeInputs moves every incoming data edge's value out of its slot into
// the map a node's Run receives, leaving the slot Consumed: edge values are
// moved out of their slots and into a node's input map when it starts.
func (j *PipelineJob) consumeInputs(n graph.NodeIdx) Inputs {
	g := j.spec.Graph()
	inputs := make(Inputs)
	for _, eix := range g.InEdges(n) {
		e := g.Edge(eix)
		if e.Kind != EdgeData {
			continue
		}
		slot := &j.dataSlots[eix]
		inputs[e.TargetPort] = slot.value
		slot.state = slotConsumed
		slot.value = nil
	}
	return inputs
}

func (j *PipelineJob) allDone() bool {
	for _, s := range j.nodeStates {
		if s != Done {
			return false
		}
	}
	return true
}

func (j *PipelineJob) anyRunnable() bool {
	for _, n := range j.spec.Order() {
		if j.isRunnable(n) {
			return true
		}
	}
	return false
}
