package errors

import "fmt"

// BuildErrorKind enumerates the ways PipelineSpec.Build can fail.
type BuildErrorKind int

const (
	// BuildErrNoNode means an edge referenced a node id that does not exist.
	BuildErrNoNode BuildErrorKind = iota
	// BuildErrBadNodeType means a node declared a type name the registry does
	// not recognize.
	BuildErrBadNodeType
	// BuildErrHasCycle means the declared graph is not a DAG.
	BuildErrHasCycle
	// BuildErrMissingInput means an Input node's input_name was not present
	// in the caller-supplied inputs map.
	BuildErrMissingInput
	// BuildErrInvalidInputNode means an Input node's params did not contain
	// a string-valued input_name key.
	BuildErrInvalidInputNode
)

func (k BuildErrorKind) String() string {
	switch k {
	case BuildErrNoNode:
		return "NoNode"
	case BuildErrBadNodeType:
		return "BadNodeType"
	case BuildErrHasCycle:
		return "HasCycle"
	case BuildErrMissingInput:
		return "MissingInput"
	case BuildErrInvalidInputNode:
		return "InvalidInputNode"
	default:
		return "Unknown"
	}
}

// BuildError is produced by PipelineSpec.Build. It is non-retryable and is
// surfaced to the job queue as builderror_job(job_id, detail).
type BuildError struct {
	Kind    BuildErrorKind
	EdgeID  string
	NodeID  string
	Type    string
	Name    string
	Message string
}

// NewHasCycleError constructs the HasCycle BuildError.
func NewHasCycleError() error {
	return &BuildError{Kind: BuildErrHasCycle, Message: "graph is not a DAG"}
}

// NewNoNodeError constructs the NoNode BuildError for a dangling edge
// endpoint.
func NewNoNodeError(edgeID, nodeID string) error {
	return &BuildError{Kind: BuildErrNoNode, EdgeID: edgeID, NodeID: nodeID,
		Message: fmt.Sprintf("edge %q references unknown node %q", edgeID, nodeID)}
}

// NewBadNodeTypeError constructs the BadNodeType BuildError for an
// unrecognized type_name.
func NewBadNodeTypeError(nodeID, typeName string) error {
	return &BuildError{Kind: BuildErrBadNodeType, NodeID: nodeID, Type: typeName,
		Message: fmt.Sprintf("node %q declares unknown type %q", nodeID, typeName)}
}

// NewMissingInputError constructs the MissingInput BuildError.
func NewMissingInputError(name string) error {
	return &BuildError{Kind: BuildErrMissingInput, Name: name,
		Message: fmt.Sprintf("no caller input named %q", name)}
}

// NewInvalidInputNodeError constructs the InvalidInputNode BuildError.
func NewInvalidInputNodeError(nodeID string) error {
	return &BuildError{Kind: BuildErrInvalidInputNode, NodeID: nodeID,
		Message: fmt.Sprintf("input node %q has no string input_name param", nodeID)}
}

func (e *BuildError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("build error [%s]: %s", e.Kind, e.Message)
}

// RunErrorKind enumerates the ways a PipelineJob can fail during execution.
type RunErrorKind int

const (
	// RunErrNodeError wraps an opaque, per-node error returned by a node's
	// Run method.
	RunErrNodeError RunErrorKind = iota
	// RunErrOutputPortSetTwice means the scheduler observed two edges ever
	// being assigned for the same source port.
	RunErrOutputPortSetTwice
	// RunErrUnrecognizedOutput means a node's output map was missing a key
	// for a port used downstream.
	RunErrUnrecognizedOutput
	// RunErrDeadlock means no node is runnable or running while some node
	// remains unfinished.
	RunErrDeadlock
	// RunErrBlobAlreadyConsumed means a Blob was read after being consumed.
	RunErrBlobAlreadyConsumed
	// RunErrBlockReader wraps a BlockReader decode or already-finished
	// error surfaced by a node.
	RunErrBlockReader
)

func (k RunErrorKind) String() string {
	switch k {
	case RunErrNodeError:
		return "NodeError"
	case RunErrOutputPortSetTwice:
		return "OutputPortSetTwice"
	case RunErrUnrecognizedOutput:
		return "UnrecognizedOutput"
	case RunErrDeadlock:
		return "Deadlock"
	case RunErrBlobAlreadyConsumed:
		return "BlobAlreadyConsumed"
	case RunErrBlockReader:
		return "BlockReader"
	default:
		return "Unknown"
	}
}

// RunError is produced during PipelineJob execution. It is non-retryable at
// the pipeline-core layer and is surfaced to the job queue as
// fail_job_run(job_id, detail).
type RunError struct {
	Kind   RunErrorKind
	NodeID string
	Port   string
	Err    error
}

// NewNodeError wraps an opaque per-node failure.
func NewNodeError(nodeID string, err error) error {
	return &RunError{Kind: RunErrNodeError, NodeID: nodeID, Err: err}
}

// NewOutputPortSetTwiceError reports a scheduler invariant violation: the
// same source port was assigned by two distinct edges.
func NewOutputPortSetTwiceError(nodeID, port string) error {
	return &RunError{Kind: RunErrOutputPortSetTwice, NodeID: nodeID, Port: port,
		Err: fmt.Errorf("output port %q set twice", port)}
}

// NewUnrecognizedOutputError reports that a node's output map was missing a
// key for a port consumed downstream.
func NewUnrecognizedOutputError(nodeID, port string) error {
	return &RunError{Kind: RunErrUnrecognizedOutput, NodeID: nodeID, Port: port,
		Err: fmt.Errorf("node did not produce required output port %q", port)}
}

// NewDeadlockError reports that the scheduler cannot make further progress.
func NewDeadlockError() error {
	return &RunError{Kind: RunErrDeadlock, Err: fmt.Errorf("no node runnable or running but job is not complete")}
}

// NewBlobAlreadyConsumedError reports a read of an already-consumed Blob.
func NewBlobAlreadyConsumedError() error {
	return &RunError{Kind: RunErrBlobAlreadyConsumed, Err: fmt.Errorf("blob already consumed")}
}

// NewBlockReaderError wraps a BlockReader failure surfaced through a node.
func NewBlockReaderError(nodeID string, err error) error {
	return &RunError{Kind: RunErrBlockReader, NodeID: nodeID, Err: err}
}

func (e *RunError) Error() string {
	if e == nil {
		return ""
	}
	if e.NodeID != "" {
		return fmt.Sprintf("run error [%s] node=%s: %v", e.Kind, e.NodeID, e.Err)
	}
	return fmt.Sprintf("run error [%s]: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause, if any.
func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
