package pipeline

import "context"

// NodeInfo identifies a node instance to itself inside Run ("this_info" in
// the node contract).
type NodeInfo struct {
	ID       string
	TypeName string
}

// Inputs maps each incoming data edge's target port to the value that
// arrived on it. A nil entry represents Some(None): a semantically
// disconnected input. The key set always equals the
// set of distinct target ports of incoming data edges.
type Inputs map[string]*DataValue

// Outputs maps each produced output port to its value. Its key set must be
// exactly the distinct source ports used by outgoing edges of the node;
// extra keys are silently ignored and a
// missing key needed downstream becomes UnrecognizedOutput.
type Outputs map[string]DataValue

// NodeInstance is the single operation every node exposes.
// Run is called at most once per node per job.
type NodeInstance interface {
	Run(ctx context.Context, jobCtx *Context, info NodeInfo, params map[string]ParamValue, inputs Inputs) (Outputs, error)
}

// QuickNode is an optional capability: a node that declares itself "quick"
// runs inline on the scheduler's goroutine instead of being dispatched to
// the worker pool. This is a performance choice with no semantic
// consequence.
type QuickNode interface {
	NodeInstance
	Quick() bool
}

// IsQuick reports whether a NodeInstance opts into inline scheduling.
func IsQuick(n NodeInstance) bool {
	q, ok := n.(QuickNode)
	return ok && q.Quick()
}

// Factory produces a NodeInstance bound to a job Context: type_name ->
// factory(Context) -> NodeInstance.
type Factory func(jobCtx *Context) (NodeInstance, error)

// FactoryLookup is the narrow shape PipelineSpec.Build needs from a
// NodeRegistry. It is declared here, rather than imported from the registry
// package, so that internal/noderegistry can depend on internal/pipeline without
// creating an import cycle back the other way.
type FactoryLookup interface {
	Get(typeName string) (Factory, bool)
}
