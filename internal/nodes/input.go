// Package nodes implements the built-in NodeInstance types registered with
// noderegistry.Default at process startup: pass-through Input/Output nodes,
// a content-hash node, a subprocess node, a text-template node, and two
// nodes exercising Context's ObjectStore/Transaction collaborators.
package nodes

import (
	"context"
	"fmt"

	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
)

func init() {
	if err := noderegistry.Register("Input", NewInput); err != nil {
		panic(err)
	}
	if err := noderegistry.Register("Output", NewOutput); err != nil {
		panic(err)
	}
}

// inputInstance is registered under the "Input" type name so Build (spec.go)
// finds it when validating a document's node declarations. The scheduler
// never actually calls Run on an Input node: NewJob (job.go) pre-seeds it
// from PipelineSpec's resolved seed map and marks it Done directly. Run
// exists only to satisfy the NodeInstance contract and is a defensive
// failure if the scheduler's bypass is ever removed without updating this.
type inputInstance struct{}

// NewInput returns the factory registered for the "Input" node type.
func NewInput(*pipeline.Context) (pipeline.NodeInstance, error) {
	return inputInstance{}, nil
}

func (inputInstance) Run(context.Context, *pipeline.Context, pipeline.NodeInfo, map[string]pipeline.ParamValue, pipeline.Inputs) (pipeline.Outputs, error) {
	return nil, fmt.Errorf("nodes: Input node run directly; scheduler should have pre-seeded it")
}

// outputInstance is a quick pass-through: it copies its single "in" input to
// its single "out" output, the terminal shape every pipeline's sink nodes
// take.
type outputInstance struct{}

// NewOutput returns the factory registered for the "Output" node type.
func NewOutput(*pipeline.Context) (pipeline.NodeInstance, error) {
	return outputInstance{}, nil
}

func (outputInstance) Run(_ context.Context, _ *pipeline.Context, _ pipeline.NodeInfo, _ map[string]pipeline.ParamValue, inputs pipeline.Inputs) (pipeline.Outputs, error) {
	v, ok := inputs["in"]
	if !ok || v == nil {
		return nil, fmt.Errorf("nodes: output node has no \"in\" value")
	}
	return pipeline.Outputs{"out": *v}, nil
}

func (outputInstance) Quick() bool { return true }

var _ pipeline.QuickNode = outputInstance{}
