package nodes

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func init() {
	if err := noderegistry.Register("WriteReference", NewWriteReference); err != nil {
		panic(err)
	}
}

// writeReferenceInstance records its "in" Reference against the job's
// database transaction and passes it through unchanged, registered under
// "WriteReference". The core never touches the transaction itself, only a
// node does, and only ever while holding Context's transaction mutex.
type writeReferenceInstance struct {
	jobCtx *pipeline.Context
}

// NewWriteReference returns the factory registered for "WriteReference".
func NewWriteReference(jobCtx *pipeline.Context) (pipeline.NodeInstance, error) {
	return writeReferenceInstance{jobCtx: jobCtx}, nil
}

func (n writeReferenceInstance) Run(ctx context.Context, _ *pipeline.Context, _ pipeline.NodeInfo, params map[string]pipeline.ParamValue, inputs pipeline.Inputs) (pipeline.Outputs, error) {
	tableParam, ok := params["table"]
	if !ok {
		return nil, fmt.Errorf("nodes: write_reference node: missing \"table\" param")
	}
	table, ok := tableParam.AsString()
	if !ok {
		return nil, fmt.Errorf("nodes: write_reference node: \"table\" param must be a String")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("nodes: write_reference node: %q is not a valid table identifier", table)
	}

	v, ok := inputs["in"]
	if !ok || v == nil || v.Kind != pipeline.KindReference {
		return nil, fmt.Errorf("nodes: write_reference node requires a Reference \"in\" value")
	}
	ref := v.Reference()

	err := n.jobCtx.WithTransaction(func(tx pipeline.Transaction) error {
		if tx == nil {
			return nil
		}
		query := fmt.Sprintf("INSERT INTO %s (class_id, item_id) VALUES ($1, $2)", table)
		return tx.Exec(ctx, query, ref.ClassID, ref.ItemID)
	})
	if err != nil {
		return nil, fmt.Errorf("nodes: write_reference node: %w", err)
	}

	return pipeline.Outputs{"out": pipeline.NewReference(ref)}, nil
}
