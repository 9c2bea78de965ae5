package nodes

import (
	"context"
	"fmt"

	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
)

func init() {
	if err := noderegistry.Register("BlobFetch", NewBlobFetch); err != nil {
		panic(err)
	}
}

// blobFetchInstance resolves a Reference input to a streaming Blob by
// fetching it from the job's ObjectStore, registered under "BlobFetch". The
// bucket is a fixed node parameter; the key comes from the reference's
// ItemID, following the object-store contract's get_object_stream primitive.
type blobFetchInstance struct {
	jobCtx *pipeline.Context
}

// NewBlobFetch returns the factory registered for the "BlobFetch" node type.
func NewBlobFetch(jobCtx *pipeline.Context) (pipeline.NodeInstance, error) {
	return blobFetchInstance{jobCtx: jobCtx}, nil
}

func (n blobFetchInstance) Run(ctx context.Context, _ *pipeline.Context, _ pipeline.NodeInfo, params map[string]pipeline.ParamValue, inputs pipeline.Inputs) (pipeline.Outputs, error) {
	if n.jobCtx.Store == nil {
		return nil, fmt.Errorf("nodes: blob_fetch node: job has no object store configured")
	}

	bucketParam, ok := params["bucket"]
	if !ok {
		return nil, fmt.Errorf("nodes: blob_fetch node: missing \"bucket\" param")
	}
	bucket, ok := bucketParam.AsString()
	if !ok {
		return nil, fmt.Errorf("nodes: blob_fetch node: \"bucket\" param must be a String")
	}

	v, ok := inputs["in"]
	if !ok || v == nil || v.Kind != pipeline.KindReference {
		return nil, fmt.Errorf("nodes: blob_fetch node requires a Reference \"in\" value")
	}

	blob, err := n.jobCtx.NewBlobFromObjectStore(ctx, bucket, v.Reference().ItemID)
	if err != nil {
		return nil, fmt.Errorf("nodes: blob_fetch node: %w", err)
	}

	return pipeline.Outputs{"out": pipeline.NewBlob(blob)}, nil
}
