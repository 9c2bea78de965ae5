package noderegistry

import (
	"context"
	"testing"

	"github.com/pipelined/pipelined/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct{}

func (stubNode) Run(ctx context.Context, jobCtx *pipeline.Context, info pipeline.NodeInfo, params map[string]pipeline.ParamValue, inputs pipeline.Inputs) (pipeline.Outputs, error) {
	return pipeline.Outputs{}, nil
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	factory := func(jobCtx *pipeline.Context) (pipeline.NodeInstance, error) { return stubNode{}, nil }

	require.NoError(t, r.Register("noop", factory))

	got, ok := r.Get("noop")
	require.True(t, ok)
	inst, err := got(nil)
	require.NoError(t, err)
	assert.IsType(t, stubNode{}, inst)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	factory := func(jobCtx *pipeline.Context) (pipeline.NodeInstance, error) { return stubNode{}, nil }
	require.NoError(t, r.Register("noop", factory))
	assert.Error(t, r.Register("noop", factory))
}

func TestGetMissing(t *testing.T) {
	r := New()
	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	r := New()
	factory := func(jobCtx *pipeline.Context) (pipeline.NodeInstance, error) { return stubNode{}, nil }
	require.NoError(t, r.Register("noop", factory))
	r.Reset()
	_, ok := r.Get("noop")
	assert.False(t, ok)
}
