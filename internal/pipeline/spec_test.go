package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	pipelineerrors "github.com/pipelined/pipelined/pkg/errors"
)

type stubRegistry map[string]Factory

func (r stubRegistry) Get(typeName string) (Factory, bool) {
	f, ok := r[typeName]
	return f, ok
}

func noopFactory(*Context) (NodeInstance, error) { return noopInstance{}, nil }

type noopInstance struct{}

func (noopInstance) Run(context.Context, *Context, NodeInfo, map[string]ParamValue, Inputs) (Outputs, error) {
	return nil, nil
}

func docFromJSON(t *testing.T, body string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(body))
	require.NoError(t, err)
	return doc
}

func TestBuild_LinearPipeline(t *testing.T) {
	reg := stubRegistry{"Input": noopFactory, "Hash": noopFactory, "Output": noopFactory}
	doc := docFromJSON(t, `{
		"nodes": {
			"in": {"node_type": "Input", "params": {"input_name": {"type": "String", "value": "data"}}},
			"h":  {"node_type": "Hash", "params": {}},
			"out": {"node_type": "Output", "params": {}}
		},
		"edges": {
			"e1": {"edge_type": "Data", "source": {"node": "in", "port": "out"}, "target": {"node": "h", "port": "in"}},
			"e2": {"edge_type": "Data", "source": {"node": "h", "port": "out"}, "target": {"node": "out", "port": "in"}}
		}
	}`)

	spec, err := Build(reg, "linear", doc, map[string]DataValue{"data": NewText("hello")})
	require.NoError(t, err)
	require.Len(t, spec.InputNodes(), 1)
	seed, ok := spec.Seed(spec.InputNodes()[0])
	require.True(t, ok)
	require.Equal(t, "hello", seed.Text())
}

func TestBuild_CycleRejected(t *testing.T) {
	reg := stubRegistry{"Pass": noopFactory}
	doc := docFromJSON(t, `{
		"nodes": {
			"a": {"node_type": "Pass", "params": {}},
			"b": {"node_type": "Pass", "params": {}}
		},
		"edges": {
			"e1": {"edge_type": "Data", "source": {"node": "a", "port": "out"}, "target": {"node": "b", "port": "in"}},
			"e2": {"edge_type": "Data", "source": {"node": "b", "port": "out"}, "target": {"node": "a", "port": "in"}}
		}
	}`)

	_, err := Build(reg, "cycle", doc, nil)
	require.Error(t, err)
	var buildErr *pipelineerrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, pipelineerrors.BuildErrHasCycle, buildErr.Kind)
}

func TestBuild_MissingInput(t *testing.T) {
	reg := stubRegistry{"Input": noopFactory}
	doc := docFromJSON(t, `{
		"nodes": {
			"i": {"node_type": "Input", "params": {"input_name": {"type": "String", "value": "x"}}}
		},
		"edges": {}
	}`)

	_, err := Build(reg, "missing", doc, map[string]DataValue{"y": NewText("z")})
	require.Error(t, err)
	var buildErr *pipelineerrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, pipelineerrors.BuildErrMissingInput, buildErr.Kind)
	require.Equal(t, "x", buildErr.Name)
}

func TestBuild_UnknownNodeType(t *testing.T) {
	reg := stubRegistry{}
	doc := docFromJSON(t, `{"nodes": {"a": {"node_type": "Bogus", "params": {}}}, "edges": {}}`)

	_, err := Build(reg, "bad-type", doc, nil)
	require.Error(t, err)
	var buildErr *pipelineerrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, pipelineerrors.BuildErrBadNodeType, buildErr.Kind)
}

func TestBuild_DanglingEdge(t *testing.T) {
	reg := stubRegistry{"Pass": noopFactory}
	doc := docFromJSON(t, `{
		"nodes": {"a": {"node_type": "Pass", "params": {}}},
		"edges": {"e1": {"edge_type": "Data", "source": {"node": "a", "port": "out"}, "target": {"node": "ghost", "port": "in"}}}
	}`)

	_, err := Build(reg, "dangling", doc, nil)
	require.Error(t, err)
	var buildErr *pipelineerrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, pipelineerrors.BuildErrNoNode, buildErr.Kind)
}
