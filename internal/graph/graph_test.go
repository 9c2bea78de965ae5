package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeAndEdge(t *testing.T) {
	g := New[string, string]()
	a := g.AddNode("a")
	b := g.AddNode("b")

	_, err := g.AddEdge(a, b, "a->b")
	require.NoError(t, err)

	require.NoError(t, g.Finalize())
	assert.Len(t, g.OutEdges(a), 1)
	assert.Len(t, g.InEdges(b), 1)
	assert.Empty(t, g.OutEdges(b))
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New[string, string]()
	a := g.AddNode("a")

	_, err := g.AddEdge(a, NodeIdx(5), "bad")
	assert.Error(t, err)
}

func TestHasCycleDirect(t *testing.T) {
	g := New[string, string]()
	a := g.AddNode("a")
	b := g.AddNode("b")
	_, err := g.AddEdge(a, b, "")
	require.NoError(t, err)
	_, err = g.AddEdge(b, a, "")
	require.NoError(t, err)

	assert.True(t, g.HasCycle())
	err = g.Finalize()
	assert.Error(t, err)
}

func TestHasCycleSelfLoop(t *testing.T) {
	g := New[string, string]()
	a := g.AddNode("a")
	_, err := g.AddEdge(a, a, "")
	require.NoError(t, err)
	assert.True(t, g.HasCycle())
}

func TestDiamondNoCycle(t *testing.T) {
	g := New[string, string]()
	a := g.AddNode("a")
	b := g.AddNode("b")
	c := g.AddNode("c")
	d := g.AddNode("d")

	for _, e := range [][2]NodeIdx{{a, b}, {a, c}, {b, d}, {c, d}} {
		_, err := g.AddEdge(e[0], e[1], "")
		require.NoError(t, err)
	}

	assert.False(t, g.HasCycle())
	require.NoError(t, g.Finalize())
	assert.Len(t, g.OutEdges(a), 2)
	assert.Len(t, g.InEdges(d), 2)
}

func TestGetEdgeMut(t *testing.T) {
	g := New[string, int]()
	a := g.AddNode("a")
	b := g.AddNode("b")
	eix, err := g.AddEdge(a, b, 1)
	require.NoError(t, err)

	g.GetEdgeMut(eix, func(v *int) { *v = 42 })
	assert.Equal(t, 42, g.Edge(eix))
}
