package pipeline

import (
	"encoding/json"
	"sort"

	"github.com/pipelined/pipelined/internal/graph"
	pipelineerrors "github.com/pipelined/pipelined/pkg/errors"
)

// EdgeKind distinguishes a port-to-port Data edge from an ordering-only
// After edge.
type EdgeKind int

const (
	EdgeData EdgeKind = iota
	EdgeOrder
)

// NodeSpec is the blueprint payload stored in Spec's graph: a node's
// declared type name and parameter map.
type NodeSpec struct {
	ID       string
	TypeName string
	Params   map[string]ParamValue
}

// EdgeSpec is the blueprint payload stored in Spec's graph.
// SourcePort/TargetPort are empty for Order edges.
type EdgeSpec struct {
	ID         string
	Kind       EdgeKind
	SourcePort string
	TargetPort string
}

// --- Pipeline JSON wire format ---

type portRefJSON struct {
	Node string `json:"node"`
	Port string `json:"port"`
}

type nodeJSON struct {
	NodeType string                `json:"node_type"`
	Params   map[string]ParamValue `json:"params"`
}

type edgeJSON struct {
	EdgeType string      `json:"edge_type"`
	Source   portRefJSON `json:"source"`
	Target   portRefJSON `json:"target"`
}

// Document is the parsed shape of a pipeline JSON document: the input to
// Build.
type Document struct {
	Nodes map[string]nodeJSON `json:"nodes"`
	Edges map[string]edgeJSON `json:"edges"`
}

// ParseDocument decodes a pipeline JSON document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

const inputNodeType = "Input"
const inputNameParam = "input_name"

// Spec is a validated, acyclic dataflow graph built from a serialized
// pipeline description. It is immutable once Build returns
// successfully.
type Spec struct {
	Name string

	g *graph.Graph[NodeSpec, EdgeSpec]

	idToIdx map[string]graph.NodeIdx
	order   []graph.NodeIdx // stable dispatch order used by the scheduler

	// seeds holds, for each Input node resolved in pass 4, the caller-
	// supplied DataValue that every edge leaving that node should be
	// pre-populated with.
	seeds map[graph.NodeIdx]DataValue
	// inputNodes lists every node whose type_name is Input, in order; a
	// PipelineJob marks each of these Done at construction time.
	inputNodes []graph.NodeIdx
}

// Graph exposes the underlying index-stable graph for PipelineJob.
func (s *Spec) Graph() *graph.Graph[NodeSpec, EdgeSpec] { return s.g }

// Order returns nodes in the stable dispatch order the scheduler requires.
func (s *Spec) Order() []graph.NodeIdx { return s.order }

// Seed returns the pre-seeded value for an Input node, if any.
func (s *Spec) Seed(n graph.NodeIdx) (DataValue, bool) {
	v, ok := s.seeds[n]
	return v, ok
}

// InputNodes lists every node resolved as an Input node during Build.
func (s *Spec) InputNodes() []graph.NodeIdx { return s.inputNodes }

// Build performs the four-pass construction:
//  1. create a node for each declared node, rejecting unknown type names
//     through the registry;
//  2. create one edge per declaration, verifying only that endpoints exist;
//  3. cycle check;
//  4. resolve Input nodes against the caller-supplied inputs map.
func Build(reg FactoryLookup, name string, doc *Document, inputs map[string]DataValue) (*Spec, error) {
	s := &Spec{
		Name:    name,
		g:       graph.New[NodeSpec, EdgeSpec](),
		idToIdx: make(map[string]graph.NodeIdx, len(doc.Nodes)),
		seeds:   make(map[graph.NodeIdx]DataValue),
	}

	// Pass 1: nodes, in a stable (sorted) order so dispatch order is
	// deterministic across runs of the same document.
	nodeIDs := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	for _, id := range nodeIDs {
		decl := doc.Nodes[id]
		if _, ok := reg.Get(decl.NodeType); !ok {
			return nil, pipelineerrors.NewBadNodeTypeError(id, decl.NodeType)
		}
		idx := s.g.AddNode(NodeSpec{ID: id, TypeName: decl.NodeType, Params: decl.Params})
		s.idToIdx[id] = idx
		s.order = append(s.order, idx)
	}

	// Pass 2: edges, verifying only referential integrity.
	edgeIDs := make([]string, 0, len(doc.Edges))
	for id := range doc.Edges {
		edgeIDs = append(edgeIDs, id)
	}
	sort.Strings(edgeIDs)

	for _, id := range edgeIDs {
		decl := doc.Edges[id]

		srcIdx, ok := s.idToIdx[decl.Source.Node]
		if !ok {
			return nil, pipelineerrors.NewNoNodeError(id, decl.Source.Node)
		}
		dstIdx, ok := s.idToIdx[decl.Target.Node]
		if !ok {
			return nil, pipelineerrors.NewNoNodeError(id, decl.Target.Node)
		}

		kind := EdgeData
		if decl.EdgeType == "After" {
			kind = EdgeOrder
		}

		if _, err := s.g.AddEdge(srcIdx, dstIdx, EdgeSpec{
			ID:         id,
			Kind:       kind,
			SourcePort: decl.Source.Port,
			TargetPort: decl.Target.Port,
		}); err != nil {
			return nil, pipelineerrors.NewNoNodeError(id, decl.Source.Node)
		}
	}

	// Pass 3: cycle check.
	if err := s.g.Finalize(); err != nil {
		return nil, err
	}

	// Pass 4: resolve Input nodes.
	for _, idx := range s.order {
		node := s.g.Node(idx)
		if node.TypeName != inputNodeType {
			continue
		}
		s.inputNodes = append(s.inputNodes, idx)

		param, ok := node.Params[inputNameParam]
		if !ok {
			return nil, pipelineerrors.NewInvalidInputNodeError(node.ID)
		}
		name, ok := param.AsString()
		if !ok {
			return nil, pipelineerrors.NewInvalidInputNodeError(node.ID)
		}

		value, ok := inputs[name]
		if !ok {
			return nil, pipelineerrors.NewMissingInputError(name)
		}

		s.seeds[idx] = value
	}

	return s, nil
}
