package nodes

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
)

func init() {
	if err := noderegistry.Register("Template", NewTemplate); err != nil {
		panic(err)
	}
}

// templateInstance renders a text/template body against its Text-valued
// inputs, each input port becoming a template variable by name: the node's
// own "body" param rendered against upstream Text inputs, with no
// filesystem touchpoint at all. Quick: in-memory template execution is a
// synchronous, bounded-cost operation.
type templateInstance struct{}

// NewTemplate returns the factory registered for the "Template" node type.
func NewTemplate(*pipeline.Context) (pipeline.NodeInstance, error) {
	return templateInstance{}, nil
}

func (templateInstance) Run(_ context.Context, _ *pipeline.Context, info pipeline.NodeInfo, params map[string]pipeline.ParamValue, inputs pipeline.Inputs) (pipeline.Outputs, error) {
	bodyParam, ok := params["body"]
	if !ok {
		return nil, fmt.Errorf("nodes: template node %q: missing %q param", info.ID, "body")
	}
	body, ok := bodyParam.AsString()
	if !ok {
		return nil, fmt.Errorf("nodes: template node %q: %q param must be a string", info.ID, "body")
	}

	option := "missingkey=error"
	if allowMissing, ok := params["allow_missing"]; ok && allowMissing.Boolean {
		option = "missingkey=zero"
	}

	tmpl, err := template.New(info.ID).Option(option).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("nodes: template node %q: parse: %w", info.ID, err)
	}

	data := make(map[string]string, len(inputs))
	for port, v := range inputs {
		if v == nil || v.Kind != pipeline.KindText {
			continue
		}
		data[port] = v.Text()
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("nodes: template node %q: execute: %w", info.ID, err)
	}

	return pipeline.Outputs{"out": pipeline.NewText(buf.String())}, nil
}

func (templateInstance) Quick() bool { return true }

var _ pipeline.QuickNode = templateInstance{}
