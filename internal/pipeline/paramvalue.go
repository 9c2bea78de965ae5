package pipeline

import (
	"encoding/json"
	"fmt"
)

// ParamValue is the tagged union carried by NodeSpec.Params: a scalar kind
// plus a DataType tag used to declare input/output shapes for the Input
// node. Decoding picks a concrete sub-struct from a "type" field, the
// pipeline JSON's "type"/"value" shape.
type ParamValue struct {
	Tag      string
	String   string
	Integer  int64
	Float    float64
	Boolean  bool
	DataType Kind
}

// paramValueWire is the on-the-wire shape: {"type": "...", "value": ...}.
type paramValueWire struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON implements the discriminated decode: the "type" field picks
// which of String/Integer/Float/Boolean/DataType the "value" field is
// parsed as.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	var wire paramValueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("param value: %w", err)
	}

	p.Tag = wire.Type
	switch wire.Type {
	case "String":
		return json.Unmarshal(wire.Value, &p.String)
	case "Integer":
		return json.Unmarshal(wire.Value, &p.Integer)
	case "Float":
		return json.Unmarshal(wire.Value, &p.Float)
	case "Boolean":
		return json.Unmarshal(wire.Value, &p.Boolean)
	case "DataType":
		var name string
		if err := json.Unmarshal(wire.Value, &name); err != nil {
			return err
		}
		kind, err := kindFromName(name)
		if err != nil {
			return err
		}
		p.DataType = kind
		return nil
	default:
		return fmt.Errorf("param value: unrecognized tag %q", wire.Type)
	}
}

// MarshalJSON writes a ParamValue back to its {"type","value"} wire shape.
func (p ParamValue) MarshalJSON() ([]byte, error) {
	switch p.Tag {
	case "String":
		return json.Marshal(paramValueWireOut{Type: p.Tag, Value: p.String})
	case "Integer":
		return json.Marshal(paramValueWireOut{Type: p.Tag, Value: p.Integer})
	case "Float":
		return json.Marshal(paramValueWireOut{Type: p.Tag, Value: p.Float})
	case "Boolean":
		return json.Marshal(paramValueWireOut{Type: p.Tag, Value: p.Boolean})
	case "DataType":
		return json.Marshal(paramValueWireOut{Type: p.Tag, Value: p.DataType.String()})
	default:
		return nil, fmt.Errorf("param value: unrecognized tag %q", p.Tag)
	}
}

type paramValueWireOut struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func kindFromName(name string) (Kind, error) {
	switch name {
	case "Text":
		return KindText, nil
	case "Integer":
		return KindInteger, nil
	case "Float":
		return KindFloat, nil
	case "Boolean":
		return KindBoolean, nil
	case "Hash":
		return KindHash, nil
	case "Reference":
		return KindReference, nil
	case "Blob":
		return KindBlob, nil
	default:
		return 0, fmt.Errorf("param value: unrecognized DataType %q", name)
	}
}

// AsString returns the String variant, for params like Input's input_name
// that must be string-valued.
func (p ParamValue) AsString() (string, bool) {
	if p.Tag != "String" {
		return "", false
	}
	return p.String, true
}
