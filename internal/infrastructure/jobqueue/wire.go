package jobqueue

import (
	"encoding/json"
	"fmt"

	"github.com/pipelined/pipelined/internal/pipeline"
)

// jobRecord is the on-disk shape of a QueuedJob: the pipeline document is
// kept as raw JSON (pipeline.Document already knows how to (un)marshal
// itself), while caller inputs are re-expressed as a scalar wire union since
// pipeline.DataValue carries unexported fields. Blob-kind inputs cannot be
// queued durably: the job-queue contract only ever hands the Runner
// scalar/reference "AttrData", with Blob values originating from the
// object store inside node execution, not from queue input.
type jobRecord struct {
	JobID    string                `json:"job_id"`
	Name     string                `json:"name"`
	Document *pipeline.Document    `json:"document"`
	Inputs   map[string]inputWire  `json:"inputs"`
	OwnedBy  string                `json:"owned_by"`
}

type inputWire struct {
	Kind      string            `json:"kind"`
	Text      string            `json:"text,omitempty"`
	Integer   int64             `json:"integer,omitempty"`
	Float     float64           `json:"float,omitempty"`
	Boolean   bool              `json:"boolean,omitempty"`
	Hash      []byte            `json:"hash,omitempty"`
	Reference pipeline.Reference `json:"reference,omitempty"`
}

func encodeInputs(inputs map[string]pipeline.DataValue) (map[string]inputWire, error) {
	out := make(map[string]inputWire, len(inputs))
	for name, v := range inputs {
		switch v.Kind {
		case pipeline.KindText:
			out[name] = inputWire{Kind: "Text", Text: v.Text()}
		case pipeline.KindInteger:
			out[name] = inputWire{Kind: "Integer", Integer: v.Integer()}
		case pipeline.KindFloat:
			out[name] = inputWire{Kind: "Float", Float: v.Float()}
		case pipeline.KindBoolean:
			out[name] = inputWire{Kind: "Boolean", Boolean: v.Boolean()}
		case pipeline.KindHash:
			out[name] = inputWire{Kind: "Hash", Hash: v.Hash()}
		case pipeline.KindReference:
			out[name] = inputWire{Kind: "Reference", Reference: v.Reference()}
		default:
			return nil, fmt.Errorf("jobqueue: input %q: %s values cannot be queued durably", name, v.Kind)
		}
	}
	return out, nil
}

func decodeInputs(wire map[string]inputWire) map[string]pipeline.DataValue {
	out := make(map[string]pipeline.DataValue, len(wire))
	for name, w := range wire {
		switch w.Kind {
		case "Text":
			out[name] = pipeline.NewText(w.Text)
		case "Integer":
			out[name] = pipeline.NewInteger(w.Integer)
		case "Float":
			out[name] = pipeline.NewFloat(w.Float)
		case "Boolean":
			out[name] = pipeline.NewBoolean(w.Boolean)
		case "Hash":
			out[name] = pipeline.NewHash(w.Hash)
		case "Reference":
			out[name] = pipeline.NewReference(w.Reference)
		}
	}
	return out
}

func marshalRecord(rec jobRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func unmarshalRecord(data []byte) (jobRecord, error) {
	var rec jobRecord
	err := json.Unmarshal(data, &rec)
	return rec, err
}
