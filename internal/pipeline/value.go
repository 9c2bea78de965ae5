package pipeline

import "fmt"

// Kind tags the concrete variant held by a DataValue.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindHash
	KindReference
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindHash:
		return "Hash"
	case KindReference:
		return "Reference"
	case KindBlob:
		return "Blob"
	default:
		return "Unknown"
	}
}

// Reference points at an item within a dataset class; the metadata service
// that owns classes/attributes/items is a non-goal here, so this
// is an opaque pair of interned identifiers.
type Reference struct {
	ClassID string
	ItemID  string
}

// DataValue is the tagged union of values that flow along pipeline edges:
// scalars, hashes, dataset references, and lazy blob handles.
type DataValue struct {
	Kind      Kind
	text      string
	integer   int64
	float     float64
	boolean   bool
	hash      []byte
	reference Reference
	blob      *Blob
}

func NewText(v string) DataValue          { return DataValue{Kind: KindText, text: v} }
func NewInteger(v int64) DataValue        { return DataValue{Kind: KindInteger, integer: v} }
func NewFloat(v float64) DataValue        { return DataValue{Kind: KindFloat, float: v} }
func NewBoolean(v bool) DataValue         { return DataValue{Kind: KindBoolean, boolean: v} }
func NewHash(v []byte) DataValue          { return DataValue{Kind: KindHash, hash: v} }
func NewReference(r Reference) DataValue  { return DataValue{Kind: KindReference, reference: r} }
func NewBlob(b *Blob) DataValue           { return DataValue{Kind: KindBlob, blob: b} }

// Text returns the wrapped string; it panics if Kind != KindText. Callers
// are expected to switch on Kind first.
func (v DataValue) Text() string {
	v.mustBe(KindText)
	return v.text
}

func (v DataValue) Integer() int64 {
	v.mustBe(KindInteger)
	return v.integer
}

func (v DataValue) Float() float64 {
	v.mustBe(KindFloat)
	return v.float
}

func (v DataValue) Boolean() bool {
	v.mustBe(KindBoolean)
	return v.boolean
}

func (v DataValue) Hash() []byte {
	v.mustBe(KindHash)
	return v.hash
}

func (v DataValue) Reference() Reference {
	v.mustBe(KindReference)
	return v.reference
}

func (v DataValue) Blob() *Blob {
	v.mustBe(KindBlob)
	return v.blob
}

func (v DataValue) mustBe(k Kind) {
	if v.Kind != k {
		panic(fmt.Sprintf("pipeline: DataValue is %s, not %s", v.Kind, k))
	}
}
