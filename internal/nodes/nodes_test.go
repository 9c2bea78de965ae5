package nodes

import (
	"context"
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pipelined/pipelined/internal/infrastructure/memstore"
	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
)

func newJobContext(t *testing.T, store pipeline.ObjectStore, tx pipeline.Transaction) *pipeline.Context {
	t.Helper()
	return pipeline.NewContext(context.Background(), "job-test", store, tx, 8, 2)
}

func inputOf(v pipeline.DataValue) pipeline.Inputs {
	return pipeline.Inputs{"in": &v}
}

func TestBuiltinTypesRegistered(t *testing.T) {
	for _, name := range []string{"Input", "Output", "Hash", "Exec", "Template", "BlobFetch", "WriteReference"} {
		_, ok := noderegistry.Get(name)
		require.True(t, ok, "built-in node type %q not registered", name)
	}
}

func TestHashNode_Text(t *testing.T) {
	inst, err := NewHash(nil)
	require.NoError(t, err)

	out, err := inst.Run(context.Background(), nil, pipeline.NodeInfo{}, nil, inputOf(pipeline.NewText("hello")))
	require.NoError(t, err)

	want := sha256.Sum256([]byte("hello"))
	require.Equal(t, want[:], out["out"].Hash())
}

func TestHashNode_Blob(t *testing.T) {
	inst, err := NewHash(nil)
	require.NoError(t, err)

	blob := pipeline.NewBlobFromBytes([]byte("streaming payload"), 3, 2)
	out, err := inst.Run(context.Background(), nil, pipeline.NodeInfo{}, nil, inputOf(pipeline.NewBlob(blob)))
	require.NoError(t, err)

	want := sha256.Sum256([]byte("streaming payload"))
	require.Equal(t, want[:], out["out"].Hash())
}

func TestHashNode_MissingInput(t *testing.T) {
	inst, err := NewHash(nil)
	require.NoError(t, err)

	_, err = inst.Run(context.Background(), nil, pipeline.NodeInfo{}, nil, pipeline.Inputs{})
	require.Error(t, err)
}

func TestOutputNode_PassThrough(t *testing.T) {
	inst, err := NewOutput(nil)
	require.NoError(t, err)

	out, err := inst.Run(context.Background(), nil, pipeline.NodeInfo{}, nil, inputOf(pipeline.NewInteger(7)))
	require.NoError(t, err)
	require.Equal(t, int64(7), out["out"].Integer())
}

func TestInputNode_NeverRunDirectly(t *testing.T) {
	inst, err := NewInput(nil)
	require.NoError(t, err)

	_, err = inst.Run(context.Background(), nil, pipeline.NodeInfo{}, nil, pipeline.Inputs{})
	require.Error(t, err)
}

func TestTemplateNode_RendersInputs(t *testing.T) {
	inst, err := NewTemplate(nil)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"body": {Tag: "String", String: "Hello, {{.name}}!"},
	}
	name := pipeline.NewText("world")
	out, err := inst.Run(context.Background(), nil, pipeline.NodeInfo{ID: "t"}, params, pipeline.Inputs{"name": &name})
	require.NoError(t, err)
	require.Equal(t, "Hello, world!", out["out"].Text())
}

func TestTemplateNode_MissingVariableFails(t *testing.T) {
	inst, err := NewTemplate(nil)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"body": {Tag: "String", String: "{{.absent}}"},
	}
	_, err = inst.Run(context.Background(), nil, pipeline.NodeInfo{ID: "t"}, params, pipeline.Inputs{})
	require.Error(t, err)
}

func TestExecNode_CapturesStdout(t *testing.T) {
	inst, err := NewExec(nil)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"command": {Tag: "String", String: "printf ok"},
	}
	out, err := inst.Run(context.Background(), nil, pipeline.NodeInfo{ID: "e"}, params, pipeline.Inputs{})
	require.NoError(t, err)
	require.Equal(t, "ok", out["stdout"].Text())
}

func TestExecNode_StdinFromText(t *testing.T) {
	inst, err := NewExec(nil)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"command": {Tag: "String", String: "cat"},
	}
	stdin := pipeline.NewText("piped through")
	out, err := inst.Run(context.Background(), nil, pipeline.NodeInfo{ID: "e"}, params, pipeline.Inputs{"stdin": &stdin})
	require.NoError(t, err)
	require.Equal(t, "piped through", out["stdout"].Text())
}

func TestExecNode_FailureIncludesStderr(t *testing.T) {
	inst, err := NewExec(nil)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"command": {Tag: "String", String: "echo boom >&2; exit 3"},
	}
	_, err = inst.Run(context.Background(), nil, pipeline.NodeInfo{ID: "e"}, params, pipeline.Inputs{})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "boom"))
}

func TestBlobFetchNode_StreamsFromStore(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.CreateBucket(context.Background(), "media"))
	require.NoError(t, store.PutObject(context.Background(), "media", "item-1", strings.NewReader("object body")))

	jobCtx := newJobContext(t, store, nil)
	inst, err := NewBlobFetch(jobCtx)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"bucket": {Tag: "String", String: "media"},
	}
	ref := pipeline.NewReference(pipeline.Reference{ClassID: "audio", ItemID: "item-1"})
	out, err := inst.Run(context.Background(), jobCtx, pipeline.NodeInfo{}, params, inputOf(ref))
	require.NoError(t, err)

	data, err := out["out"].Blob().ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "object body", string(data))
}

// recordingTx captures Exec statements so WriteReference can be tested
// without PostgreSQL.
type recordingTx struct {
	queries []string
	args    [][]any
}

func (r *recordingTx) Exec(_ context.Context, query string, args ...any) error {
	r.queries = append(r.queries, query)
	r.args = append(r.args, args)
	return nil
}

func (r *recordingTx) Query(context.Context, string, ...any) (pipeline.Rows, error) {
	return nil, nil
}
func (r *recordingTx) Commit(context.Context) error   { return nil }
func (r *recordingTx) Rollback(context.Context) error { return nil }

func TestWriteReferenceNode_RecordsRow(t *testing.T) {
	tx := &recordingTx{}
	jobCtx := newJobContext(t, nil, tx)

	inst, err := NewWriteReference(jobCtx)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"table": {Tag: "String", String: "derived_items"},
	}
	ref := pipeline.NewReference(pipeline.Reference{ClassID: "audio", ItemID: "item-9"})
	out, err := inst.Run(context.Background(), jobCtx, pipeline.NodeInfo{}, params, inputOf(ref))
	require.NoError(t, err)

	require.Len(t, tx.queries, 1)
	require.Contains(t, tx.queries[0], "derived_items")
	require.Equal(t, []any{"audio", "item-9"}, tx.args[0])
	require.Equal(t, "item-9", out["out"].Reference().ItemID)
}

func TestWriteReferenceNode_RejectsBadTableName(t *testing.T) {
	jobCtx := newJobContext(t, nil, &recordingTx{})
	inst, err := NewWriteReference(jobCtx)
	require.NoError(t, err)

	params := map[string]pipeline.ParamValue{
		"table": {Tag: "String", String: "items; DROP TABLE items"},
	}
	ref := pipeline.NewReference(pipeline.Reference{ClassID: "a", ItemID: "b"})
	_, err = inst.Run(context.Background(), jobCtx, pipeline.NodeInfo{}, params, inputOf(ref))
	require.Error(t, err)
}
