package jobqueue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pipelined/pipelined/internal/pipeline"
	"github.com/pipelined/pipelined/internal/runner"
)

func docFixture(t *testing.T) *pipeline.Document {
	t.Helper()
	doc, err := pipeline.ParseDocument([]byte(`{"nodes": {"a": {"node_type": "Noop", "params": {}}}, "edges": {}}`))
	require.NoError(t, err)
	return doc
}

func TestMemory_AddAndPopFIFO(t *testing.T) {
	m := NewMemory(0)
	doc := docFixture(t)

	require.NoError(t, m.Add(context.Background(), &runner.QueuedJob{JobID: "a", Document: doc}))
	require.NoError(t, m.Add(context.Background(), &runner.QueuedJob{JobID: "b", Document: doc}))

	job, ok, err := m.GetQueuedJob(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", job.JobID)

	job, ok, err = m.GetQueuedJob(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", job.JobID)

	_, ok, err = m.GetQueuedJob(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemory_AddDuplicateRejected(t *testing.T) {
	m := NewMemory(0)
	doc := docFixture(t)

	require.NoError(t, m.Add(context.Background(), &runner.QueuedJob{JobID: "a", Document: doc}))
	err := m.Add(context.Background(), &runner.QueuedJob{JobID: "a", Document: doc})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemory_AddAtCapacityRejected(t *testing.T) {
	m := NewMemory(1)
	doc := docFixture(t)

	require.NoError(t, m.Add(context.Background(), &runner.QueuedJob{JobID: "a", Document: doc}))
	err := m.Add(context.Background(), &runner.QueuedJob{JobID: "b", Document: doc})
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestMemory_TerminalTransitionsFreeActiveSlot(t *testing.T) {
	m := NewMemory(1)
	doc := docFixture(t)

	require.NoError(t, m.Add(context.Background(), &runner.QueuedJob{JobID: "a", Document: doc}))
	_, _, err := m.GetQueuedJob(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.SuccessJob(context.Background(), "a"))
	require.NoError(t, m.Add(context.Background(), &runner.QueuedJob{JobID: "a", Document: doc}))
}

var _ runner.JobQueue = (*Memory)(nil)
