package pipeline

import (
	"context"
	"io"
	"sync"
)

// ObjectStream is the streaming-read handle returned by ObjectStore. The
// pipeline core consumes only streaming reads.
type ObjectStream = io.ReadCloser

// ObjectMetadata describes a stored object without fetching its bytes.
type ObjectMetadata struct {
	MIME string
	Size int64
}

// ObjectStore is the narrow external collaborator a node may assume about
// object storage: get_object_stream, get_object_metadata, create_bucket,
// delete_object, and multipart upload primitives. Upload/download
// transport itself is out of scope for the pipeline core.
type ObjectStore interface {
	GetObjectStream(ctx context.Context, bucket, key string) (ObjectStream, error)
	GetObjectMetadata(ctx context.Context, bucket, key string) (ObjectMetadata, error)
	CreateBucket(ctx context.Context, bucket string) error
	DeleteObject(ctx context.Context, bucket, key string) error
	// PutObject is the multipart-upload primitive nodes use to publish
	// derived blobs back to the store.
	PutObject(ctx context.Context, bucket, key string, r io.Reader) error
}

// Transaction is the narrow database contract consumed by nodes, not by
// the core itself: CRUD-level mutation methods plus a one-shot Commit on
// job success. The core never issues statements itself; it only hands the
// handle to nodes through Context.
type Transaction interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	// Commit may be called at most once, on job success. The database
	// transaction is protected by a mutex; only the transaction requires
	// serialization.
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows is the narrow result-set cursor returned by Transaction.Query.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// Context is the opaque per-job environment: an object-store handle, a
// database transaction, fragment sizes, and job identity, passed by
// reference to every node invocation. Only the transaction requires
// serialization; the object-store client is thread-safe and shared, and
// everything else is immutable for the job's lifetime.
type Context struct {
	JobID string

	Store ObjectStore

	// txMu guards Tx: the transaction is exclusive, protected by a mutex,
	// while everything else in Context is either thread-safe or immutable.
	// Nodes must acquire it briefly and must not hold it across Blob reads.
	txMu sync.Mutex
	Tx   Transaction

	// FragmentSize is the chunk size used when a Blob's producer is an
	// object-store fetch.
	FragmentSize int
	// BlobBufferSize sizes the bounded channel backing every Blob created
	// for this job.
	BlobBufferSize int

	// Background is canceled by Release, which PipelineJob.Run calls when it
	// returns; it is the cooperative cancellation signal every Blob producer
	// observes.
	Background context.Context
	cancel     context.CancelFunc
}

// NewContext constructs a per-job Context. parent is typically
// context.Background(); it is wrapped so that canceling the job cancels
// every Blob producer and node still observing Background.
func NewContext(parent context.Context, jobID string, store ObjectStore, tx Transaction, fragmentSize, blobBufferSize int) *Context {
	ctx, cancel := context.WithCancel(parent)
	return &Context{
		JobID:          jobID,
		Store:          store,
		Tx:             tx,
		FragmentSize:   fragmentSize,
		BlobBufferSize: blobBufferSize,
		Background:     ctx,
		cancel:         cancel,
	}
}

// WithTransaction runs fn while holding the transaction mutex, releasing it
// before returning. Nodes must not read a Blob while inside fn.
func (c *Context) WithTransaction(fn func(Transaction) error) error {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	if c.Tx == nil {
		return nil
	}
	return fn(c.Tx)
}

// Release cancels Background, the cooperative-cancellation signal every Blob
// producer and context-aware node observes. Called once the job reaches a
// terminal state.
func (c *Context) Release() {
	if c.cancel != nil {
		c.cancel()
	}
}

// NewBlobFromObjectStore fetches bucket/key from Store and wraps the stream
// as a Blob using this Context's configured fragment and buffer sizes.
func (c *Context) NewBlobFromObjectStore(ctx context.Context, bucket, key string) (*Blob, error) {
	stream, err := c.Store.GetObjectStream(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return NewBlobFromReader(c.Background, stream, c.FragmentSize, c.BlobBufferSize), nil
}
