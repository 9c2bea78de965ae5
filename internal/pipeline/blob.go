package pipeline

import (
	"context"
	"io"

	pipelineerrors "github.com/pipelined/pipelined/pkg/errors"
)

// Fragment is one contiguous byte slice produced by a Blob's backing
// producer, in order.
type Fragment struct {
	Data []byte
	Err  error
}

// Blob is a lazy, single-consumer pull stream backed by a bounded channel.
// It wraps one of two origins: an object-store key fetched in fixed-size
// fragments, or an in-memory byte slice. Blobs are moved, never duplicated;
// Open may be called at most once.
type Blob struct {
	ch     <-chan Fragment
	cancel context.CancelFunc
	opened bool
}

// Open returns the fragment channel for the single consumer of this Blob. A
// second call fails with BlobAlreadyConsumed: attempting to read a
// consumed Blob always fails that way.
func (b *Blob) Open() (<-chan Fragment, error) {
	if b.opened {
		return nil, pipelineerrors.NewBlobAlreadyConsumedError()
	}
	b.opened = true
	return b.ch, nil
}

// Close releases the producer side, if it is still running. The scheduler's
// rule of dropping Done nodes immediately is what
// actually closes the sender in the common case; Close exists so a consumer
// that abandons a Blob early (e.g. a node that errors mid-read) can still
// unblock the producer goroutine promptly.
func (b *Blob) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// ReadAll drains the Blob to a single byte slice. Intended for tests and for
// node implementations that need the whole payload in memory (e.g. a hash
// node). It is itself the single read of the Blob.
func (b *Blob) ReadAll(ctx context.Context) ([]byte, error) {
	ch, err := b.Open()
	if err != nil {
		return nil, err
	}
	var out []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case frag, ok := <-ch:
			if !ok {
				return out, nil
			}
			if frag.Err != nil {
				return nil, frag.Err
			}
			out = append(out, frag.Data...)
		}
	}
}

// NewBlobFromBytes builds a Blob whose producer is an in-memory byte slice,
// chunked into fragments of fragmentSize. bufSize sizes the bounded channel;
// a slow consumer naturally slows the producer.
func NewBlobFromBytes(data []byte, fragmentSize, bufSize int) *Blob {
	if fragmentSize <= 0 {
		fragmentSize = len(data)
		if fragmentSize == 0 {
			fragmentSize = 1
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan Fragment, bufSize)

	go func() {
		defer close(ch)
		for off := 0; off < len(data); off += fragmentSize {
			end := off + fragmentSize
			if end > len(data) {
				end = len(data)
			}
			select {
			case <-ctx.Done():
				return
			case ch <- Fragment{Data: data[off:end]}:
			}
		}
	}()

	return &Blob{ch: ch, cancel: cancel}
}

// NewBlobFromReader builds a Blob whose producer pulls fixed-size fragments
// from an io.Reader: the streaming-read side of the object-store contract.
// The reader is closed when the producer goroutine exits, whether by
// exhaustion, read error, or cancellation.
func NewBlobFromReader(parent context.Context, r io.ReadCloser, fragmentSize, bufSize int) *Blob {
	if fragmentSize <= 0 {
		fragmentSize = 1 << 16
	}
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan Fragment, bufSize)

	go func() {
		defer close(ch)
		defer r.Close()
		buf := make([]byte, fragmentSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				frag := Fragment{Data: append([]byte(nil), buf[:n]...)}
				select {
				case <-ctx.Done():
					return
				case ch <- frag:
				}
			}
			if err != nil {
				if err != io.EOF {
					select {
					case ch <- Fragment{Err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()

	return &Blob{ch: ch, cancel: cancel}
}
