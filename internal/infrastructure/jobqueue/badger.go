package jobqueue

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/pipelined/pipelined/internal/runner"
)

// Key layout, using a single-byte-prefix keyspace idiom:
//   0x01 + seq(8 bytes big-endian) -> jobRecord JSON  (queued, FIFO order)
//   0x02 + jobID                   -> empty           (admission index)
const (
	prefixQueued byte = 0x01
	prefixActive byte = 0x02
)

// Badger is a durable runner.JobQueue backed by an embedded
// github.com/dgraph-io/badger/v4 store, giving the Runner's external queue
// contract a persistent implementation without standing up a separate
// service.
type Badger struct {
	db       *badger.DB
	seq      *badger.Sequence
	capacity int
}

// BadgerOptions configures the embedded store.
type BadgerOptions struct {
	// DataDir is where badger persists its files.
	DataDir string
	// Capacity bounds the number of jobs that may be queued at once; 0
	// means unbounded.
	Capacity int
}

// OpenBadger opens (creating if necessary) a durable job queue at
// opts.DataDir.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: open badger store: %w", err)
	}

	seq, err := db.GetSequence([]byte("jobqueue:seq"), 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("jobqueue: acquire sequence: %w", err)
	}

	return &Badger{db: db, seq: seq, capacity: opts.Capacity}, nil
}

// Close releases the sequence lease and closes the underlying store.
func (b *Badger) Close() error {
	if err := b.seq.Release(); err != nil {
		b.db.Close()
		return fmt.Errorf("jobqueue: release sequence: %w", err)
	}
	return b.db.Close()
}

func queuedKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixQueued
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

func activeKey(jobID string) []byte {
	return append([]byte{prefixActive}, []byte(jobID)...)
}

// Add enqueues job durably, returning ErrAlreadyExists or ErrQueueFull.
func (b *Badger) Add(_ context.Context, job *runner.QueuedJob) error {
	inputs, err := encodeInputs(job.Inputs)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		ak := activeKey(job.JobID)
		if _, err := txn.Get(ak); err == nil {
			return ErrAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if b.capacity > 0 {
			count := 0
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			prefix := []byte{prefixQueued}
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				count++
			}
			it.Close()
			if count >= b.capacity {
				return ErrQueueFull
			}
		}

		seq, err := b.seq.Next()
		if err != nil {
			return fmt.Errorf("jobqueue: next sequence: %w", err)
		}

		data, err := marshalRecord(jobRecord{
			JobID:    job.JobID,
			Name:     job.Name,
			Document: job.Document,
			Inputs:   inputs,
			OwnedBy:  job.OwnedBy,
		})
		if err != nil {
			return err
		}

		if err := txn.Set(queuedKey(seq), data); err != nil {
			return err
		}
		return txn.Set(ak, []byte{})
	})
}

// GetQueuedJob implements runner.JobQueue: it pops the oldest queued record.
func (b *Badger) GetQueuedJob(context.Context) (*runner.QueuedJob, bool, error) {
	var job *runner.QueuedJob

	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{prefixQueued}
		it.Seek(prefix)
		if !it.ValidForPrefix(prefix) {
			return nil
		}

		item := it.Item()
		key := append([]byte(nil), item.Key()...)

		var rec jobRecord
		if err := item.Value(func(val []byte) error {
			var decErr error
			rec, decErr = unmarshalRecord(val)
			return decErr
		}); err != nil {
			return err
		}

		if err := txn.Delete(key); err != nil {
			return err
		}

		job = &runner.QueuedJob{
			JobID:    rec.JobID,
			Name:     rec.Name,
			Document: rec.Document,
			Inputs:   decodeInputs(rec.Inputs),
			OwnedBy:  rec.OwnedBy,
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return job, job != nil, nil
}

// SuccessJob implements runner.JobQueue.
func (b *Badger) SuccessJob(_ context.Context, jobID string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(activeKey(jobID))
	})
}

// FailJobRun implements runner.JobQueue.
func (b *Badger) FailJobRun(_ context.Context, jobID string, _ string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(activeKey(jobID))
	})
}

// BuilderrorJob implements runner.JobQueue.
func (b *Badger) BuilderrorJob(_ context.Context, jobID string, _ string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(activeKey(jobID))
	})
}

var _ runner.JobQueue = (*Badger)(nil)
