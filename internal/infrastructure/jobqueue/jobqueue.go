// Package jobqueue provides concrete implementations of runner.JobQueue: an
// in-memory queue for tests and `pipelined run` with queue type memory, and a
// durable github.com/dgraph-io/badger/v4-backed queue for `pipelined run`
// with queue type badger. Both additionally expose Add, surfacing admission errors
// (ErrAlreadyExists, ErrQueueFull) to callers that enqueue jobs.
package jobqueue

import "errors"

// ErrAlreadyExists is returned by Add when a job with the same id is already
// queued or running.
var ErrAlreadyExists = errors.New("jobqueue: a job with this id already exists")

// ErrQueueFull is returned by Add when the queue is at capacity.
var ErrQueueFull = errors.New("jobqueue: job queue is full")
