// Package memstore is an in-memory pipeline.ObjectStore, used by
// `pipelined exec` and by node/runner tests so neither needs a live GCS
// bucket.
package memstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pipelined/pipelined/internal/pipeline"
)

var ErrNotFound = errors.New("memstore: object not found")
var ErrBucketExists = errors.New("memstore: bucket already exists")
var ErrNoBucket = errors.New("memstore: no such bucket")

type object struct {
	data []byte
	mime string
}

// Store is a process-local ObjectStore keyed by bucket then key.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
}

// New returns an empty Store.
func New() *Store {
	return &Store{buckets: make(map[string]map[string]object)}
}

func (s *Store) CreateBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; ok {
		return ErrBucketExists
	}
	s.buckets[bucket] = make(map[string]object)
	return nil
}

func (s *Store) PutObject(_ context.Context, bucket, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return ErrNoBucket
	}
	objs[key] = object{data: data, mime: "application/octet-stream"}
	return nil
}

func (s *Store) GetObjectStream(_ context.Context, bucket, key string) (pipeline.ObjectStream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, ErrNoBucket
	}
	obj, ok := objs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Store) GetObjectMetadata(_ context.Context, bucket, key string) (pipeline.ObjectMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return pipeline.ObjectMetadata{}, ErrNoBucket
	}
	obj, ok := objs[key]
	if !ok {
		return pipeline.ObjectMetadata{}, ErrNotFound
	}
	return pipeline.ObjectMetadata{MIME: obj.mime, Size: int64(len(obj.data))}, nil
}

func (s *Store) DeleteObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return ErrNoBucket
	}
	delete(objs, key)
	return nil
}

var _ pipeline.ObjectStore = (*Store)(nil)
