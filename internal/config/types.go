// Package config loads the runner process's own configuration: queue
// backend selection, worker-pool sizing, and object-store/database
// credentials, decoded with gopkg.in/yaml.v3 and validated with
// github.com/go-playground/validator/v10 using a discriminated-union style.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the full runner process configuration document.
type Config struct {
	Runner RunnerConfig `yaml:"runner"`
	Queue  QueueConfig  `yaml:"queue"`
	Store  StoreConfig  `yaml:"store"`
	DB     DBConfig     `yaml:"database,omitempty"`
}

// RunnerConfig controls job concurrency and polling. DrainOnFailure is false
// when drain_on_failure is omitted, so the runner fails a job fast unless it
// is set; pipeline.DefaultOptions is not consulted.
type RunnerConfig struct {
	MaxRunningJobs int    `yaml:"max_running_jobs" validate:"omitempty,min=1,max=1024"`
	PollIntervalMS int    `yaml:"poll_interval_ms" validate:"omitempty,min=1,max=60000"`
	JobLogSize     int    `yaml:"job_log_size" validate:"omitempty,min=1,max=100000"`
	MaxWorkers     int    `yaml:"max_workers" validate:"omitempty,min=1,max=4096"`
	FragmentSize   int    `yaml:"fragment_size,omitempty" validate:"omitempty,min=1"`
	BlobBufferSize int    `yaml:"blob_buffer_size,omitempty" validate:"omitempty,min=1"`
	DrainOnFailure bool   `yaml:"drain_on_failure,omitempty"`
	CorrelationKey string `yaml:"correlation_key,omitempty"`
}

// QueueConfig is the discriminated union over job-queue backends. Type
// selects which of Memory/Badger is populated, picking one concrete
// sub-struct out of several inline ones.
type QueueConfig struct {
	Type string `yaml:"type" validate:"required,oneof=memory badger"`

	Memory *MemoryQueueConfig `yaml:",inline,omitempty"`
	Badger *BadgerQueueConfig `yaml:",inline,omitempty"`
}

// MemoryQueueConfig configures the in-process queue.
type MemoryQueueConfig struct {
	Capacity int `yaml:"capacity,omitempty" validate:"omitempty,min=0"`
}

// BadgerQueueConfig configures the durable on-disk queue.
type BadgerQueueConfig struct {
	DataDir  string `yaml:"data_dir" validate:"required"`
	Capacity int    `yaml:"capacity,omitempty" validate:"omitempty,min=0"`
}

// StoreConfig is the discriminated union over object-store backends.
type StoreConfig struct {
	Type string `yaml:"type" validate:"required,oneof=memory gcs"`

	GCS *GCSStoreConfig `yaml:",inline,omitempty"`
}

// GCSStoreConfig configures the Google Cloud Storage object-store adapter.
type GCSStoreConfig struct {
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

// DBConfig configures the optional PostgreSQL transaction backend. Nodes
// that never touch Context.Tx run fine with this left zero-valued.
type DBConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// UnmarshalYAML picks the queue backend's concrete sub-struct.
func (q *QueueConfig) UnmarshalYAML(value *yaml.Node) error {
	type baseQueue struct {
		Type string `yaml:"type"`
	}
	var base baseQueue
	if err := value.Decode(&base); err != nil {
		return err
	}

	q.Type = base.Type
	q.Memory = nil
	q.Badger = nil

	switch base.Type {
	case "memory":
		var m MemoryQueueConfig
		if err := value.Decode(&m); err != nil {
			return err
		}
		q.Memory = &m
	case "badger":
		var b BadgerQueueConfig
		if err := value.Decode(&b); err != nil {
			return err
		}
		q.Badger = &b
	}
	return nil
}

// UnmarshalYAML picks the object-store backend's concrete sub-struct.
func (s *StoreConfig) UnmarshalYAML(value *yaml.Node) error {
	type baseStore struct {
		Type string `yaml:"type"`
	}
	var base baseStore
	if err := value.Decode(&base); err != nil {
		return err
	}

	s.Type = base.Type
	s.GCS = nil

	if base.Type == "gcs" {
		var g GCSStoreConfig
		if err := value.Decode(&g); err != nil {
			return err
		}
		s.GCS = &g
	}
	return nil
}

// Validate reports inconsistencies UnmarshalYAML's discriminated decode
// cannot express via struct tags alone.
func (c *Config) Validate() error {
	if c.Queue.Type == "badger" && c.Queue.Badger == nil {
		return fmt.Errorf("queue: type badger requires a data_dir")
	}
	if c.Queue.Type == "badger" && c.Queue.Badger.DataDir == "" {
		return fmt.Errorf("queue.data_dir: required")
	}
	if c.Store.Type == "gcs" && c.Store.GCS == nil {
		c.Store.GCS = &GCSStoreConfig{}
	}
	return nil
}
