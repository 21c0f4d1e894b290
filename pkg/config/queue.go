package config

import "time"

// QueueConfig controls the per-lane in-process queues and their workers.
type QueueConfig struct {
	// BufferSize is the channel capacity of each lane. Enqueues beyond a
	// full lane are dropped rather than blocking intake.
	BufferSize int `yaml:"buffer_size"`

	// WorkersPerLane is how many workers drain each lane.
	WorkersPerLane int `yaml:"workers_per_lane"`

	// ShutdownTimeout bounds how long Stop waits for in-flight jobs.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultQueueConfig returns the queue defaults used when no overrides are
// present in the environment.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		BufferSize:      1024,
		WorkersPerLane:  1,
		ShutdownTimeout: 10 * time.Second,
	}
}
