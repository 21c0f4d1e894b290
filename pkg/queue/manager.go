package queue

import (
	"fmt"
	"log/slog"

	"github.com/digestkit/digestd/pkg/config"
)

// Manager owns the three buffered lanes. Enqueue is non-blocking so the
// intake handler can acknowledge within the platform's retry deadline.
type Manager struct {
	lanes map[Lane]chan Job
}

// NewManager creates the lanes, each buffered to cfg.BufferSize.
func NewManager(cfg *config.QueueConfig) *Manager {
	lanes := make(map[Lane]chan Job, len(Lanes()))
	for _, lane := range Lanes() {
		lanes[lane] = make(chan Job, cfg.BufferSize)
	}
	return &Manager{lanes: lanes}
}

// TryEnqueue places a job on its lane without blocking. A full lane drops
// the job and returns ErrQueueFull.
func (m *Manager) TryEnqueue(job Job) error {
	ch, ok := m.lanes[job.Lane]
	if !ok {
		return fmt.Errorf("unknown lane %q", job.Lane)
	}
	select {
	case ch <- job:
		return nil
	default:
		slog.Warn("Lane at capacity, dropping job",
			"lane", string(job.Lane),
			"event_id", job.EventID)
		return ErrQueueFull
	}
}

// Size reports the buffered depth of one lane.
func (m *Manager) Size(lane Lane) int {
	return len(m.lanes[lane])
}

// Sizes reports all lane depths keyed by lane name.
func (m *Manager) Sizes() map[string]int {
	sizes := make(map[string]int, len(m.lanes))
	for lane, ch := range m.lanes {
		sizes[string(lane)] = len(ch)
	}
	return sizes
}

// jobs exposes the receive side of a lane to its workers.
func (m *Manager) jobs(lane Lane) <-chan Job {
	return m.lanes[lane]
}
