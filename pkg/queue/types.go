// Package queue provides the priority lanes and the workers that fold
// accepted events into thread state.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/digestkit/digestd/pkg/models"
)

// Lane identifies one of the three priority queues.
type Lane string

// Lane names. Hot carries escalations, standard everything else accepted at
// intake, backfill replays and simulator catch-up traffic.
const (
	LaneHot      Lane = "hot"
	LaneStandard Lane = "standard"
	LaneBackfill Lane = "backfill"
)

// Lanes lists every lane in priority order.
func Lanes() []Lane {
	return []Lane{LaneHot, LaneStandard, LaneBackfill}
}

// ErrQueueFull indicates a lane buffer is at capacity. The event stays in
// raw_events for replay; intake never blocks on a full lane.
var ErrQueueFull = errors.New("queue full")

// Job is one accepted event awaiting processing.
type Job struct {
	Lane       Lane
	EventID    string
	TeamID     string
	ReceivedAt float64
	Envelope   *models.EventEnvelope
}

// Executor folds one job into thread state. A nil return acknowledges the
// job whether or not it changed anything; discards and duplicates are not
// errors.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID             string    `json:"id"`
	Lane           string    `json:"lane"`
	Status         string    `json:"status"`
	CurrentEventID string    `json:"current_event_id,omitempty"`
	JobsProcessed  int       `json:"jobs_processed"`
	LastActivity   time.Time `json:"last_activity"`
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	QueueSizes    map[string]int `json:"queue_sizes"`
	TotalWorkers  int            `json:"total_workers"`
	ActiveWorkers int            `json:"active_workers"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}
