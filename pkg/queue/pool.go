package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/digestkit/digestd/pkg/config"
)

// Pool manages the per-lane workers.
type Pool struct {
	manager  *Manager
	config   *config.QueueConfig
	executor Executor
	workers  []*Worker
	started  bool
}

// NewPool creates a pool over an existing manager.
func NewPool(manager *Manager, cfg *config.QueueConfig, executor Executor) *Pool {
	return &Pool{
		manager:  manager,
		config:   cfg,
		executor: executor,
		workers:  make([]*Worker, 0, len(Lanes())*cfg.WorkersPerLane),
	}
}

// Start spawns the lane workers. It is safe to call multiple times;
// subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	for _, lane := range Lanes() {
		for i := 0; i < p.config.WorkersPerLane; i++ {
			workerID := fmt.Sprintf("%s-worker-%d", lane, i)
			worker := NewWorker(workerID, lane, p.manager.jobs(lane), p.executor)
			p.workers = append(p.workers, worker)
			worker.Start(ctx)
		}
	}

	slog.Info("Worker pool started",
		"lanes", len(Lanes()),
		"workers", len(p.workers))
}

// Stop signals all workers and waits up to ShutdownTimeout for in-flight
// jobs to finish. Buffered jobs left on the lanes are abandoned; raw_events
// keeps them replayable.
func (p *Pool) Stop() {
	slog.Info("Stopping worker pool gracefully")

	done := make(chan struct{})
	go func() {
		for _, worker := range p.workers {
			worker.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		slog.Warn("Worker pool stop timed out", "timeout", p.config.ShutdownTimeout)
	}
}

// Health returns the current health status of the pool.
func (p *Pool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		workerStats[i] = worker.Health()
		if workerStats[i].Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0,
		QueueSizes:    p.manager.Sizes(),
		TotalWorkers:  len(p.workers),
		ActiveWorkers: activeWorkers,
		WorkerStats:   workerStats,
	}
}
