package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Worker drains a single lane sequentially. One worker per lane is the
// system's ordering guarantee: events on the same lane never interleave.
type Worker struct {
	id       string
	lane     Lane
	jobs     <-chan Job
	executor Executor
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Health tracking
	mu             sync.RWMutex
	status         WorkerStatus
	currentEventID string
	jobsProcessed  int
	lastActivity   time.Time
}

// NewWorker creates a worker bound to one lane.
func NewWorker(id string, lane Lane, jobs <-chan Job, executor Executor) *Worker {
	return &Worker{
		id:           id,
		lane:         lane,
		jobs:         jobs,
		executor:     executor,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the in-flight job to
// finish. It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:             w.id,
		Lane:           string(w.lane),
		Status:         string(w.status),
		CurrentEventID: w.currentEventID,
		JobsProcessed:  w.jobsProcessed,
		LastActivity:   w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "lane", string(w.lane))
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		case job := <-w.jobs:
			w.process(ctx, job, log)
		}
	}
}

// process runs one job through the executor. Failures are logged; the lane
// keeps moving (dedupe prevents a duplicate replay, and the next event for
// the same thread restores consistency).
func (w *Worker) process(ctx context.Context, job Job, log *slog.Logger) {
	w.setStatus(WorkerStatusWorking, job.EventID)
	defer w.setStatus(WorkerStatusIdle, "")

	if err := w.executor.Execute(ctx, job); err != nil {
		log.Error("Job failed", "event_id", job.EventID, "error", err)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()
}

// setStatus updates worker status under lock.
func (w *Worker) setStatus(status WorkerStatus, eventID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentEventID = eventID
	w.lastActivity = time.Now()
}
