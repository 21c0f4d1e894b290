package sim

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/queue"
)

// Ingestor accepts generated envelopes. Simulator traffic routes like live
// intake (empty lane).
type Ingestor interface {
	Ingest(ctx context.Context, envelope *models.EventEnvelope, rawBody []byte, lane queue.Lane) (*models.IngestResult, error)
}

// Streamer replays a scenario through ingest at a configurable speed. At
// most one run is active at a time.
type Streamer struct {
	ingest Ingestor

	mu           sync.Mutex
	running      bool
	scenarioID   string
	emittedCount int
	lastEventID  string
	speed        float64
	maxEvents    int
	loop         bool
	runID        string
	clock        *Clock
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewStreamer creates an idle streamer.
func NewStreamer(ingest Ingestor) *Streamer {
	return &Streamer{ingest: ingest, clock: NewClock(), speed: 1.0}
}

// Start begins emitting a scenario in the background. Starting while a run
// is active is a no-op; an unknown scenario id is rejected.
func (s *Streamer) Start(req models.SimStartRequest) error {
	if !ValidScenario(req.ScenarioID) {
		return ErrUnknownScenario
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	speed := req.SpeedMultiplier
	if speed == 0 {
		speed = 1.0
	}
	s.running = true
	s.scenarioID = req.ScenarioID
	s.speed = speed
	s.maxEvents = req.MaxEvents
	s.loop = req.Loop
	s.runID = req.RunID

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return nil
}

// Stop cancels the active run and waits for it to exit.
func (s *Streamer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Reset stops any run and restores the idle defaults, including a fresh
// clock.
func (s *Streamer) Reset() {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarioID = ""
	s.emittedCount = 0
	s.lastEventID = ""
	s.speed = 1.0
	s.maxEvents = 0
	s.loop = false
	s.runID = ""
	s.clock = NewClock()
}

// Status snapshots the streamer state. Queue depths are layered on by the
// API handler.
func (s *Streamer) Status() models.SimStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SimStatus{
		Running:      s.running,
		ScenarioID:   s.scenarioID,
		EmittedCount: s.emittedCount,
		LastEventID:  s.lastEventID,
	}
}

func (s *Streamer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		scenarioID, runID, clock, loop := s.scenarioID, s.runID, s.clock, s.loop
		s.mu.Unlock()

		events, err := ScenarioEvents(scenarioID, runID, clock)
		if err != nil {
			slog.Error("Scenario generation failed", "scenario_id", scenarioID, "error", err)
			return
		}
		for i := range events {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if _, err := s.ingest.Ingest(ctx, &events[i], nil, ""); err != nil {
				slog.Error("Simulator ingest failed",
					"event_id", events[i].EventID,
					"error", err)
			}

			s.mu.Lock()
			s.emittedCount++
			s.lastEventID = events[i].EventID
			reachedMax := s.maxEvents > 0 && s.emittedCount >= s.maxEvents
			speed := s.speed
			s.mu.Unlock()
			if reachedMax {
				return
			}

			delay := time.Duration(float64(time.Second) / math.Max(speed, 0.01))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		if !loop {
			return
		}
	}
}
