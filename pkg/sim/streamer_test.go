package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/queue"
)

// recordingIngestor captures every envelope handed to it.
type recordingIngestor struct {
	mu     sync.Mutex
	events []models.EventEnvelope
}

func (r *recordingIngestor) Ingest(_ context.Context, envelope *models.EventEnvelope, _ []byte, _ queue.Lane) (*models.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *envelope)
	return &models.IngestResult{Status: "queued", EventID: envelope.EventID}, nil
}

func (r *recordingIngestor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestStreamer_RunsScenarioToCompletion(t *testing.T) {
	ingestor := &recordingIngestor{}
	streamer := NewStreamer(ingestor)

	err := streamer.Start(models.SimStartRequest{
		ScenarioID:      ScenarioCarbonFiber,
		SpeedMultiplier: 10000,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !streamer.Status().Running },
		5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 10, ingestor.count())

	status := streamer.Status()
	assert.Equal(t, 10, status.EmittedCount)
	assert.Equal(t, "EvE0009", status.LastEventID)
	assert.Equal(t, ScenarioCarbonFiber, status.ScenarioID)
}

func TestStreamer_MaxEventsStopsEarly(t *testing.T) {
	ingestor := &recordingIngestor{}
	streamer := NewStreamer(ingestor)

	err := streamer.Start(models.SimStartRequest{
		ScenarioID:      ScenarioCarbonFiber,
		SpeedMultiplier: 10000,
		MaxEvents:       3,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !streamer.Status().Running },
		5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, ingestor.count())
	assert.Equal(t, 3, streamer.Status().EmittedCount)
}

func TestStreamer_RejectsUnknownScenario(t *testing.T) {
	streamer := NewStreamer(&recordingIngestor{})

	err := streamer.Start(models.SimStartRequest{ScenarioID: "warehouse_fire"})
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.False(t, streamer.Status().Running)
}

func TestStreamer_StartWhileRunningIsNoOp(t *testing.T) {
	ingestor := &recordingIngestor{}
	streamer := NewStreamer(ingestor)

	// Slow emission keeps the first run active.
	require.NoError(t, streamer.Start(models.SimStartRequest{
		ScenarioID:      ScenarioCarbonFiber,
		SpeedMultiplier: 0.5,
	}))
	require.NoError(t, streamer.Start(models.SimStartRequest{
		ScenarioID:      ScenarioCarbonFiber,
		SpeedMultiplier: 10000,
	}))

	status := streamer.Status()
	assert.True(t, status.Running)
	streamer.Stop()
	assert.False(t, streamer.Status().Running)
}

func TestStreamer_LoopReemitsWithFreshTimestamps(t *testing.T) {
	ingestor := &recordingIngestor{}
	streamer := NewStreamer(ingestor)

	require.NoError(t, streamer.Start(models.SimStartRequest{
		ScenarioID:      ScenarioCarbonFiber,
		SpeedMultiplier: 10000,
		Loop:            true,
		MaxEvents:       15,
	}))
	require.Eventually(t, func() bool { return !streamer.Status().Running },
		5*time.Second, 10*time.Millisecond)

	require.Equal(t, 15, ingestor.count())
	// The 11th event is the first of the second pass: same id, later ts.
	assert.Equal(t, ingestor.events[0].EventID, ingestor.events[10].EventID)
	assert.Greater(t, ingestor.events[10].Event.TS, ingestor.events[0].Event.TS)
}

func TestStreamer_ResetRestoresDefaults(t *testing.T) {
	ingestor := &recordingIngestor{}
	streamer := NewStreamer(ingestor)

	require.NoError(t, streamer.Start(models.SimStartRequest{
		ScenarioID:      ScenarioCarbonFiber,
		SpeedMultiplier: 10000,
		MaxEvents:       2,
		RunID:           "run1",
	}))
	require.Eventually(t, func() bool { return !streamer.Status().Running },
		5*time.Second, 10*time.Millisecond)

	streamer.Reset()
	status := streamer.Status()
	assert.False(t, status.Running)
	assert.Zero(t, status.EmittedCount)
	assert.Empty(t, status.ScenarioID)
	assert.Empty(t, status.LastEventID)

	// A fresh clock means the rerun starts back at the scenario epoch.
	require.NoError(t, streamer.Start(models.SimStartRequest{
		ScenarioID:      ScenarioCarbonFiber,
		SpeedMultiplier: 10000,
		MaxEvents:       1,
	}))
	require.Eventually(t, func() bool { return !streamer.Status().Running },
		5*time.Second, 10*time.Millisecond)
	last := ingestor.events[len(ingestor.events)-1]
	assert.Equal(t, "1700000001.000", last.Event.TS)
}
