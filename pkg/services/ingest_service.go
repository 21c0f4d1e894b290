package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/queue"
	"github.com/digestkit/digestd/pkg/slack"
	"github.com/digestkit/digestd/pkg/store"
)

// IngestService accepts inbound events: signature verification, at-most-once
// dedupe, raw persistence, and priority routing onto the lanes.
type IngestService struct {
	store  *store.Store
	queues *queue.Manager
	cfg    *config.Config
	now    func() float64
}

// NewIngestService creates the ingest service.
func NewIngestService(st *store.Store, queues *queue.Manager, cfg *config.Config) *IngestService {
	return &IngestService{store: st, queues: queues, cfg: cfg, now: epochNow}
}

// IntakeResponse is the outcome of one signed intake request: either a
// url_verification challenge echo (Result nil) or an ingest result.
type IntakeResponse struct {
	Challenge string
	Result    *models.IngestResult
}

// HandleEvent processes one request from the events endpoint: signature
// verification (unless disabled), the url_verification handshake, payload
// validation, then ingest.
func (s *IngestService) HandleEvent(ctx context.Context, headers http.Header, rawBody []byte) (*IntakeResponse, error) {
	if s.cfg.VerifySignature {
		if s.cfg.SlackSigningSecret == "" {
			return nil, ErrMissingSigningSecret
		}
		if err := slack.VerifyRequest(s.cfg.SlackSigningSecret, headers, rawBody); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	// The handshake is answered after the signature check but before
	// envelope validation: it carries no event.
	var probe struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(rawBody, &probe); err != nil {
		return nil, NewValidationError("payload", "invalid JSON")
	}
	if probe.Type == "url_verification" {
		return &IntakeResponse{Challenge: probe.Challenge}, nil
	}

	envelope, err := models.ParseEnvelope(rawBody)
	if err != nil {
		return nil, NewValidationError("payload", err.Error())
	}
	result, err := s.Ingest(ctx, envelope, rawBody, "")
	if err != nil {
		return nil, err
	}
	return &IntakeResponse{Result: result}, nil
}

// Ingest runs dedupe, raw persistence, and routing for a validated
// envelope. An empty lane routes by the hot-signal heuristics; backfill and
// replay paths pass their lane explicitly.
func (s *IngestService) Ingest(ctx context.Context, envelope *models.EventEnvelope, rawBody []byte, lane queue.Lane) (*models.IngestResult, error) {
	receivedAt := s.now()
	first, err := s.store.InsertDedupe(ctx, envelope.EventID, receivedAt)
	if err != nil {
		return nil, err
	}
	if !first {
		return &models.IngestResult{Status: "duplicate", EventID: envelope.EventID}, nil
	}

	if rawBody == nil {
		if rawBody, err = json.Marshal(envelope); err != nil {
			return nil, fmt.Errorf("encoding raw event: %w", err)
		}
	}
	if err := s.store.SaveRawEvent(ctx, envelope.EventID, receivedAt, rawBody); err != nil {
		return nil, err
	}

	if lane == "" {
		lane = queue.LaneStandard
		if envelope.Event.HotSignal() {
			lane = queue.LaneHot
		}
	}
	job := queue.Job{
		Lane:       lane,
		EventID:    envelope.EventID,
		TeamID:     envelope.TeamID,
		ReceivedAt: receivedAt,
		Envelope:   envelope,
	}
	if err := s.queues.TryEnqueue(job); err != nil {
		// The raw_events row keeps the payload replayable through /backfill;
		// the event is still acknowledged as queued.
		slog.Warn("Dropped job on full lane",
			"event_id", envelope.EventID,
			"lane", string(lane),
			"error", err)
	}
	return &models.IngestResult{Status: "queued", EventID: envelope.EventID}, nil
}

// SeedMock ingests the canned material-decision thread used by demos and
// smoke tests: four messages on one thread in channel C001.
func (s *IngestService) SeedMock(ctx context.Context) ([]models.IngestResult, error) {
	base := s.now()
	threadTS := formatTS(base)
	seeds := []struct {
		user      string
		text      string
		reactions []models.Reaction
	}{
		{
			user:      "U001",
			text:      "We need a decision needed on switching from aluminum to carbon fiber for the chassis. EVT build is blocked.",
			reactions: []models.Reaction{{Name: "rotating_light", Count: 1}},
		},
		{
			user: "U002",
			text: "Vendor A can deliver carbon fiber in 8 weeks, but Vendor B says aluminum is still safer.",
		},
		{
			user: "U003",
			text: "By Friday we need to lock the material. DVT starts soon.",
		},
		{
			user: "U004",
			text: "Risk: carbon fiber tooling lead time is 8 weeks, but performance gains are big.",
		},
	}

	results := make([]models.IngestResult, 0, len(seeds))
	for i, seed := range seeds {
		ts := formatTS(base + float64(i)*0.001)
		id := uuid.New()
		envelope := &models.EventEnvelope{
			EventID:   fmt.Sprintf("mock-%x", id[:]),
			EventTime: int64(s.now()),
			EventTS:   ts,
			TeamID:    "T001",
			Type:      "event_callback",
			Event: models.InnerEvent{
				Type:      "message",
				Channel:   "C001",
				User:      seed.user,
				Text:      seed.text,
				TS:        ts,
				ThreadTS:  threadTS,
				Reactions: seed.reactions,
			},
		}
		result, err := s.Ingest(ctx, envelope, nil, "")
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// formatTS renders an epoch as a platform-style "seconds.millis" string.
func formatTS(ts float64) string {
	return fmt.Sprintf("%.3f", ts)
}
