package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/database"
	"github.com/digestkit/digestd/pkg/delivery"
	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/queue"
	"github.com/digestkit/digestd/pkg/services"
	"github.com/digestkit/digestd/pkg/sim"
	"github.com/digestkit/digestd/pkg/store"
)

// apiFixture wires the full server over an in-memory database.
type apiFixture struct {
	t      *testing.T
	srv    *Server
	cfg    *config.Config
	st     *store.Store
	queues *queue.Manager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		QueryWeightRole:      0.45,
		QueryWeightUser:      0.35,
		QueryWeightPhase:     0.20,
		UserEmbedAlpha:       0.90,
		UserDecayDays:        14,
		UserDecayBlend:       0.05,
		RetrievalWindowHours: 24,
		SlackOAuthScopes:     "commands,chat:write",
		Queue:                config.DefaultQueueConfig(),
	}

	db, err := database.NewClient(context.Background(), database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db.GORM())
	queues := queue.NewManager(cfg.Queue)
	ingest := services.NewIngestService(st, queues, cfg)
	profiles := services.NewProfileService(st, cfg)
	digests := services.NewDigestService(st, profiles, cfg)
	deliverer := delivery.NewService(st, func(token string) delivery.Messenger {
		return &stubMessenger{}
	})

	srv := NewServer(Deps{
		Config:    cfg,
		DB:        db,
		Store:     st,
		Queues:    queues,
		Ingest:    ingest,
		Profiles:  profiles,
		Digests:   digests,
		Feedback:  services.NewFeedbackService(st, cfg),
		Schedules: services.NewScheduleService(st),
		Scheduler: delivery.NewScheduler(st, digests, deliverer),
		Streamer:  sim.NewStreamer(ingest),
	})
	return &apiFixture{t: t, srv: srv, cfg: cfg, st: st, queues: queues}
}

type stubMessenger struct{}

func (m *stubMessenger) OpenDM(ctx context.Context, userID string) (string, error) {
	return "D-" + userID, nil
}

func (m *stubMessenger) PostDigest(ctx context.Context, channelID string, items []models.DigestEntry) (string, error) {
	return "1700000000.100", nil
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func (f *apiFixture) get(path string) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, path, nil)
}

func (f *apiFixture) postJSON(path string, body any) *httptest.ResponseRecorder {
	return f.do(http.MethodPost, path, body)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func envelopeJSON(eventID, text string) map[string]any {
	return map[string]any{
		"type":     "event_callback",
		"event_id": eventID,
		"team_id":  "T001",
		"event": map[string]any{
			"type":    "message",
			"channel": "C001",
			"user":    "U001",
			"text":    text,
			"ts":      "1700000001.000",
		},
	}
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestSlackEvents_URLVerification(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/slack/events", map[string]any{
		"type":      "url_verification",
		"challenge": "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", decodeBody(t, w)["challenge"])
}

func TestSlackEvents_QueuedThenDuplicate(t *testing.T) {
	f := newAPIFixture(t)

	first := f.postJSON("/slack/events", envelopeJSON("Ev001", "hello"))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "queued", decodeBody(t, first)["status"])

	second := f.postJSON("/slack/events", envelopeJSON("Ev001", "hello"))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "duplicate", decodeBody(t, second)["status"])
}

func TestSlackEvents_SignatureEnforcement(t *testing.T) {
	f := newAPIFixture(t)
	f.cfg.VerifySignature = true

	w := f.postJSON("/slack/events", envelopeJSON("Ev001", "hello"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "missing_signing_secret", decodeBody(t, w)["error"])

	f.cfg.SlackSigningSecret = "secret"
	w = f.postJSON("/slack/events", envelopeJSON("Ev001", "hello"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_signature", decodeBody(t, w)["error"])
}

func TestBackfillRoutesToBackfillLane(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/backfill", envelopeJSON("Ev010", "urgent: line down"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "queued", decodeBody(t, w)["status"])

	assert.Equal(t, 1, f.queues.Size(queue.LaneBackfill))
	assert.Equal(t, 0, f.queues.Size(queue.LaneHot))
}

func TestSimEventsInvalidPayload(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/sim/events", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_payload", decodeBody(t, w)["error"])
}

func TestSeedMock(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/seed_mock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "seeded", body["status"])
	assert.Len(t, body["results"], 4)

	events := f.get("/raw_events")
	require.Equal(t, http.StatusOK, events.Code)
	assert.Len(t, decodeBody(t, events)["events"], 4)
}

func TestQueuesStatusListsAllLanes(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.postJSON("/slack/events", envelopeJSON("Ev020", "urgent: blocker"))
	require.Equal(t, http.StatusOK, resp.Code)

	w := f.get("/queues/status")
	require.Equal(t, http.StatusOK, w.Code)

	queues, ok := decodeBody(t, w)["queues"].([]any)
	require.True(t, ok)
	require.Len(t, queues, 3)

	sizes := map[string]float64{}
	for _, entry := range queues {
		q := entry.(map[string]any)
		sizes[q["name"].(string)] = q["size"].(float64)
	}
	assert.Equal(t, float64(1), sizes["hot"])
	assert.Equal(t, float64(0), sizes["standard"])
	assert.Equal(t, float64(0), sizes["backfill"])
}

func TestEmbeddingAbsentRendersEmpty(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get("/embeddings/1700000001.000")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["dim"])
	assert.Len(t, body["vector"], 0)
}

func TestProfileLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/roles", map[string]any{
		"role_id": "mech-eng", "description": "mechanical design and vendor tracking",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(64), decodeBody(t, w)["vector_dim"])

	w = f.postJSON("/phases", map[string]any{"phase_key": "evt", "description": "engineering validation"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.postJSON("/projects", map[string]any{"project_id": "drone", "current_phase": "evt"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "evt", decodeBody(t, w)["current_phase"])

	w = f.postJSON("/projects/drone/channels", map[string]any{"channel_id": "C001"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.postJSON("/users", map[string]any{"user_id": "U001", "role_id": "mech-eng"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.postJSON("/users/U001/projects/drone", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.postJSON("/users/U001/channels", map[string]any{"channel_id": "C001"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.get("/profiles/users/U001")
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody(t, w)
	assert.Equal(t, "mech-eng", profile["role_id"])
	assert.Equal(t, float64(64), profile["user_vector_dim"])
	assert.Len(t, profile["projects"], 1)
}

func TestProfileErrorMapping(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/projects", map[string]any{"project_id": "drone", "current_phase": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get("/profiles/users/ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_user", decodeBody(t, w)["error"])

	w = f.get("/profiles/projects/ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_project", decodeBody(t, w)["error"])

	w = f.postJSON("/roles", map[string]any{"name": "missing id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDigestRequiresParams(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get("/digest?user_id=U001")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDigestAccessDenied(t *testing.T) {
	f := newAPIFixture(t)

	require.Equal(t, http.StatusOK, f.postJSON("/roles", map[string]any{"role_id": "pm"}).Code)
	require.Equal(t, http.StatusOK, f.postJSON("/phases", map[string]any{"phase_key": "evt"}).Code)
	require.Equal(t, http.StatusOK, f.postJSON("/projects", map[string]any{
		"project_id": "drone", "current_phase": "evt",
	}).Code)
	require.Equal(t, http.StatusOK, f.postJSON("/projects/drone/channels", map[string]any{
		"channel_id": "C001",
	}).Code)
	require.Equal(t, http.StatusOK, f.postJSON("/users", map[string]any{
		"user_id": "U001", "role_id": "pm",
	}).Code)

	w := f.get("/digest?user_id=U001&project_id=drone")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "access_denied", decodeBody(t, w)["error"])
}

func TestFeedbackInvalidAction(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/feedback", map[string]any{
		"user_id": "U001", "thread_ts": "1700000001.000", "action": "shrug",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_action", decodeBody(t, w)["error"])
}

func TestDebugQueryVectorTruncates(t *testing.T) {
	f := newAPIFixture(t)

	require.Equal(t, http.StatusOK, f.postJSON("/roles", map[string]any{
		"role_id": "mech-eng", "description": "tolerances and vendor quotes",
	}).Code)
	require.Equal(t, http.StatusOK, f.postJSON("/users", map[string]any{
		"user_id": "U001", "role_id": "mech-eng",
	}).Code)

	w := f.get("/debug/query_vector?user_id=U001")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["vector"], debugVectorDims)

	w = f.get("/debug/query_vector")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateScheduleAndRunNowUnknown(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/schedules", map[string]any{
		"team_id": "T001", "project_id": "drone", "user_id": "U001", "time_of_day": "09:00",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "UTC", body["timezone"])
	assert.Equal(t, true, body["is_enabled"])
	assert.Contains(t, body["schedule_id"], "sch-")

	w = f.postJSON("/schedules/ghost/run_now", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_schedule", decodeBody(t, w)["error"])
}

func TestSlackInstallUnconfigured(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get("/slack/install")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	f.cfg.SlackClientID = "client-id"
	w = f.get("/slack/install")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "client_id=client-id")
}

func TestOAuthRedirectErrors(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get("/slack/oauth_redirect?code=abc")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	f.cfg.SlackRedirectURI = "https://example.com/slack/oauth_redirect"
	w = f.get("/slack/oauth_redirect")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_code", decodeBody(t, w)["error"])

	w = f.get("/slack/oauth_redirect?code=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_client_config", decodeBody(t, w)["error"])
}

func TestSimulateUnknownScenario(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/simulate/start", map[string]any{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_scenario", decodeBody(t, w)["error"])
}

func TestSimulateRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	w := f.postJSON("/simulate/start", map[string]any{
		"scenario_id": "carbon_fiber_demo", "speed_multiplier": 1000.0,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "started", decodeBody(t, w)["status"])

	require.Eventually(t, func() bool {
		status := decodeBody(t, f.get("/simulate/status"))
		return status["emitted_count"] == float64(10) && status["running"] == false
	}, 5*time.Second, 20*time.Millisecond)

	status := decodeBody(t, f.get("/simulate/status"))
	sizes, ok := status["queue_sizes"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, sizes, "hot")

	require.Equal(t, http.StatusOK, f.postJSON("/simulate/stop", nil).Code)
	require.Equal(t, http.StatusOK, f.postJSON("/simulate/reset", nil).Code)
}

func TestRawEventLimitParam(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 3; i++ {
		resp := f.postJSON("/backfill", envelopeJSON(fmt.Sprintf("Ev%03d", i), "note"))
		require.Equal(t, http.StatusOK, resp.Code)
	}

	w := f.get("/raw_events?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["events"], 2)
}
