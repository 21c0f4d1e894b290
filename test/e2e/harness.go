// Package e2e boots a complete digestd instance over an in-memory database
// and a mock Slack API, then drives it through the HTTP surface.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/digestkit/digestd/pkg/api"
	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/database"
	"github.com/digestkit/digestd/pkg/delivery"
	"github.com/digestkit/digestd/pkg/queue"
	"github.com/digestkit/digestd/pkg/services"
	"github.com/digestkit/digestd/pkg/sim"
	digestslack "github.com/digestkit/digestd/pkg/slack"
	"github.com/digestkit/digestd/pkg/store"
)

// TestApp boots a full digestd instance for e2e testing.
type TestApp struct {
	Config *config.Config
	Store  *store.Store
	Queues *queue.Manager
	Slack  *mockSlackServer
	Server *api.Server

	BaseURL string

	t *testing.T
}

// NewTestApp creates and starts a digestd test instance. Shutdown is
// registered via t.Cleanup.
func NewTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		QueryWeightRole:      0.45,
		QueryWeightUser:      0.35,
		QueryWeightPhase:     0.20,
		UserEmbedAlpha:       0.90,
		UserDecayDays:        14,
		UserDecayBlend:       0.05,
		RetrievalWindowHours: 24,
		SlackOAuthScopes:     "commands,chat:write",
		Queue: &config.QueueConfig{
			BufferSize:      256,
			WorkersPerLane:  1,
			ShutdownTimeout: 5 * time.Second,
		},
	}

	dbClient, err := database.NewClient(ctx, database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbClient.Close() })

	st := store.New(dbClient.GORM())

	queues := queue.NewManager(cfg.Queue)
	pool := queue.NewPool(queues, cfg.Queue, queue.NewPipelineExecutor(st, nil))
	pool.Start(ctx)
	t.Cleanup(pool.Stop)

	mockSlack := newMockSlackServer(t)

	ingestService := services.NewIngestService(st, queues, cfg)
	profileService := services.NewProfileService(st, cfg)
	digestService := services.NewDigestService(st, profileService, cfg)
	deliverer := delivery.NewService(st, func(token string) delivery.Messenger {
		return digestslack.NewClientWithAPIURL(token, mockSlack.server.URL+"/")
	})

	server := api.NewServer(api.Deps{
		Config:    cfg,
		DB:        dbClient,
		Store:     st,
		Queues:    queues,
		Ingest:    ingestService,
		Profiles:  profileService,
		Digests:   digestService,
		Feedback:  services.NewFeedbackService(st, cfg),
		Schedules: services.NewScheduleService(st),
		Scheduler: delivery.NewScheduler(st, digestService, deliverer),
		Streamer:  sim.NewStreamer(ingestService),
	})

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	return &TestApp{
		Config:  cfg,
		Store:   st,
		Queues:  queues,
		Slack:   mockSlack,
		Server:  server,
		BaseURL: httpServer.URL,
		t:       t,
	}
}

// ────────────────────────────────────────────────────────────
// HTTP helpers
// ────────────────────────────────────────────────────────────

func (app *TestApp) postJSON(t *testing.T, path string, body any, wantStatus int) map[string]any {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	resp, err := http.Post(app.BaseURL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return decodeResponse(t, resp, wantStatus)
}

func (app *TestApp) patchJSON(t *testing.T, path string, body any, wantStatus int) map[string]any {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, app.BaseURL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return decodeResponse(t, resp, wantStatus)
}

func (app *TestApp) getJSON(t *testing.T, path string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(app.BaseURL + path)
	require.NoError(t, err)
	return decodeResponse(t, resp, wantStatus)
}

func decodeResponse(t *testing.T, resp *http.Response, wantStatus int) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "unexpected status, body: %s", raw)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// waitForItems polls /items until count digest items exist, returning the
// final listing. Enrichment happens on the worker goroutines, so intake
// responses land before items do.
func (app *TestApp) waitForItems(t *testing.T, count int) []any {
	t.Helper()
	var items []any
	require.Eventually(t, func() bool {
		body := app.getJSON(t, "/items", http.StatusOK)
		listed, ok := body["items"].([]any)
		items = listed
		return ok && len(listed) == count
	}, 5*time.Second, 20*time.Millisecond)
	return items
}

// ────────────────────────────────────────────────────────────
// Mock Slack API
// ────────────────────────────────────────────────────────────

// slackPost captures one chat.postMessage call.
type slackPost struct {
	Token   string
	Channel string
	Text    string
	Blocks  string
}

// mockSlackServer mimics the two Web API methods delivery touches:
// conversations.open and chat.postMessage.
type mockSlackServer struct {
	mu     sync.Mutex
	opens  []string // user ids passed to conversations.open
	posts  []slackPost
	server *httptest.Server
}

func newMockSlackServer(t *testing.T) *mockSlackServer {
	t.Helper()
	m := &mockSlackServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.open", m.handleConversationsOpen)
	mux.HandleFunc("/chat.postMessage", m.handlePostMessage)

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockSlackServer) handleConversationsOpen(w http.ResponseWriter, r *http.Request) {
	// conversations.open is a form-encoded method in the SDK.
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	users := r.FormValue("users")

	m.mu.Lock()
	m.opens = append(m.opens, users)
	m.mu.Unlock()

	writeJSON(w, map[string]any{
		"ok":      true,
		"channel": map[string]any{"id": "D" + users},
	})
}

func (m *mockSlackServer) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	post := slackPost{
		Token:   r.FormValue("token"),
		Channel: r.FormValue("channel"),
		Text:    r.FormValue("text"),
		Blocks:  r.FormValue("blocks"),
	}
	m.mu.Lock()
	m.posts = append(m.posts, post)
	count := len(m.posts)
	m.mu.Unlock()

	writeJSON(w, map[string]any{
		"ok":      true,
		"channel": post.Channel,
		"ts":      fmt.Sprintf("1234567890.%06d", count),
	})
}

// Posts returns a snapshot of the recorded chat.postMessage calls.
func (m *mockSlackServer) Posts() []slackPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]slackPost(nil), m.posts...)
}

func writeJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
