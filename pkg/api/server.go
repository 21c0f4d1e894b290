// Package api exposes the HTTP surface over gin: signed event intake,
// profile management, digests and feedback, schedules, the OAuth install
// flow, debug views, and the scenario simulator.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/database"
	"github.com/digestkit/digestd/pkg/delivery"
	"github.com/digestkit/digestd/pkg/queue"
	"github.com/digestkit/digestd/pkg/services"
	"github.com/digestkit/digestd/pkg/sim"
	"github.com/digestkit/digestd/pkg/store"
)

// Deps bundles the constructed components the server serves.
type Deps struct {
	Config    *config.Config
	DB        *database.Client
	Store     *store.Store
	Queues    *queue.Manager
	Ingest    *services.IngestService
	Profiles  *services.ProfileService
	Digests   *services.DigestService
	Feedback  *services.FeedbackService
	Schedules *services.ScheduleService
	Scheduler *delivery.Scheduler
	Streamer  *sim.Streamer
}

// Server is the HTTP API server.
type Server struct {
	cfg       *config.Config
	db        *database.Client
	store     *store.Store
	queues    *queue.Manager
	ingest    *services.IngestService
	profiles  *services.ProfileService
	digests   *services.DigestService
	feedback  *services.FeedbackService
	schedules *services.ScheduleService
	scheduler *delivery.Scheduler
	streamer  *sim.Streamer

	engine *gin.Engine
	http   *http.Server
}

// NewServer wires the routes over the given dependencies.
func NewServer(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:       deps.Config,
		db:        deps.DB,
		store:     deps.Store,
		queues:    deps.Queues,
		ingest:    deps.Ingest,
		profiles:  deps.Profiles,
		digests:   deps.Digests,
		feedback:  deps.Feedback,
		schedules: deps.Schedules,
		scheduler: deps.Scheduler,
		streamer:  deps.Streamer,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), securityHeaders())
	s.engine = engine
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler. Tests serve it directly.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving on addr and blocks until the listener stops.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	return s.http.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	e := s.engine

	e.GET("/health", s.handleHealth)

	// Intake.
	e.POST("/slack/events", s.handleSlackEvents)
	e.POST("/backfill", s.handleBackfill)
	e.POST("/seed_mock", s.handleSeedMock)
	e.POST("/sim/events", s.handleSimEvents)

	// OAuth install flow.
	e.GET("/slack/install", s.handleSlackInstall)
	e.GET("/slack/oauth_redirect", s.handleOAuthRedirect)

	// Inspection.
	e.GET("/queues/status", s.handleQueuesStatus)
	e.GET("/raw_events", s.handleRawEvents)
	e.GET("/threads", s.handleThreads)
	e.GET("/items", s.handleItems)
	e.GET("/embeddings/:thread_ts", s.handleEmbedding)

	// Profiles.
	e.POST("/roles", s.handleCreateRole)
	e.POST("/phases", s.handleCreatePhase)
	e.POST("/projects", s.handleCreateProject)
	e.PATCH("/projects/:project_id/phase", s.handleUpdateProjectPhase)
	e.POST("/projects/:project_id/channels", s.handleAddProjectChannel)
	e.POST("/users", s.handleCreateUser)
	e.PATCH("/users/:user_id/role", s.handleUpdateUserRole)
	e.POST("/users/:user_id/projects/:project_id", s.handleAddUserProject)
	e.POST("/users/:user_id/channels", s.handleAddUserChannel)
	e.GET("/profiles/users/:user_id", s.handleUserProfile)
	e.GET("/profiles/projects/:project_id", s.handleProjectProfile)

	// Digests and feedback.
	e.GET("/digest", s.handleDigest)
	e.POST("/feedback", s.handleFeedback)

	// Schedules.
	e.POST("/schedules", s.handleCreateSchedule)
	e.POST("/schedules/:schedule_id/run_now", s.handleRunSchedule)

	// Debug views.
	e.GET("/debug/query_vector", s.handleDebugQueryVector)
	e.GET("/debug/retrieve", s.handleDebugRetrieve)
	e.GET("/debug/rerank", s.handleDebugRerank)

	// Simulator.
	e.POST("/simulate/start", s.handleSimulateStart)
	e.POST("/simulate/stop", s.handleSimulateStop)
	e.GET("/simulate/status", s.handleSimulateStatus)
	e.POST("/simulate/reset", s.handleSimulateReset)
}
