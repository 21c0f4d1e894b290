package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/digestkit/digestd/pkg/database"
	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/queue"
	"github.com/digestkit/digestd/pkg/version"
)

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "version": version.Full(), "database": dbHealth})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Full(), "database": dbHealth})
}

// handleSlackEvents is the signed intake endpoint.
func (s *Server) handleSlackEvents(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_payload"))
		return
	}
	resp, err := s.ingest.HandleEvent(c.Request.Context(), c.Request.Header, rawBody)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	if resp.Result == nil {
		c.JSON(http.StatusOK, gin.H{"challenge": resp.Challenge})
		return
	}
	c.JSON(http.StatusOK, resp.Result)
}

// handleBackfill replays an envelope straight onto the backfill lane,
// skipping signature verification.
func (s *Server) handleBackfill(c *gin.Context) {
	s.ingestUnsigned(c, queue.LaneBackfill)
}

// handleSimEvents accepts synthetic envelopes with live-intake routing.
func (s *Server) handleSimEvents(c *gin.Context) {
	s.ingestUnsigned(c, "")
}

func (s *Server) ingestUnsigned(c *gin.Context, lane queue.Lane) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_payload"))
		return
	}
	envelope, err := models.ParseEnvelope(rawBody)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_payload"))
		return
	}
	result, err := s.ingest.Ingest(c.Request.Context(), envelope, rawBody, lane)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSeedMock(c *gin.Context) {
	results, err := s.ingest.SeedMock(c.Request.Context())
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "seeded", "results": results})
}

func (s *Server) handleQueuesStatus(c *gin.Context) {
	metrics, err := s.store.ListQueueMetrics(c.Request.Context())
	if err != nil {
		mapServiceError(c, err)
		return
	}
	byName := make(map[string]models.QueueMetric, len(metrics))
	for _, m := range metrics {
		byName[m.QueueName] = m
	}

	statuses := make([]models.QueueStatus, 0, len(queue.Lanes()))
	for _, lane := range queue.Lanes() {
		status := models.QueueStatus{
			Name: string(lane),
			Size: s.queues.Size(lane),
		}
		if m, ok := byName[string(lane)]; ok {
			status.ProcessedCount = m.ProcessedCount
			last := m.LastProcessedAt
			status.LastProcessedAt = &last
		}
		statuses = append(statuses, status)
	}
	c.JSON(http.StatusOK, gin.H{"queues": statuses})
}

func (s *Server) handleRawEvents(c *gin.Context) {
	events, err := s.store.ListRawEvents(c.Request.Context(), queryLimit(c))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	views := make([]models.RawEventView, 0, len(events))
	for _, event := range events {
		views = append(views, models.RawEventView{
			EventID:    event.EventID,
			ReceivedAt: event.ReceivedAt,
			Payload:    []byte(event.Payload),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": views})
}

func (s *Server) handleThreads(c *gin.Context) {
	threads, err := s.store.ListThreads(c.Request.Context(), queryLimit(c))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	views := make([]models.ThreadView, 0, len(threads))
	for _, thread := range threads {
		views = append(views, models.ThreadView{
			ThreadTS:      thread.ThreadTS,
			Channel:       thread.Channel,
			RootTS:        thread.RootTS,
			CreatedAt:     thread.CreatedAt,
			LastActivity:  thread.LastActivity,
			ReplyCount:    thread.ReplyCount,
			ReactionCount: thread.ReactionCount,
			Participants:  thread.Participants,
		})
	}
	c.JSON(http.StatusOK, gin.H{"threads": views})
}

func (s *Server) handleItems(c *gin.Context) {
	items, err := s.store.ListDigestItems(c.Request.Context(), queryLimit(c))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	views := make([]models.DigestItemView, 0, len(items))
	for _, item := range items {
		views = append(views, models.DigestItemView{
			ThreadTS:  item.ThreadTS,
			Channel:   item.Channel,
			Title:     item.Title,
			Labels:    item.Labels,
			Entities:  item.Entities.Data(),
			Urgency:   item.Urgency,
			Summary:   item.Summary,
			UpdatedAt: item.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": views})
}

// handleEmbedding renders a thread vector; an absent embedding renders with
// dim 0 rather than a 404.
func (s *Server) handleEmbedding(c *gin.Context) {
	threadTS := c.Param("thread_ts")
	emb, err := s.store.GetEmbedding(c.Request.Context(), threadTS)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	view := models.EmbeddingView{ThreadTS: threadTS, Vector: []float64{}}
	if emb != nil {
		view.Dim = emb.Dim
		view.Vector = emb.Vector
		view.UpdatedAt = emb.UpdatedAt
	}
	c.JSON(http.StatusOK, view)
}

// queryLimit parses the optional ?limit= parameter, defaulting to 50.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		return 50
	}
	return limit
}
