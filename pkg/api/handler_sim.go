package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/sim"
)

func (s *Server) handleSimulateStart(c *gin.Context) {
	var req models.SimStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	if err := s.streamer.Start(req); err != nil {
		if errors.Is(err, sim.ErrUnknownScenario) {
			c.JSON(http.StatusBadRequest, errorBody("unknown_scenario"))
			return
		}
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started", "scenario_id": req.ScenarioID})
}

func (s *Server) handleSimulateStop(c *gin.Context) {
	s.streamer.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleSimulateStatus(c *gin.Context) {
	status := s.streamer.Status()
	status.QueueSizes = s.queues.Sizes()
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleSimulateReset(c *gin.Context) {
	s.streamer.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
