package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digestkit/digestd/pkg/models"
)

func (s *Server) handleCreateSchedule(c *gin.Context) {
	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	schedule, err := s.schedules.Create(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// handleRunSchedule triggers a schedule immediately, bypassing its time of
// day. Repeated triggers report already_delivered.
func (s *Server) handleRunSchedule(c *gin.Context) {
	result, err := s.scheduler.RunNow(c.Request.Context(), c.Param("schedule_id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
