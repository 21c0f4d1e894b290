package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digestkit/digestd/pkg/models"
)

func (s *Server) handleCreateRole(c *gin.Context) {
	var req models.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	role, err := s.profiles.CreateRole(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role_id": role.RoleID, "vector_dim": len(role.Vector)})
}

func (s *Server) handleCreatePhase(c *gin.Context) {
	var req models.CreatePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	phase, err := s.profiles.CreatePhase(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase_key": phase.PhaseKey, "vector_dim": len(phase.Vector)})
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	project, err := s.profiles.CreateProject(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": project.ProjectID, "current_phase": project.CurrentPhase})
}

func (s *Server) handleUpdateProjectPhase(c *gin.Context) {
	var req models.UpdateProjectPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	project, err := s.profiles.UpdateProjectPhase(c.Request.Context(), c.Param("project_id"), req.PhaseKey)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": project.ProjectID, "current_phase": project.CurrentPhase})
}

func (s *Server) handleAddProjectChannel(c *gin.Context) {
	var req models.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	projectID := c.Param("project_id")
	if err := s.profiles.AddProjectChannel(c.Request.Context(), projectID, req.ChannelID); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "channel_id": req.ChannelID})
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	user, err := s.profiles.CreateUser(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.UserID,
		"role_id":    user.RoleID,
		"vector_dim": len(user.Vector),
	})
}

func (s *Server) handleUpdateUserRole(c *gin.Context) {
	var req models.UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	user, err := s.profiles.UpdateUserRole(c.Request.Context(), c.Param("user_id"), req.RoleID)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.UserID,
		"role_id":    user.RoleID,
		"vector_dim": len(user.Vector),
	})
}

func (s *Server) handleAddUserProject(c *gin.Context) {
	userID := c.Param("user_id")
	projectID := c.Param("project_id")
	if err := s.profiles.AddUserProject(c.Request.Context(), userID, projectID); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "project_id": projectID})
}

func (s *Server) handleAddUserChannel(c *gin.Context) {
	var req models.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	userID := c.Param("user_id")
	if err := s.profiles.AddUserChannel(c.Request.Context(), userID, req.ChannelID); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "channel_id": req.ChannelID})
}

func (s *Server) handleUserProfile(c *gin.Context) {
	profile, err := s.profiles.GetUserProfile(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleProjectProfile(c *gin.Context) {
	profile, err := s.profiles.GetProjectProfile(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
