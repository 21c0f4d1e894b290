package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/services"
)

// handleDigest builds a personalized digest after the channel-membership
// access check.
func (s *Server) handleDigest(c *gin.Context) {
	userID := c.Query("user_id")
	projectID := c.Query("project_id")
	if userID == "" || projectID == "" {
		c.JSON(http.StatusBadRequest, errorBody("user_id and project_id are required"))
		return
	}
	n := queryInt(c, "n", services.DefaultDigestSize)

	ctx := c.Request.Context()
	if err := s.digests.CheckAccess(ctx, userID, projectID); err != nil {
		mapServiceError(c, err)
		return
	}
	view, err := s.digests.BuildDigest(ctx, userID, projectID, n)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
		return
	}
	result, err := s.feedback.Apply(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// debugVectorDims caps vectors rendered by the debug endpoints.
const debugVectorDims = 20

func (s *Server) handleDebugQueryVector(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errorBody("user_id is required"))
		return
	}
	queryVec, err := s.profiles.ComposeQueryVector(c.Request.Context(), userID, c.Query("project_id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	queryVec.Vector = truncateVector(queryVec.Vector)
	c.JSON(http.StatusOK, queryVec)
}

func (s *Server) handleDebugRetrieve(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errorBody("user_id is required"))
		return
	}
	k := queryInt(c, "k", services.DefaultTopK)

	cands, _, err := s.digests.Retrieve(c.Request.Context(), userID, c.Query("project_id"), nil, k)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidateViews(cands)})
}

func (s *Server) handleDebugRerank(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errorBody("user_id is required"))
		return
	}
	n := queryInt(c, "n", services.DefaultDigestSize)

	ranked, _, err := s.digests.Rank(c.Request.Context(), userID, c.Query("project_id"), n)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidateViews(ranked)})
}

func candidateViews(cands []services.Candidate) []models.CandidateView {
	views := make([]models.CandidateView, 0, len(cands))
	for _, cand := range cands {
		views = append(views, cand.View())
	}
	return views
}

func truncateVector(vec []float64) []float64 {
	if len(vec) > debugVectorDims {
		return vec[:debugVectorDims]
	}
	return vec
}

func queryInt(c *gin.Context, name string, defaultVal int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(defaultVal)))
	if err != nil || value <= 0 {
		return defaultVal
	}
	return value
}
