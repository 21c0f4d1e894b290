package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digestkit/digestd/pkg/services"
)

// errorBody is the uniform error payload.
func errorBody(kind string) gin.H {
	return gin.H{"error": kind}
}

// mapServiceError translates service-layer errors into HTTP responses.
func mapServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, errorBody(validationErr.Error()))
	case errors.Is(err, services.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, errorBody("invalid_action"))
	case errors.Is(err, services.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, errorBody("invalid_signature"))
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusForbidden, errorBody("access_denied"))
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, errorBody("unknown_user"))
	case errors.Is(err, services.ErrRoleNotFound):
		c.JSON(http.StatusNotFound, errorBody("unknown_role"))
	case errors.Is(err, services.ErrPhaseNotFound):
		c.JSON(http.StatusNotFound, errorBody("unknown_phase"))
	case errors.Is(err, services.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, errorBody("unknown_project"))
	case errors.Is(err, services.ErrEmbeddingNotFound):
		c.JSON(http.StatusNotFound, errorBody("unknown_embedding"))
	case errors.Is(err, services.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, errorBody("unknown_schedule"))
	case errors.Is(err, services.ErrMissingSigningSecret):
		c.JSON(http.StatusInternalServerError, errorBody("missing_signing_secret"))
	default:
		slog.Error("Unexpected service error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("internal server error"))
	}
}
